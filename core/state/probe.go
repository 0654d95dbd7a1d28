package state

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const procRoot = "/proc"

// Indirections for tests; production code never reassigns these.
var (
	procReadFile = os.ReadFile
	procListPids = listProcPids
)

var pageSize = float64(os.Getpagesize())

// Probe reads kernel counters and target-tree state into snapshots.
// CPU percentages come from successive /proc/stat readings, so the first
// snapshot after construction reports them as zero.
type Probe struct {
	rootPID int
	prev    *cpuTicks
}

// NewProbe builds a probe scoped to the process tree rooted at rootPID.
// A non-positive rootPID disables the per-tree fields.
func NewProbe(rootPID int) *Probe {
	return &Probe{rootPID: rootPID}
}

// Snapshot takes one observation. System-wide files that cannot be read
// fail the whole snapshot; per-process reads are best effort because pids
// in the target tree vanish constantly while a workload winds down.
func (p *Probe) Snapshot() (Snapshot, error) {
	s := Snapshot{TakenAt: time.Now()}

	ticks, running, blocked, err := readStat()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read %s/stat: %w", procRoot, err)
	}
	s.RunQueue = running
	s.BlockedThreads = blocked
	if p.prev != nil {
		d := tickDelta(ticks, *p.prev)
		if total := d.total(); total > 0 {
			ft := float64(total)
			s.CPUPercent = float64(total-d.idle-d.iowait) / ft * 100
			s.CPUUserPercent = float64(d.user+d.nice) / ft * 100
			s.IOWaitPercent = float64(d.iowait) / ft * 100
			s.IRQPercent = float64(d.irq) / ft * 100
			s.SoftIRQPercent = float64(d.softirq) / ft * 100
		}
	}
	p.prev = &ticks

	mem, err := readMeminfo()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read %s/meminfo: %w", procRoot, err)
	}
	s.MemUsed = mem["MemTotal"] - mem["MemAvailable"]
	s.MemAvailable = mem["MemAvailable"]
	s.SwapUsed = mem["SwapTotal"] - mem["SwapFree"]
	s.CacheMem = mem["Cached"]
	s.BuffersMem = mem["Buffers"]

	s.SwapInTotal, s.SwapOutTotal = readVmstatSwap()
	s.IOReadTotal, s.IOWriteTotal = readDiskTotals()

	if p.rootPID > 0 {
		for _, pid := range treePids(p.rootPID) {
			st, err := readProcStat(pid)
			if err != nil {
				continue // pid vanished between listing and read
			}
			s.ActiveThreads += st.numThreads
			if st.state == 'D' {
				s.IOBlockedThreads++
			}
			if vol, nonvol, err := readCtxSwitches(pid); err == nil {
				s.VCSwTotal += vol
				s.NVCSwTotal += nonvol
			}
		}
	}
	return s, nil
}

type cpuTicks struct {
	user, nice, system, idle, iowait, irq, softirq, steal uint64
}

func (c cpuTicks) total() uint64 {
	return c.user + c.nice + c.system + c.idle + c.iowait + c.irq + c.softirq + c.steal
}

func tickDelta(cur, prev cpuTicks) cpuTicks {
	sub := func(a, b uint64) uint64 {
		if a < b {
			return 0
		}
		return a - b
	}
	return cpuTicks{
		user:    sub(cur.user, prev.user),
		nice:    sub(cur.nice, prev.nice),
		system:  sub(cur.system, prev.system),
		idle:    sub(cur.idle, prev.idle),
		iowait:  sub(cur.iowait, prev.iowait),
		irq:     sub(cur.irq, prev.irq),
		softirq: sub(cur.softirq, prev.softirq),
		steal:   sub(cur.steal, prev.steal),
	}
}

func readStat() (ticks cpuTicks, running, blocked float64, err error) {
	b, err := procReadFile(procRoot + "/stat")
	if err != nil {
		return cpuTicks{}, 0, 0, err
	}
	for _, line := range strings.Split(string(b), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "cpu":
			if len(fields) < 8 {
				continue
			}
			ticks = cpuTicks{
				user:    parseUint(fields[1]),
				nice:    parseUint(fields[2]),
				system:  parseUint(fields[3]),
				idle:    parseUint(fields[4]),
				iowait:  parseUint(fields[5]),
				irq:     parseUint(fields[6]),
				softirq: parseUint(fields[7]),
			}
			if len(fields) > 8 {
				ticks.steal = parseUint(fields[8])
			}
		case "procs_running":
			running = float64(parseUint(fields[1]))
		case "procs_blocked":
			blocked = float64(parseUint(fields[1]))
		}
	}
	return ticks, running, blocked, nil
}

// readMeminfo parses /proc/meminfo into bytes keyed by field name.
func readMeminfo() (map[string]float64, error) {
	b, err := procReadFile(procRoot + "/meminfo")
	if err != nil {
		return nil, err
	}
	m := make(map[string]float64)
	for _, line := range strings.Split(string(b), "\n") {
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		v := float64(parseUint(fields[0]))
		if len(fields) > 1 && fields[1] == "kB" {
			v *= 1024
		}
		m[name] = v
	}
	return m, nil
}

// readVmstatSwap returns swap traffic since boot in bytes. Missing
// counters (some container kernels omit them) read as zero.
func readVmstatSwap() (swapIn, swapOut float64) {
	b, err := procReadFile(procRoot + "/vmstat")
	if err != nil {
		return 0, 0
	}
	for _, line := range strings.Split(string(b), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "pswpin":
			swapIn = float64(parseUint(fields[1])) * pageSize
		case "pswpout":
			swapOut = float64(parseUint(fields[1])) * pageSize
		}
	}
	return swapIn, swapOut
}

var partitionPattern = regexp.MustCompile(`^(?:sd[a-z]+|vd[a-z]+|hd[a-z]+|xvd[a-z]+)\d+$|^(?:nvme\d+n\d+|mmcblk\d+)p\d+$`)

// readDiskTotals sums sector counters across whole physical devices,
// skipping partitions and memory-backed devices so traffic is not
// counted twice. Sectors in /proc/diskstats are always 512 bytes.
func readDiskTotals() (readBytes, writeBytes float64) {
	b, err := procReadFile(procRoot + "/diskstats")
	if err != nil {
		return 0, 0
	}
	for _, line := range strings.Split(string(b), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 10 {
			continue
		}
		name := fields[2]
		if strings.HasPrefix(name, "loop") || strings.HasPrefix(name, "ram") ||
			strings.HasPrefix(name, "zram") || partitionPattern.MatchString(name) {
			continue
		}
		readBytes += float64(parseUint(fields[5])) * 512
		writeBytes += float64(parseUint(fields[9])) * 512
	}
	return readBytes, writeBytes
}

type procStat struct {
	state      byte
	ppid       int
	numThreads float64
}

// readProcStat parses the post-comm fields of /proc/<pid>/stat. The comm
// field may itself contain spaces and parentheses, so parsing starts
// after the last closing paren.
func readProcStat(pid int) (procStat, error) {
	b, err := procReadFile(filepath.Join(procRoot, strconv.Itoa(pid), "stat"))
	if err != nil {
		return procStat{}, err
	}
	s := string(b)
	i := strings.LastIndexByte(s, ')')
	if i < 0 || i+1 >= len(s) {
		return procStat{}, fmt.Errorf("malformed stat for pid %d", pid)
	}
	fields := strings.Fields(s[i+1:])
	if len(fields) < 18 {
		return procStat{}, fmt.Errorf("short stat for pid %d", pid)
	}
	return procStat{
		state:      fields[0][0],
		ppid:       int(parseUint(fields[1])),
		numThreads: float64(parseUint(fields[17])),
	}, nil
}

// readCtxSwitches reads the context switch totals from /proc/<pid>/status.
func readCtxSwitches(pid int) (vol, nonvol float64, err error) {
	b, err := procReadFile(filepath.Join(procRoot, strconv.Itoa(pid), "status"))
	if err != nil {
		return 0, 0, err
	}
	for _, line := range strings.Split(string(b), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "voluntary_ctxt_switches:":
			vol = float64(parseUint(fields[1]))
		case "nonvoluntary_ctxt_switches:":
			nonvol = float64(parseUint(fields[1]))
		}
	}
	return vol, nonvol, nil
}

// treePids walks the ppid graph breadth-first from root. The listing is a
// point-in-time view: pids that exit mid-walk simply drop out.
func treePids(root int) []int {
	pids, err := procListPids()
	if err != nil {
		return []int{root}
	}
	children := make(map[int][]int)
	for _, pid := range pids {
		st, err := readProcStat(pid)
		if err != nil {
			continue
		}
		children[st.ppid] = append(children[st.ppid], pid)
	}

	out := make([]int, 0, 8)
	queue := []int{root}
	seen := map[int]bool{root: true}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		out = append(out, pid)
		for _, c := range children[pid] {
			if !seen[c] {
				seen[c] = true
				queue = append(queue, c)
			}
		}
	}
	return out
}

func listProcPids() ([]int, error) {
	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return nil, err
	}
	pids := make([]int, 0, len(entries))
	for _, e := range entries {
		if pid, err := strconv.Atoi(e.Name()); err == nil {
			pids = append(pids, pid)
		}
	}
	return pids, nil
}

func parseUint(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}
