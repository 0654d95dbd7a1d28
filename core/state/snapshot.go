// Package state samples OS-level counters into a sliding window and
// reduces the window into the flat feature map merged into result rows.
package state

import "time"

// FieldClass tells the window how to reduce a snapshot field.
type FieldClass int

const (
	// ClassAveraged fields are instantaneous gauges: the reduction emits
	// their window mean alongside delta and percent change.
	ClassAveraged FieldClass = iota
	// ClassCumulative fields are monotonic counters: averaging them is
	// meaningless, so the reduction emits only delta and percent change.
	ClassCumulative
)

// Snapshot is one observation of system and target-tree state. Memory
// fields are bytes; swap traffic is bytes since boot; disk traffic is
// bytes since boot; context switch totals cover the target process tree.
type Snapshot struct {
	TakenAt time.Time

	CPUPercent       float64
	CPUUserPercent   float64
	IOWaitPercent    float64
	IRQPercent       float64
	SoftIRQPercent   float64
	RunQueue         float64
	ActiveThreads    float64
	BlockedThreads   float64
	IOBlockedThreads float64
	MemUsed          float64
	MemAvailable     float64
	SwapUsed         float64
	CacheMem         float64
	BuffersMem       float64

	SwapInTotal  float64
	SwapOutTotal float64
	IOReadTotal  float64
	IOWriteTotal float64
	NVCSwTotal   float64
	VCSwTotal    float64
}

// Field binds a flat-map name to its reduction class and accessor.
type Field struct {
	Name  string
	Class FieldClass
	Value func(*Snapshot) float64
}

var schema = []Field{
	{"cpu_percent", ClassAveraged, func(s *Snapshot) float64 { return s.CPUPercent }},
	{"cpu_user_percent", ClassAveraged, func(s *Snapshot) float64 { return s.CPUUserPercent }},
	{"iowait_percent", ClassAveraged, func(s *Snapshot) float64 { return s.IOWaitPercent }},
	{"irq_percent", ClassAveraged, func(s *Snapshot) float64 { return s.IRQPercent }},
	{"softirq_percent", ClassAveraged, func(s *Snapshot) float64 { return s.SoftIRQPercent }},
	{"run_queue", ClassAveraged, func(s *Snapshot) float64 { return s.RunQueue }},
	{"active_threads", ClassAveraged, func(s *Snapshot) float64 { return s.ActiveThreads }},
	{"blocked_threads", ClassAveraged, func(s *Snapshot) float64 { return s.BlockedThreads }},
	{"io_blocked_threads", ClassAveraged, func(s *Snapshot) float64 { return s.IOBlockedThreads }},
	{"mem_used", ClassAveraged, func(s *Snapshot) float64 { return s.MemUsed }},
	{"mem_available", ClassAveraged, func(s *Snapshot) float64 { return s.MemAvailable }},
	{"swap_used", ClassAveraged, func(s *Snapshot) float64 { return s.SwapUsed }},
	{"cache_mem", ClassAveraged, func(s *Snapshot) float64 { return s.CacheMem }},
	{"buffers_mem", ClassAveraged, func(s *Snapshot) float64 { return s.BuffersMem }},

	{"swap_in_total", ClassCumulative, func(s *Snapshot) float64 { return s.SwapInTotal }},
	{"swap_out_total", ClassCumulative, func(s *Snapshot) float64 { return s.SwapOutTotal }},
	{"io_read_total", ClassCumulative, func(s *Snapshot) float64 { return s.IOReadTotal }},
	{"io_write_total", ClassCumulative, func(s *Snapshot) float64 { return s.IOWriteTotal }},
	{"nvcsw_total", ClassCumulative, func(s *Snapshot) float64 { return s.NVCSwTotal }},
	{"vcsw_total", ClassCumulative, func(s *Snapshot) float64 { return s.VCSwTotal }},
}

func init() {
	seen := make(map[string]bool, len(schema))
	for _, f := range schema {
		if f.Name == "" || seen[f.Name] {
			panic("state: duplicate or empty schema field " + f.Name)
		}
		seen[f.Name] = true
	}
}

// Schema returns the full field table in emission order.
func Schema() []Field { return schema }
