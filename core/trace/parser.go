package trace

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// EventKind classifies a parsed trace line
type EventKind int

const (
	// KindFork is a sched_process_fork event; ChildPID carries the new pid
	KindFork EventKind = iota
	// KindExit is a sched_process_exit event for the subject pid
	KindExit
	// KindSwitch is a sched_switch event; NextPID carries the incoming pid
	KindSwitch
	// KindOther is a well-formed line whose body matches no known event.
	// Consumers treat it as a no-op for lifecycle purposes.
	KindOther
)

// Event is one parsed line of a rendered scheduling trace
type Event struct {
	Command   string
	PID       int
	CPU       int
	Timestamp float64
	Kind      EventKind
	ChildPID  int // fork only; -1 when the line carried no child_pid field
	NextPID   int // switch only; -1 when no incoming pid could be extracted
	Raw       string
}

// Line shape produced by `perf script`:
//
//	<command> <pid> [<cpu>] <timestamp>: <body>
var (
	linePattern     = regexp.MustCompile(`^\s*([\w\-]+)\s+(\d+)\s+\[(\d+)\]\s+(\d+\.\d+):\s+(.*)$`)
	childPidPattern = regexp.MustCompile(`child_pid=(\d+)`)
	nextPidPattern  = regexp.MustCompile(`==>\s+[\w\-]+:(\d+)\s`)
)

// ParseLine converts one trace line into an Event. Lines that do not match
// the expected shape are discarded: the second return is false and no error
// is ever produced, whatever the input.
func ParseLine(line string) (Event, bool) {
	m := linePattern.FindStringSubmatch(line)
	if m == nil {
		return Event{}, false
	}

	pid, err := strconv.Atoi(m[2])
	if err != nil {
		return Event{}, false
	}
	cpu, err := strconv.Atoi(m[3])
	if err != nil {
		return Event{}, false
	}
	ts, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return Event{}, false
	}

	ev := Event{
		Command:   m[1],
		PID:       pid,
		CPU:       cpu,
		Timestamp: ts,
		ChildPID:  -1,
		NextPID:   -1,
		Raw:       line,
	}

	body := m[5]
	switch {
	case strings.Contains(body, "sched_process_fork"):
		ev.Kind = KindFork
		if cm := childPidPattern.FindStringSubmatch(body); cm != nil {
			if child, err := strconv.Atoi(cm[1]); err == nil {
				ev.ChildPID = child
			}
		}
	case strings.Contains(body, "sched_process_exit"):
		ev.Kind = KindExit
	case strings.Contains(body, "sched_switch"):
		ev.Kind = KindSwitch
		if nm := nextPidPattern.FindStringSubmatch(body); nm != nil {
			if next, err := strconv.Atoi(nm[1]); err == nil {
				ev.NextPID = next
			}
		}
	default:
		ev.Kind = KindOther
	}

	return ev, true
}

// ScanReader parses r line by line, invoking apply for every recognized
// event. Unrecognized lines are skipped silently. The only possible error
// is a read failure from the underlying stream.
func ScanReader(r io.Reader, apply func(Event)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ev, ok := ParseLine(scanner.Text()); ok {
			apply(ev)
		}
	}
	return scanner.Err()
}

// ScanFile parses the trace log at path, invoking apply per event.
// A missing file is reported to the caller unchanged so it can degrade
// to an empty result rather than fail the run.
func ScanFile(path string, apply func(Event)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ScanReader(f, apply)
}
