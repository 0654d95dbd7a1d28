package trace

import (
	"strings"
	"testing"
)

func TestParseLineFields(t *testing.T) {
	line := "  stress-ng  1234 [002]  5.123456: sched:sched_switch: stress-ng:1234 [120] R ==> stress-ng:5678 [120]"
	ev, ok := ParseLine(line)
	if !ok {
		t.Fatalf("ParseLine(%q) ok = false, want true", line)
	}
	if ev.Command != "stress-ng" {
		t.Errorf("Command = %q, want %q", ev.Command, "stress-ng")
	}
	if ev.PID != 1234 {
		t.Errorf("PID = %d, want 1234", ev.PID)
	}
	if ev.CPU != 2 {
		t.Errorf("CPU = %d, want 2", ev.CPU)
	}
	if ev.Timestamp != 5.123456 {
		t.Errorf("Timestamp = %v, want 5.123456", ev.Timestamp)
	}
	if ev.Kind != KindSwitch {
		t.Errorf("Kind = %v, want %v", ev.Kind, KindSwitch)
	}
	if ev.NextPID != 5678 {
		t.Errorf("NextPID = %d, want 5678", ev.NextPID)
	}
	if ev.ChildPID != -1 {
		t.Errorf("ChildPID = %d, want -1", ev.ChildPID)
	}
}

func TestParseLineKinds(t *testing.T) {
	cases := []struct {
		name     string
		line     string
		kind     EventKind
		childPID int
		nextPID  int
	}{
		{
			name:     "fork",
			line:     "stress-ng  1000 [001]  1.000000: sched:sched_process_fork: comm=stress-ng pid=1000 child_comm=stress-ng child_pid=1001",
			kind:     KindFork,
			childPID: 1001,
			nextPID:  -1,
		},
		{
			name:     "exit",
			line:     "stress-ng  1001 [001]  6.000000: sched:sched_process_exit: comm=stress-ng pid=1001 prio=120",
			kind:     KindExit,
			childPID: -1,
			nextPID:  -1,
		},
		{
			name:     "switch",
			line:     "swapper     0 [000]  2.500000: sched:sched_switch: swapper:0 [120] R ==> stress-ng:1001 [120]",
			kind:     KindSwitch,
			childPID: -1,
			nextPID:  1001,
		},
		{
			name:     "other",
			line:     "stress-ng  1001 [003]  3.000000: sched:sched_wakeup: comm=stress-ng pid=1002 prio=120",
			kind:     KindOther,
			childPID: -1,
			nextPID:  -1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, ok := ParseLine(tc.line)
			if !ok {
				t.Fatalf("ParseLine ok = false, want true")
			}
			if ev.Kind != tc.kind {
				t.Errorf("Kind = %v, want %v", ev.Kind, tc.kind)
			}
			if ev.ChildPID != tc.childPID {
				t.Errorf("ChildPID = %d, want %d", ev.ChildPID, tc.childPID)
			}
			if ev.NextPID != tc.nextPID {
				t.Errorf("NextPID = %d, want %d", ev.NextPID, tc.nextPID)
			}
		})
	}
}

// Malformed lines are skipped, never fatal: the parser must accept any
// input line and simply report whether it matched.
func TestParseLineRejectsMalformed(t *testing.T) {
	lines := []string{
		"",
		"# comment from perf script",
		"no pid here [000] 1.5: body",
		"stress-ng abc [001] 1.000000: sched:sched_switch: x",
		"stress-ng 100 [001] 12345: missing fractional timestamp",
		"  \t  ",
	}
	for _, line := range lines {
		if _, ok := ParseLine(line); ok {
			t.Errorf("ParseLine(%q) ok = true, want false", line)
		}
	}
}

func TestParseLineSwitchWithoutNextPID(t *testing.T) {
	// Body says sched_switch but the arrow tail is garbled; the event is
	// still a switch, with no incoming pid.
	line := "stress-ng  1234 [002]  5.000000: sched:sched_switch: truncated ==> ???"
	ev, ok := ParseLine(line)
	if !ok {
		t.Fatalf("ParseLine ok = false, want true")
	}
	if ev.Kind != KindSwitch {
		t.Fatalf("Kind = %v, want %v", ev.Kind, KindSwitch)
	}
	if ev.NextPID != -1 {
		t.Errorf("NextPID = %d, want -1", ev.NextPID)
	}
}

func TestScanReader(t *testing.T) {
	input := strings.Join([]string{
		"stress-ng  1000 [001]  1.000000: sched:sched_process_fork: child_pid=1001",
		"not a trace line",
		"stress-ng  1001 [001]  6.000000: sched:sched_process_exit: comm=stress-ng",
	}, "\n")

	var got []Event
	if err := ScanReader(strings.NewReader(input), func(ev Event) {
		got = append(got, ev)
	}); err != nil {
		t.Fatalf("ScanReader: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("parsed %d events, want 2", len(got))
	}
	if got[0].Kind != KindFork || got[1].Kind != KindExit {
		t.Errorf("kinds = %v, %v, want fork, exit", got[0].Kind, got[1].Kind)
	}
}
