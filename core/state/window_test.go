package state

import (
	"testing"
	"time"
)

func TestNewWindowCapacity(t *testing.T) {
	cases := []struct {
		name     string
		duration time.Duration
		interval time.Duration
		want     int
	}{
		{"even", 10 * time.Second, 2 * time.Second, 5},
		{"floor", 10 * time.Second, 3 * time.Second, 3},
		{"interval exceeds duration", time.Second, 2 * time.Second, 1},
		{"equal", 10 * time.Second, 10 * time.Second, 1},
		{"zero interval", 10 * time.Second, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NewWindow(tc.duration, tc.interval).Capacity(); got != tc.want {
				t.Errorf("Capacity() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestWindowEviction(t *testing.T) {
	w := NewWindow(3*time.Second, time.Second)
	for i := 1; i <= 5; i++ {
		w.Push(Snapshot{CPUPercent: float64(i) * 10})
	}
	if w.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", w.Len())
	}
	// Only the last three observations (30, 40, 50) survive.
	m := w.Reduce()
	if got := m["cpu_percent_avg"]; !approxEq(got, 40) {
		t.Errorf("cpu_percent_avg = %v, want 40", got)
	}
	if got := m["cpu_percent_delta"]; !approxEq(got, 20) {
		t.Errorf("cpu_percent_delta = %v, want 20", got)
	}
}

func TestReduceEmptyWindow(t *testing.T) {
	m := NewWindow(10*time.Second, time.Second).Reduce()
	if m == nil {
		t.Fatal("Reduce() = nil, want empty map")
	}
	if len(m) != 0 {
		t.Errorf("Reduce() has %d keys, want 0", len(m))
	}
}

func TestReduceKeyShapes(t *testing.T) {
	w := NewWindow(4*time.Second, time.Second)
	w.Push(Snapshot{CPUPercent: 10, IOReadTotal: 100})
	w.Push(Snapshot{CPUPercent: 20, IOReadTotal: 150})
	w.Push(Snapshot{CPUPercent: 30, IOReadTotal: 250})
	m := w.Reduce()

	// 14 averaged fields emit three keys each, 6 cumulative emit two.
	if want := 14*3 + 6*2; len(m) != want {
		t.Fatalf("Reduce() has %d keys, want %d", len(m), want)
	}
	if got := m["cpu_percent_avg"]; !approxEq(got, 20) {
		t.Errorf("cpu_percent_avg = %v, want 20", got)
	}
	if got := m["cpu_percent_delta"]; !approxEq(got, 20) {
		t.Errorf("cpu_percent_delta = %v, want 20", got)
	}
	if got := m["cpu_percent_pct_change"]; !approxEq(got, 200) {
		t.Errorf("cpu_percent_pct_change = %v, want 200", got)
	}
	if _, exists := m["io_read_total_avg"]; exists {
		t.Error("cumulative field emitted an _avg key")
	}
	if got := m["io_read_total_delta"]; !approxEq(got, 150) {
		t.Errorf("io_read_total_delta = %v, want 150", got)
	}
	if got := m["io_read_total_pct_change"]; !approxEq(got, 150) {
		t.Errorf("io_read_total_pct_change = %v, want 150", got)
	}
}

func TestReduceZeroBaseline(t *testing.T) {
	w := NewWindow(2*time.Second, time.Second)
	w.Push(Snapshot{SwapInTotal: 0})
	w.Push(Snapshot{SwapInTotal: 500})
	m := w.Reduce()
	if got := m["swap_in_total_pct_change"]; got != 0 {
		t.Errorf("pct_change with zero baseline = %v, want 0", got)
	}
	if got := m["swap_in_total_delta"]; !approxEq(got, 500) {
		t.Errorf("swap_in_total_delta = %v, want 500", got)
	}
}

func TestReduceSingleSnapshot(t *testing.T) {
	w := NewWindow(5*time.Second, time.Second)
	w.Push(Snapshot{CPUPercent: 42, IOWriteTotal: 7})
	m := w.Reduce()
	if got := m["cpu_percent_avg"]; !approxEq(got, 42) {
		t.Errorf("cpu_percent_avg = %v, want 42", got)
	}
	if got := m["cpu_percent_delta"]; got != 0 {
		t.Errorf("cpu_percent_delta = %v, want 0", got)
	}
	if got := m["io_write_total_pct_change"]; got != 0 {
		t.Errorf("io_write_total_pct_change = %v, want 0", got)
	}
}
