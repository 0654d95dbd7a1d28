package state

import (
	"sync"
	"time"
)

// Window is a fixed-capacity ring of snapshots covering the trailing
// observation period. Pushing beyond capacity evicts the oldest entry.
type Window struct {
	mu    sync.Mutex
	items []Snapshot
	head  int
	count int
}

// NewWindow sizes the ring to hold duration/interval snapshots, with a
// floor of one so a ring always exists even for degenerate settings.
func NewWindow(duration, interval time.Duration) *Window {
	capacity := 1
	if interval > 0 {
		if n := int(duration / interval); n > 1 {
			capacity = n
		}
	}
	return &Window{items: make([]Snapshot, capacity)}
}

// Push appends a snapshot, evicting the oldest when the ring is full.
func (w *Window) Push(s Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.count < len(w.items) {
		w.items[(w.head+w.count)%len(w.items)] = s
		w.count++
		return
	}
	w.items[w.head] = s
	w.head = (w.head + 1) % len(w.items)
}

// Len returns the number of snapshots currently held.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Capacity returns the ring size.
func (w *Window) Capacity() int { return len(w.items) }

// Reduce flattens the window into the feature map. Averaged fields emit
// <name>_avg, <name>_delta and <name>_pct_change; cumulative fields emit
// only delta and percent change. An empty window reduces to an empty map.
func (w *Window) Reduce() map[string]float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make(map[string]float64)
	if w.count == 0 {
		return out
	}

	oldest := &w.items[w.head]
	newest := &w.items[(w.head+w.count-1)%len(w.items)]

	for _, f := range Schema() {
		delta := f.Value(newest) - f.Value(oldest)
		if f.Class == ClassAveraged {
			var sum float64
			for i := 0; i < w.count; i++ {
				sum += f.Value(&w.items[(w.head+i)%len(w.items)])
			}
			out[f.Name+"_avg"] = sum / float64(w.count)
		}
		out[f.Name+"_delta"] = delta
		out[f.Name+"_pct_change"] = pctChange(delta, f.Value(oldest))
	}
	return out
}

// pctChange guards the division: a zero baseline reports zero change
// rather than an infinity that would poison downstream training data.
func pctChange(delta, oldest float64) float64 {
	if oldest == 0 {
		return 0
	}
	return delta / oldest * 100
}
