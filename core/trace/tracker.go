package trace

import (
	"sort"

	"schedbench/core/models"
)

// WorkerRecord accumulates the lifecycle of one observed process within a
// run. A record is complete once CompletionTime is set; records without it
// are censored (the trace window closed while the process was still live).
type WorkerRecord struct {
	PID            int
	ArrivalTime    float64
	FirstCPUTime   *float64
	CompletionTime *float64
	TotalCPUTime   float64
	ScheduledInAt  *float64
}

// Complete reports whether an exit was observed for this record.
func (w *WorkerRecord) Complete() bool { return w.CompletionTime != nil }

// Tracker reduces a stream of trace events into per-pid worker records.
//
// Each switch line carries two facts: the subject pid leaves the CPU
// (closing its open slice) and the incoming pid takes it (opening a new
// one). Treating the line as both keeps CPU-time accounting exact without
// double counting or leaking open slices past the trace boundary.
type Tracker struct {
	// ForkOnly restricts record creation to explicitly forked children.
	// The default (lazy) mode creates a record for any pid sighted as a
	// switch or exit subject, or as a switch-in target, so processes that
	// pre-exist the trace window are still accounted.
	forkOnly bool

	records map[int]*WorkerRecord

	haveSpan bool
	firstTS  float64
	lastTS   float64
}

// NewTracker returns a tracker using lazy record creation. Pass forkOnly
// to restrict creation to fork-observed children for strict comparability.
func NewTracker(forkOnly bool) *Tracker {
	return &Tracker{
		forkOnly: forkOnly,
		records:  make(map[int]*WorkerRecord),
	}
}

// Apply folds one event into the tracker state.
func (t *Tracker) Apply(ev Event) {
	t.observe(ev.Timestamp)

	switch ev.Kind {
	case KindFork:
		if ev.ChildPID >= 0 {
			t.ensure(ev.ChildPID, ev.Timestamp)
		}

	case KindExit:
		rec := t.subject(ev.PID, ev.Timestamp)
		// First exit wins; a pid is assumed not reused within one run.
		if rec != nil && rec.CompletionTime == nil {
			ts := ev.Timestamp
			rec.CompletionTime = &ts
		}

	case KindSwitch:
		// The subject is preempted: close its open slice, if any.
		if rec := t.subject(ev.PID, ev.Timestamp); rec != nil && rec.ScheduledInAt != nil {
			rec.TotalCPUTime += ev.Timestamp - *rec.ScheduledInAt
			rec.ScheduledInAt = nil
		}
		// The incoming pid is scheduled in.
		if ev.NextPID >= 0 {
			var next *WorkerRecord
			if t.forkOnly {
				next = t.records[ev.NextPID]
			} else {
				next = t.ensure(ev.NextPID, ev.Timestamp)
			}
			if next != nil {
				if next.FirstCPUTime == nil {
					ts := ev.Timestamp
					next.FirstCPUTime = &ts
				}
				ts := ev.Timestamp
				next.ScheduledInAt = &ts
			}
		}

	case KindOther:
		// Only the observed span moves; no lifecycle effect.
	}
}

// Finalize closes every slice still open at run end, charging the interval
// up to end, and returns the record map. Calling it again with the same end
// is a no-op: closed slices are never re-counted.
func (t *Tracker) Finalize(end float64) map[int]*WorkerRecord {
	for _, rec := range t.records {
		if rec.ScheduledInAt != nil {
			rec.TotalCPUTime += end - *rec.ScheduledInAt
			rec.ScheduledInAt = nil
		}
	}
	return t.records
}

// Records returns the current record map without finalizing.
func (t *Tracker) Records() map[int]*WorkerRecord { return t.records }

// Span returns the smallest and largest timestamp seen across all parsed
// events. ok is false when no event has been applied.
func (t *Tracker) Span() (start, end float64, ok bool) {
	return t.firstTS, t.lastTS, t.haveSpan
}

// Dump renders the per-pid debug rows, sorted by pid.
func (t *Tracker) Dump() []models.WorkerDump {
	pids := make([]int, 0, len(t.records))
	for pid := range t.records {
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	rows := make([]models.WorkerDump, 0, len(pids))
	for _, pid := range pids {
		rec := t.records[pid]
		row := models.WorkerDump{
			PID:          rec.PID,
			Arrival:      rec.ArrivalTime,
			FirstCPU:     rec.FirstCPUTime,
			Completion:   rec.CompletionTime,
			TotalCPUTime: rec.TotalCPUTime,
		}
		if rec.CompletionTime != nil {
			tat := *rec.CompletionTime - rec.ArrivalTime
			row.Turnaround = &tat
		}
		if rec.FirstCPUTime != nil {
			rt := *rec.FirstCPUTime - rec.ArrivalTime
			row.Response = &rt
		}
		rows = append(rows, row)
	}
	return rows
}

// subject resolves the record for an event's subject pid. In lazy mode the
// sighting itself creates the record; in fork-only mode unknown subjects
// stay untracked.
func (t *Tracker) subject(pid int, ts float64) *WorkerRecord {
	if t.forkOnly {
		return t.records[pid]
	}
	return t.ensure(pid, ts)
}

func (t *Tracker) ensure(pid int, ts float64) *WorkerRecord {
	if rec, ok := t.records[pid]; ok {
		return rec
	}
	rec := &WorkerRecord{PID: pid, ArrivalTime: ts}
	t.records[pid] = rec
	return rec
}

func (t *Tracker) observe(ts float64) {
	if !t.haveSpan {
		t.firstTS, t.lastTS = ts, ts
		t.haveSpan = true
		return
	}
	if ts < t.firstTS {
		t.firstTS = ts
	}
	if ts > t.lastTS {
		t.lastTS = ts
	}
}
