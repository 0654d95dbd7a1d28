package models

import (
	"sort"
	"strconv"
	"time"
)

// ResultRow is the flat record produced for one completed run: identity,
// request parameters, and every derived metric keyed by column name.
type ResultRow struct {
	ExperimentID string
	Policy       string
	Request      Request
	Metrics      map[string]float64
	RecordedAt   time.Time
}

// MetricKeys returns the metric column names in sorted order.
func (r *ResultRow) MetricKeys() []string {
	keys := make([]string, 0, len(r.Metrics))
	for k := range r.Metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flatten renders the full row as string columns for CSV export.
// Identity and request columns come first, then metrics in sorted order.
func (r *ResultRow) Flatten() map[string]string {
	out := map[string]string{
		"exp_id":                  r.ExperimentID,
		"policy":                  r.Policy,
		"profile":                 r.Request.Profile,
		"cpu_workers":             strconv.Itoa(r.Request.CPUWorkers),
		"cpu_method":              r.Request.CPUMethod,
		"io_workers":              strconv.Itoa(r.Request.IOWorkers),
		"memory_load_gb":          strconv.Itoa(r.Request.MemoryLoadGB),
		"vm_workers":              strconv.Itoa(r.Request.VMWorkers),
		"duration_seconds":        formatFloat(r.Request.DurationSeconds),
		"sample_interval_seconds": formatFloat(r.Request.SampleIntervalSeconds),
	}
	for k, v := range r.Metrics {
		out[k] = formatFloat(v)
	}
	return out
}

// IdentityColumns lists the non-metric column names in export order.
func IdentityColumns() []string {
	return []string{
		"exp_id", "policy", "profile",
		"cpu_workers", "cpu_method", "io_workers",
		"memory_load_gb", "vm_workers",
		"duration_seconds", "sample_interval_seconds",
	}
}

// WorkerDump is one row of the per-process debug dump for a run.
// Turnaround and Response are nil when the record never completed or
// never ran, respectively.
type WorkerDump struct {
	PID          int      `json:"pid"`
	Arrival      float64  `json:"arrival"`
	FirstCPU     *float64 `json:"first_cpu,omitempty"`
	Completion   *float64 `json:"completion,omitempty"`
	Turnaround   *float64 `json:"turnaround,omitempty"`
	Response     *float64 `json:"response,omitempty"`
	TotalCPUTime float64  `json:"total_cpu_time"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
