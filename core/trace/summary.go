package trace

import "math"

// Summary holds the aggregate metrics for one finalized run.
// Averages cover only complete records; censored workers contribute CPU
// time to the per-pid dump but are excluded from every average here.
type Summary struct {
	AverageTurnaround float64
	AverageResponse   float64
	AverageCPUTime    float64
	TotalDuration     float64
	CVFairness        float64

	CompleteWorkers int
	CensoredWorkers int
}

// Metrics renders the summary under its flat result-row keys.
func (s Summary) Metrics() map[string]float64 {
	return map[string]float64{
		"average_turnaround_time": s.AverageTurnaround,
		"average_response_time":   s.AverageResponse,
		"average_cpu_time":        s.AverageCPUTime,
		"total_duration":          s.TotalDuration,
		"cv_fairness":             s.CVFairness,
	}
}

// Summarize computes run-level metrics from finalized records and the
// observed run span. Degenerate inputs (no records, no complete records)
// yield zero values rather than errors: an empty trace is a reportable
// outcome, not a failure.
func Summarize(records map[int]*WorkerRecord, spanStart, spanEnd float64, haveSpan bool) Summary {
	var s Summary
	if haveSpan {
		s.TotalDuration = spanEnd - spanStart
	}

	var (
		tatSum, tatN float64
		rtSum, rtN   float64
		cpuTimes     []float64
	)
	for _, rec := range records {
		if !rec.Complete() {
			s.CensoredWorkers++
			continue
		}
		s.CompleteWorkers++
		tatSum += *rec.CompletionTime - rec.ArrivalTime
		tatN++
		if rec.FirstCPUTime != nil {
			rtSum += *rec.FirstCPUTime - rec.ArrivalTime
			rtN++
		}
		cpuTimes = append(cpuTimes, rec.TotalCPUTime)
	}

	if tatN > 0 {
		s.AverageTurnaround = tatSum / tatN
	}
	if rtN > 0 {
		s.AverageResponse = rtSum / rtN
	}
	if len(cpuTimes) > 0 {
		var cpuSum float64
		for _, v := range cpuTimes {
			cpuSum += v
		}
		mean := cpuSum / float64(len(cpuTimes))
		s.AverageCPUTime = mean
		if mean != 0 {
			var varSum float64
			for _, v := range cpuTimes {
				d := v - mean
				varSum += d * d
			}
			s.CVFairness = math.Sqrt(varSum/float64(len(cpuTimes))) / mean
		}
	}
	return s
}
