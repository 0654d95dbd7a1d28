package monitoring

import (
	"fmt"
	"sort"

	"schedbench/core/models"
	"schedbench/core/repository"
)

// QueueStats reports the live depth of the experiment queue.
type QueueStats interface {
	QueueSize() int
}

// MetricsExporter exports benchmark counters for Prometheus/Grafana,
// giving per-policy visibility into accumulated runs.
type MetricsExporter struct {
	expRepo    *repository.ExperimentRepository
	resultRepo *repository.ResultRepository
	queue      QueueStats
}

// NewMetricsExporter creates a new metrics exporter.
func NewMetricsExporter(expRepo *repository.ExperimentRepository, resultRepo *repository.ResultRepository, queue QueueStats) *MetricsExporter {
	return &MetricsExporter{
		expRepo:    expRepo,
		resultRepo: resultRepo,
		queue:      queue,
	}
}

// GetPrometheusMetrics returns metrics in Prometheus text format. Each
// section is best effort: a failed query drops its section rather than
// failing the scrape.
func (me *MetricsExporter) GetPrometheusMetrics() string {
	var metrics string

	if counts, err := me.expRepo.CountExperimentsByStatus(); err == nil {
		metrics += "# HELP schedbench_experiments_total Experiments by status\n"
		metrics += "# TYPE schedbench_experiments_total gauge\n"
		for _, status := range []models.ExperimentStatus{
			models.ExperimentStatusPending,
			models.ExperimentStatusRunning,
			models.ExperimentStatusCompleted,
			models.ExperimentStatusFailed,
		} {
			metrics += fmt.Sprintf("schedbench_experiments_total{status=\"%s\"} %d\n", status, counts[status])
		}
	}

	metrics += "# HELP schedbench_queue_depth Experiments waiting to run\n"
	metrics += "# TYPE schedbench_queue_depth gauge\n"
	metrics += fmt.Sprintf("schedbench_queue_depth %d\n", me.queue.QueueSize())

	results, err := me.resultRepo.ListResults()
	if err != nil || len(results) == 0 {
		return metrics
	}

	type policyAgg struct {
		runs       int
		turnaround float64
		response   float64
		fairness   float64
	}
	byPolicy := make(map[string]*policyAgg)
	for _, row := range results {
		agg := byPolicy[row.Policy]
		if agg == nil {
			agg = &policyAgg{}
			byPolicy[row.Policy] = agg
		}
		agg.runs++
		agg.turnaround += row.Metrics["average_turnaround_time"]
		agg.response += row.Metrics["average_response_time"]
		agg.fairness += row.Metrics["cv_fairness"]
	}

	policies := make([]string, 0, len(byPolicy))
	for p := range byPolicy {
		policies = append(policies, p)
	}
	sort.Strings(policies)

	metrics += "# HELP schedbench_policy_runs_total Measured runs per policy\n"
	metrics += "# TYPE schedbench_policy_runs_total counter\n"
	for _, p := range policies {
		metrics += fmt.Sprintf("schedbench_policy_runs_total{policy=\"%s\"} %d\n", p, byPolicy[p].runs)
	}

	metrics += "# HELP schedbench_policy_avg_turnaround_seconds Mean worker turnaround time per policy\n"
	metrics += "# TYPE schedbench_policy_avg_turnaround_seconds gauge\n"
	for _, p := range policies {
		agg := byPolicy[p]
		metrics += fmt.Sprintf("schedbench_policy_avg_turnaround_seconds{policy=\"%s\"} %.6f\n", p, agg.turnaround/float64(agg.runs))
	}

	metrics += "# HELP schedbench_policy_avg_response_seconds Mean worker response time per policy\n"
	metrics += "# TYPE schedbench_policy_avg_response_seconds gauge\n"
	for _, p := range policies {
		agg := byPolicy[p]
		metrics += fmt.Sprintf("schedbench_policy_avg_response_seconds{policy=\"%s\"} %.6f\n", p, agg.response/float64(agg.runs))
	}

	metrics += "# HELP schedbench_policy_cv_fairness Mean CPU-time fairness coefficient per policy\n"
	metrics += "# TYPE schedbench_policy_cv_fairness gauge\n"
	for _, p := range policies {
		agg := byPolicy[p]
		metrics += fmt.Sprintf("schedbench_policy_cv_fairness{policy=\"%s\"} %.6f\n", p, agg.fairness/float64(agg.runs))
	}

	return metrics
}
