package dataset

import (
	"math"
	"testing"
	"time"

	"schedbench/core/models"
)

func resultRow(policy string, cpu int, metrics map[string]float64, at time.Time) *models.ResultRow {
	return &models.ResultRow{
		ExperimentID: policy + "-exp",
		Policy:       policy,
		Request: models.Request{
			PolicyName:      policy,
			CPUWorkers:      cpu,
			DurationSeconds: 30,
		},
		Metrics:    metrics,
		RecordedAt: at,
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCost(t *testing.T) {
	metrics := map[string]float64{
		"average_turnaround_time": 4.0,
		"average_response_time":   1.0,
		"cv_fairness":             0.5,
	}
	if got := Cost(metrics, DefaultWeights()); !approx(got, 5.5) {
		t.Errorf("Cost = %v, want 5.5", got)
	}
	weighted := Weights{Turnaround: 2, Response: 0, Fairness: 10}
	if got := Cost(metrics, weighted); !approx(got, 13.0) {
		t.Errorf("weighted Cost = %v, want 13.0", got)
	}
	if got := Cost(map[string]float64{}, DefaultWeights()); got != 0 {
		t.Errorf("Cost on empty metrics = %v, want 0", got)
	}
}

func TestBuildPairsPerConfig(t *testing.T) {
	base := time.Now()
	rows := []*models.ResultRow{
		resultRow("CFS", 4, map[string]float64{
			"average_turnaround_time": 5,
			"cpu_percent_avg":         80,
		}, base),
		resultRow("bpfland", 4, map[string]float64{
			"average_turnaround_time": 3,
			"cpu_percent_avg":         60,
		}, base.Add(time.Minute)),
	}

	b := NewBuilder(DefaultWeights(), nil)
	got := b.Build(rows)
	if len(got) != 2 {
		t.Fatalf("Build produced %d rows, want 2", len(got))
	}

	// Sorted policies: CFS before bpfland (capitals sort first).
	first := got[0]
	if first.CurrentPolicy != "CFS" || first.TargetPolicy != "bpfland" {
		t.Fatalf("first pair = %s -> %s, want CFS -> bpfland", first.CurrentPolicy, first.TargetPolicy)
	}
	if !approx(first.DifferentialCost, -2) {
		t.Errorf("DifferentialCost = %v, want -2", first.DifferentialCost)
	}
	if !approx(first.CurrentFeatures["cpu_percent_avg"], 80) {
		t.Errorf("CurrentFeatures[cpu_percent_avg] = %v, want 80", first.CurrentFeatures["cpu_percent_avg"])
	}
	if !approx(first.TargetFeatures["cpu_percent_avg"], 60) {
		t.Errorf("TargetFeatures[cpu_percent_avg] = %v, want 60", first.TargetFeatures["cpu_percent_avg"])
	}

	second := got[1]
	if second.CurrentPolicy != "bpfland" || second.TargetPolicy != "CFS" {
		t.Fatalf("second pair = %s -> %s, want bpfland -> CFS", second.CurrentPolicy, second.TargetPolicy)
	}
	if !approx(second.DifferentialCost, 2) {
		t.Errorf("reverse DifferentialCost = %v, want 2", second.DifferentialCost)
	}
}

func TestBuildSkipsSinglePolicyConfigs(t *testing.T) {
	rows := []*models.ResultRow{
		resultRow("CFS", 8, map[string]float64{"average_turnaround_time": 5}, time.Now()),
	}
	if got := NewBuilder(DefaultWeights(), nil).Build(rows); len(got) != 0 {
		t.Errorf("Build produced %d rows for single-policy config, want 0", len(got))
	}
}

func TestBuildKeepsLatestDuplicate(t *testing.T) {
	base := time.Now()
	rows := []*models.ResultRow{
		resultRow("CFS", 4, map[string]float64{"average_turnaround_time": 10}, base),
		resultRow("bpfland", 4, map[string]float64{"average_turnaround_time": 5}, base.Add(time.Minute)),
		// Re-run of the CFS config arrives later and must win.
		resultRow("CFS", 4, map[string]float64{"average_turnaround_time": 4}, base.Add(2*time.Minute)),
	}
	got := NewBuilder(DefaultWeights(), nil).Build(rows)
	if len(got) != 2 {
		t.Fatalf("Build produced %d rows, want 2", len(got))
	}
	// CFS -> bpfland: 5 - 4 = 1 using the re-run's cost.
	if !approx(got[0].DifferentialCost, 1) {
		t.Errorf("DifferentialCost = %v, want 1", got[0].DifferentialCost)
	}
}

func TestBuildThreePolicies(t *testing.T) {
	base := time.Now()
	rows := []*models.ResultRow{
		resultRow("CFS", 2, map[string]float64{"average_turnaround_time": 5}, base),
		resultRow("bpfland", 2, map[string]float64{"average_turnaround_time": 3}, base),
		resultRow("fifo", 2, map[string]float64{"average_turnaround_time": 7}, base),
	}
	got := NewBuilder(DefaultWeights(), nil).Build(rows)
	if len(got) != 6 {
		t.Fatalf("Build produced %d rows, want 6 ordered pairs", len(got))
	}
}

func TestRankPolicies(t *testing.T) {
	base := time.Now()
	rows := []*models.ResultRow{
		resultRow("CFS", 4, map[string]float64{"average_turnaround_time": 5}, base),
		resultRow("bpfland", 4, map[string]float64{"average_turnaround_time": 3}, base),
		resultRow("fifo", 4, map[string]float64{"average_turnaround_time": 7}, base),
	}
	rankings := NewBuilder(DefaultWeights(), nil).RankPolicies(rows)
	if len(rankings) != 1 {
		t.Fatalf("rankings = %d, want 1", len(rankings))
	}
	r := rankings[0]
	if r.Best != "bpfland" {
		t.Errorf("Best = %q, want bpfland", r.Best)
	}
	if !approx(r.Costs["fifo"], 7) {
		t.Errorf("Costs[fifo] = %v, want 7", r.Costs["fifo"])
	}
}

func TestRankPoliciesTieBreaksLexicographically(t *testing.T) {
	base := time.Now()
	rows := []*models.ResultRow{
		resultRow("zeta", 1, map[string]float64{"average_turnaround_time": 5}, base),
		resultRow("alpha", 1, map[string]float64{"average_turnaround_time": 5}, base),
	}
	rankings := NewBuilder(DefaultWeights(), nil).RankPolicies(rows)
	if rankings[0].Best != "alpha" {
		t.Errorf("Best = %q, want alpha on tie", rankings[0].Best)
	}
}

func TestCustomFeatureKeys(t *testing.T) {
	base := time.Now()
	rows := []*models.ResultRow{
		resultRow("CFS", 4, map[string]float64{"mem_used_avg": 100}, base),
		resultRow("fifo", 4, map[string]float64{"mem_used_avg": 200}, base),
	}
	b := NewBuilder(DefaultWeights(), []string{"mem_used_avg", "absent_key"})
	got := b.Build(rows)
	if got[0].CurrentFeatures["mem_used_avg"] != 100 {
		t.Errorf("custom feature = %v, want 100", got[0].CurrentFeatures["mem_used_avg"])
	}
	if v, ok := got[0].CurrentFeatures["absent_key"]; !ok || v != 0 {
		t.Errorf("absent feature = %v (present=%v), want 0 present", v, ok)
	}
}
