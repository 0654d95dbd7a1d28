// Package dataset assembles policy-switch training data from completed
// experiment results. Each workload configuration measured under several
// policies yields one differential-cost row per ordered policy pair.
package dataset

import (
	"sort"

	"schedbench/core/models"
)

// Weights balance the cost scalar's three components.
type Weights struct {
	Turnaround float64
	Response   float64
	Fairness   float64
}

// DefaultWeights weigh all components equally.
func DefaultWeights() Weights {
	return Weights{Turnaround: 1, Response: 1, Fairness: 1}
}

// Cost collapses a result row's trace metrics into one scalar; lower is
// better.
func Cost(metrics map[string]float64, w Weights) float64 {
	return w.Turnaround*metrics["average_turnaround_time"] +
		w.Response*metrics["average_response_time"] +
		w.Fairness*metrics["cv_fairness"]
}

// DefaultFeatureKeys is the window-derived feature set attached to each
// training row for both the current and the target run.
var DefaultFeatureKeys = []string{
	"cpu_percent_avg",
	"run_queue_avg",
	"nvcsw_total_delta",
	"vcsw_total_delta",
	"io_read_total_delta",
	"io_write_total_delta",
	"swap_in_total_delta",
	"swap_out_total_delta",
}

// TrainingRow is one policy-switch sample: the cost difference of moving
// a workload from CurrentPolicy to TargetPolicy, with the system features
// observed under each.
type TrainingRow struct {
	ConfigKey        string             `json:"config_key"`
	CurrentPolicy    string             `json:"current_policy"`
	TargetPolicy     string             `json:"target_policy"`
	DifferentialCost float64            `json:"differential_cost"`
	CurrentFeatures  map[string]float64 `json:"current_features"`
	TargetFeatures   map[string]float64 `json:"target_features"`
}

// PolicyRanking lists the measured cost of every policy for one workload
// configuration.
type PolicyRanking struct {
	ConfigKey string             `json:"config_key"`
	Best      string             `json:"best_policy"`
	Costs     map[string]float64 `json:"costs"`
}

// Builder turns result rows into training data.
type Builder struct {
	weights     Weights
	featureKeys []string
}

// NewBuilder creates a builder. Nil featureKeys selects the default set.
func NewBuilder(w Weights, featureKeys []string) *Builder {
	if featureKeys == nil {
		featureKeys = DefaultFeatureKeys
	}
	return &Builder{weights: w, featureKeys: featureKeys}
}

// FeatureKeys returns the feature set the builder attaches to rows.
func (b *Builder) FeatureKeys() []string { return b.featureKeys }

// latest maps configKey -> policy -> most recent result row. Input rows
// arrive oldest first, so plain overwrite keeps the latest run of any
// repeated (config, policy) pair.
func (b *Builder) latest(rows []*models.ResultRow) map[string]map[string]*models.ResultRow {
	byConfig := make(map[string]map[string]*models.ResultRow)
	for _, row := range rows {
		key := row.Request.ConfigKey()
		if byConfig[key] == nil {
			byConfig[key] = make(map[string]*models.ResultRow)
		}
		byConfig[key][row.Policy] = row
	}
	return byConfig
}

// Build emits one row per ordered policy pair within each configuration
// measured under at least two policies. DifferentialCost is the target
// policy's cost minus the current policy's: negative means switching
// helps.
func (b *Builder) Build(rows []*models.ResultRow) []TrainingRow {
	byConfig := b.latest(rows)

	configs := make([]string, 0, len(byConfig))
	for key := range byConfig {
		configs = append(configs, key)
	}
	sort.Strings(configs)

	var out []TrainingRow
	for _, key := range configs {
		runs := byConfig[key]
		if len(runs) < 2 {
			continue
		}
		policies := make([]string, 0, len(runs))
		for p := range runs {
			policies = append(policies, p)
		}
		sort.Strings(policies)

		for _, cur := range policies {
			for _, tgt := range policies {
				if cur == tgt {
					continue
				}
				out = append(out, TrainingRow{
					ConfigKey:        key,
					CurrentPolicy:    cur,
					TargetPolicy:     tgt,
					DifferentialCost: Cost(runs[tgt].Metrics, b.weights) - Cost(runs[cur].Metrics, b.weights),
					CurrentFeatures:  b.features(runs[cur].Metrics),
					TargetFeatures:   b.features(runs[tgt].Metrics),
				})
			}
		}
	}
	return out
}

// RankPolicies computes per-configuration policy costs and the cheapest
// policy. Ties break toward the lexicographically smaller name so the
// ranking is stable.
func (b *Builder) RankPolicies(rows []*models.ResultRow) []PolicyRanking {
	byConfig := b.latest(rows)

	configs := make([]string, 0, len(byConfig))
	for key := range byConfig {
		configs = append(configs, key)
	}
	sort.Strings(configs)

	out := make([]PolicyRanking, 0, len(configs))
	for _, key := range configs {
		ranking := PolicyRanking{ConfigKey: key, Costs: make(map[string]float64)}
		policies := make([]string, 0, len(byConfig[key]))
		for p := range byConfig[key] {
			policies = append(policies, p)
		}
		sort.Strings(policies)

		best := ""
		bestCost := 0.0
		for _, p := range policies {
			cost := Cost(byConfig[key][p].Metrics, b.weights)
			ranking.Costs[p] = cost
			if best == "" || cost < bestCost {
				best, bestCost = p, cost
			}
		}
		ranking.Best = best
		out = append(out, ranking)
	}
	return out
}

// features extracts the configured feature keys; absent keys read as
// zero so a row missing window data still trains.
func (b *Builder) features(metrics map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(b.featureKeys))
	for _, key := range b.featureKeys {
		out[key] = metrics[key]
	}
	return out
}
