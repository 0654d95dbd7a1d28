package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"schedbench/core/dataset"
	"schedbench/core/repository"
)

// DashboardHandler handles dashboard API requests
type DashboardHandler struct {
	expRepo    *repository.ExperimentRepository
	resultRepo *repository.ResultRepository
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(
	expRepo *repository.ExperimentRepository,
	resultRepo *repository.ResultRepository,
) *DashboardHandler {
	return &DashboardHandler{
		expRepo:    expRepo,
		resultRepo: resultRepo,
	}
}

// policyStats aggregates result metrics for one policy over a period
type policyStats struct {
	Runs          int     `json:"runs"`
	AvgTurnaround float64 `json:"avg_turnaround_time"`
	AvgResponse   float64 `json:"avg_response_time"`
	AvgCPUTime    float64 `json:"avg_cpu_time"`
	AvgFairness   float64 `json:"avg_cv_fairness"`
}

// GetPolicyComparison returns per-policy metric averages for dashboard
func (h *DashboardHandler) GetPolicyComparison(w http.ResponseWriter, r *http.Request) {
	// Get query parameters
	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")

	// Parse dates (default to last 30 days)
	var start, end time.Time
	if startDate != "" {
		var err error
		start, err = time.Parse(time.RFC3339, startDate)
		if err != nil {
			http.Error(w, "Invalid start_date format", http.StatusBadRequest)
			return
		}
	} else {
		start = time.Now().AddDate(0, 0, -30)
	}

	if endDate != "" {
		var err error
		end, err = time.Parse(time.RFC3339, endDate)
		if err != nil {
			http.Error(w, "Invalid end_date format", http.StatusBadRequest)
			return
		}
	} else {
		end = time.Now()
	}

	results, err := h.resultRepo.ListResults()
	if err != nil {
		http.Error(w, "Failed to fetch results: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Aggregate metrics per policy
	policies := make(map[string]*policyStats)
	for _, row := range results {
		// Filter by date
		if row.RecordedAt.Before(start) || row.RecordedAt.After(end) {
			continue
		}

		stats := policies[row.Policy]
		if stats == nil {
			stats = &policyStats{}
			policies[row.Policy] = stats
		}
		stats.Runs++
		stats.AvgTurnaround += row.Metrics["average_turnaround_time"]
		stats.AvgResponse += row.Metrics["average_response_time"]
		stats.AvgCPUTime += row.Metrics["average_cpu_time"]
		stats.AvgFairness += row.Metrics["cv_fairness"]
	}
	for _, stats := range policies {
		n := float64(stats.Runs)
		stats.AvgTurnaround /= n
		stats.AvgResponse /= n
		stats.AvgCPUTime /= n
		stats.AvgFairness /= n
	}

	counts, _ := h.expRepo.CountExperimentsByStatus()

	response := map[string]interface{}{
		"period": map[string]interface{}{
			"start": start.Format(time.RFC3339),
			"end":   end.Format(time.RFC3339),
		},
		"policies":    policies,
		"experiments": counts,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// GetConfigRankings returns the cheapest policy per workload configuration
func (h *DashboardHandler) GetConfigRankings(w http.ResponseWriter, r *http.Request) {
	// Parse optional cost weights
	weights := dataset.DefaultWeights()
	if param := r.URL.Query().Get("w_turnaround"); param != "" {
		fmt.Sscanf(param, "%f", &weights.Turnaround)
	}
	if param := r.URL.Query().Get("w_response"); param != "" {
		fmt.Sscanf(param, "%f", &weights.Response)
	}
	if param := r.URL.Query().Get("w_fairness"); param != "" {
		fmt.Sscanf(param, "%f", &weights.Fairness)
	}

	results, err := h.resultRepo.ListResults()
	if err != nil {
		http.Error(w, "Failed to fetch results: "+err.Error(), http.StatusInternalServerError)
		return
	}

	rankings := dataset.NewBuilder(weights, nil).RankPolicies(results)
	if rankings == nil {
		rankings = []dataset.PolicyRanking{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": rankings,
	})
}
