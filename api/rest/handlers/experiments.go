package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"schedbench/core/models"
	"schedbench/core/policy"
	"schedbench/core/repository"
	"schedbench/core/runner"
	"schedbench/core/workload"

	"github.com/gorilla/mux"
)

// ExperimentHandler handles experiment-related HTTP requests
type ExperimentHandler struct {
	expRepo    *repository.ExperimentRepository
	resultRepo *repository.ResultRepository
	eventRepo  *repository.EventRepository
	runner     *runner.Runner
	policies   *policy.Table
	atlas      *workload.Atlas
}

// NewExperimentHandler creates a new experiment handler
func NewExperimentHandler(
	expRepo *repository.ExperimentRepository,
	resultRepo *repository.ResultRepository,
	eventRepo *repository.EventRepository,
	run *runner.Runner,
	policies *policy.Table,
	atlas *workload.Atlas,
) *ExperimentHandler {
	return &ExperimentHandler{
		expRepo:    expRepo,
		resultRepo: resultRepo,
		eventRepo:  eventRepo,
		runner:     run,
		policies:   policies,
		atlas:      atlas,
	}
}

// SubmitExperimentResponse represents the response after submitting an experiment
type SubmitExperimentResponse struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SubmitExperiment handles POST /v1/experiments
func (h *ExperimentHandler) SubmitExperiment(w http.ResponseWriter, r *http.Request) {
	var req models.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := req.Validate(h.policies.Names(), h.atlas.Names()); err != nil {
		http.Error(w, "Invalid experiment request: "+err.Error(), http.StatusBadRequest)
		return
	}

	exp := models.NewExperiment(req)

	// Create experiment in database
	if err := h.expRepo.CreateExperiment(exp); err != nil {
		http.Error(w, "Failed to create experiment: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Enqueue experiment for the run loop
	h.runner.Enqueue(exp)

	resp := SubmitExperimentResponse{
		ID:          exp.ID,
		Status:      string(exp.Status),
		SubmittedAt: exp.SubmittedAt,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// GetExperiment handles GET /v1/experiments/{id}
func (h *ExperimentHandler) GetExperiment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	expID := vars["id"]

	exp, err := h.expRepo.GetExperiment(expID)
	if err != nil {
		http.Error(w, "Experiment not found", http.StatusNotFound)
		return
	}

	// Build response
	response := map[string]interface{}{
		"id":      exp.ID,
		"status":  exp.Status,
		"request": exp.Request,
		"timestamps": map[string]interface{}{
			"submitted_at": exp.SubmittedAt,
			"started_at":   exp.StartedAt,
			"completed_at": exp.CompletedAt,
		},
	}

	if exp.Error != "" {
		response["error"] = exp.Error
	}

	if exp.Status == models.ExperimentStatusCompleted {
		if result, err := h.resultRepo.GetResult(expID); err == nil {
			response["result"] = map[string]interface{}{
				"recorded_at": result.RecordedAt,
				"metrics":     result.Metrics,
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ListExperiments handles GET /v1/experiments
func (h *ExperimentHandler) ListExperiments(w http.ResponseWriter, r *http.Request) {
	// Parse query parameters
	statusParam := r.URL.Query().Get("status")
	limit := 50 // Default limit
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		fmt.Sscanf(limitParam, "%d", &limit)
	}

	var status *models.ExperimentStatus
	if statusParam != "" {
		s := models.ExperimentStatus(statusParam)
		status = &s
	}

	// Fetch experiments from database
	experiments, err := h.expRepo.ListExperiments(status, limit)
	if err != nil {
		http.Error(w, "Failed to list experiments: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Build response items
	items := make([]map[string]interface{}, len(experiments))
	for i, exp := range experiments {
		items[i] = map[string]interface{}{
			"id":           exp.ID,
			"status":       exp.Status,
			"policy_name":  exp.Request.PolicyName,
			"profile":      exp.Request.Profile,
			"submitted_at": exp.SubmittedAt,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
	})
}

// GetExperimentWorkers handles GET /v1/experiments/{id}/workers
func (h *ExperimentHandler) GetExperimentWorkers(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	expID := vars["id"]

	// Verify experiment exists
	_, err := h.expRepo.GetExperiment(expID)
	if err != nil {
		http.Error(w, "Experiment not found", http.StatusNotFound)
		return
	}

	// Fetch per-worker dump rows
	dumps, err := h.resultRepo.GetWorkerDumps(expID)
	if err != nil {
		http.Error(w, "Failed to fetch workers: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if dumps == nil {
		dumps = []models.WorkerDump{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": dumps,
	})
}

// GetExperimentEvents handles GET /v1/experiments/{id}/events
func (h *ExperimentHandler) GetExperimentEvents(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	expID := vars["id"]

	// Verify experiment exists
	_, err := h.expRepo.GetExperiment(expID)
	if err != nil {
		http.Error(w, "Experiment not found", http.StatusNotFound)
		return
	}

	// Fetch events
	events, err := h.eventRepo.GetExperimentEvents(expID, 100)
	if err != nil {
		http.Error(w, "Failed to fetch events: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Build response items
	items := make([]map[string]interface{}, len(events))
	for i, event := range events {
		item := map[string]interface{}{
			"at":        event.At,
			"to_status": event.ToStatus,
			"reason":    event.Reason,
		}
		if event.FromStatus != nil {
			item["from_status"] = *event.FromStatus
		}
		items[i] = item
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
	})
}

// ListPolicies handles GET /v1/policies
func (h *ExperimentHandler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	items := make([]map[string]interface{}, 0, len(h.policies.Names()))
	for _, name := range h.policies.Names() {
		entry, _ := h.policies.Get(name)
		items = append(items, map[string]interface{}{
			"name":        entry.Name,
			"description": entry.Description,
			"builtin":     entry.Builtin(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
	})
}

// ListProfiles handles GET /v1/profiles
func (h *ExperimentHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	items := make([]map[string]interface{}, 0, h.atlas.Len())
	for _, name := range h.atlas.Names() {
		prof, _ := h.atlas.Get(name)
		items = append(items, map[string]interface{}{
			"name":        prof.Name,
			"category":    prof.Category,
			"description": prof.Description,
			"args":        prof.Args,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": items,
	})
}
