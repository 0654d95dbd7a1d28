package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"schedbench/core/dataset"
	"schedbench/core/repository"
	"schedbench/storage"
)

// DatasetHandler handles training-dataset HTTP requests
type DatasetHandler struct {
	resultRepo *repository.ResultRepository
	files      *storage.CSVExporter
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(resultRepo *repository.ResultRepository, files *storage.CSVExporter) *DatasetHandler {
	return &DatasetHandler{
		resultRepo: resultRepo,
		files:      files,
	}
}

// BuildDatasetRequest represents the request to build a training dataset.
// Omitted weights default to 1; omitted feature keys select the default set.
type BuildDatasetRequest struct {
	Weights struct {
		Turnaround *float64 `json:"turnaround"`
		Response   *float64 `json:"response"`
		Fairness   *float64 `json:"fairness"`
	} `json:"weights"`
	FeatureKeys []string `json:"feature_keys"`
	ExportCSV   bool     `json:"export_csv"`
}

// BuildDataset handles POST /v1/dataset
func (h *DatasetHandler) BuildDataset(w http.ResponseWriter, r *http.Request) {
	var req BuildDatasetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	weights := dataset.DefaultWeights()
	if req.Weights.Turnaround != nil {
		weights.Turnaround = *req.Weights.Turnaround
	}
	if req.Weights.Response != nil {
		weights.Response = *req.Weights.Response
	}
	if req.Weights.Fairness != nil {
		weights.Fairness = *req.Weights.Fairness
	}

	results, err := h.resultRepo.ListResults()
	if err != nil {
		http.Error(w, "Failed to list results: "+err.Error(), http.StatusInternalServerError)
		return
	}

	builder := dataset.NewBuilder(weights, req.FeatureKeys)
	rows := builder.Build(results)
	if rows == nil {
		rows = []dataset.TrainingRow{}
	}

	response := map[string]interface{}{
		"count": len(rows),
		"rows":  rows,
	}

	if req.ExportCSV {
		path, err := h.files.WriteTrainingData(rows, builder.FeatureKeys())
		if err != nil {
			http.Error(w, "Failed to export dataset: "+err.Error(), http.StatusInternalServerError)
			return
		}
		response["csv_path"] = path
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
