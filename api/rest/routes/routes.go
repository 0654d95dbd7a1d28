package routes

import (
	"net/http"

	"schedbench/api/rest/handlers"
	"schedbench/core/monitoring"
	"schedbench/core/policy"
	"schedbench/core/repository"
	"schedbench/core/runner"
	"schedbench/core/workload"
	"schedbench/storage"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(r *mux.Router, db *repository.DB, run *runner.Runner, policies *policy.Table, atlas *workload.Atlas, files *storage.CSVExporter) {
	expRepo := repository.NewExperimentRepository(db)
	resultRepo := repository.NewResultRepository(db)
	eventRepo := repository.NewEventRepository(db)

	expHandler := handlers.NewExperimentHandler(expRepo, resultRepo, eventRepo, run, policies, atlas)
	datasetHandler := handlers.NewDatasetHandler(resultRepo, files)
	dashboardHandler := handlers.NewDashboardHandler(expRepo, resultRepo)
	exporter := monitoring.NewMetricsExporter(expRepo, resultRepo, run)

	api := r.PathPrefix("/v1").Subrouter()

	// Experiment endpoints
	api.HandleFunc("/experiments", expHandler.SubmitExperiment).Methods("POST")
	api.HandleFunc("/experiments/{id}", expHandler.GetExperiment).Methods("GET")
	api.HandleFunc("/experiments", expHandler.ListExperiments).Methods("GET")
	api.HandleFunc("/experiments/{id}/workers", expHandler.GetExperimentWorkers).Methods("GET")
	api.HandleFunc("/experiments/{id}/events", expHandler.GetExperimentEvents).Methods("GET")

	// Catalog endpoints
	api.HandleFunc("/policies", expHandler.ListPolicies).Methods("GET")
	api.HandleFunc("/profiles", expHandler.ListProfiles).Methods("GET")

	// Training dataset endpoint
	api.HandleFunc("/dataset", datasetHandler.BuildDataset).Methods("POST")

	// Dashboard endpoints
	api.HandleFunc("/dashboard/policies", dashboardHandler.GetPolicyComparison).Methods("GET")
	api.HandleFunc("/dashboard/rankings", dashboardHandler.GetConfigRankings).Methods("GET")

	// Prometheus scrape endpoint
	r.HandleFunc("/metrics", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.Write([]byte(exporter.GetPrometheusMetrics()))
	}).Methods("GET")
}
