package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schedbench/api/rest/routes"
	"schedbench/config"
	"schedbench/core/capture"
	"schedbench/core/policy"
	"schedbench/core/repository"
	"schedbench/core/runner"
	"schedbench/core/workload"
	"schedbench/storage"

	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()

	// Initialize database
	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	log.Println("Database connected successfully")

	// Load policy and profile catalogs
	policies, err := policy.LoadTable(cfg.PolicyTablePath)
	if err != nil {
		log.Fatalf("Failed to load policy table: %v", err)
	}
	atlas, err := workload.LoadAtlas(cfg.ProfileAtlasPath)
	if err != nil {
		log.Fatalf("Failed to load profile atlas: %v", err)
	}
	log.Printf("Loaded %d policies and %d profiles", len(policies.Names()), atlas.Len())

	// Initialize trace capture
	perf := capture.New(capture.Config{
		DataDir:   cfg.PerfDataDir,
		PerfBin:   cfg.PerfBin,
		Sudo:      cfg.Sudo,
		NiceLevel: cfg.CaptureNice,
	})
	if err := perf.EnsureDirs(); err != nil {
		log.Fatalf("Failed to create trace directories: %v", err)
	}

	// Initialize CSV export
	files := storage.NewCSVExporter(cfg.ResultsDir)
	if err := files.EnsureDir(); err != nil {
		log.Fatalf("Failed to create results directory: %v", err)
	}

	// Initialize repositories
	expRepo := repository.NewExperimentRepository(db)
	resultRepo := repository.NewResultRepository(db)

	// Initialize run loop
	run := runner.NewRunner(runner.Config{
		StressBin:     cfg.StressBin,
		Taskset:       cfg.Taskset,
		Sudo:          cfg.Sudo,
		TeardownGrace: time.Duration(cfg.TeardownGraceSeconds) * time.Second,
		ForkOnly:      cfg.ForkOnlyTracking,
		KeepArtifacts: cfg.KeepTraceArtifacts,
	}, expRepo, resultRepo, policies, atlas, perf, files)

	ctx := context.Background()
	go run.Start(ctx)
	defer run.Stop()

	// Setup routes with database and run loop
	r := mux.NewRouter()
	routes.SetupRoutes(r, db, run, policies, atlas, files)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Start server
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Starting server on port %s", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := server.Shutdown(context.Background()); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
