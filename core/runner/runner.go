// Package runner drains the experiment queue and drives each run through
// its full lifecycle: scheduler process up, workload under perf record
// with the state sampler alongside, trace analysis, persistence, and
// idempotent teardown.
package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"schedbench/core/capture"
	"schedbench/core/models"
	"schedbench/core/policy"
	"schedbench/core/repository"
	"schedbench/core/state"
	"schedbench/core/trace"
	"schedbench/core/workload"
	"schedbench/storage"
)

// Config carries the host-level knobs applied to every run.
type Config struct {
	// StressBin is the stress-ng executable path.
	StressBin string
	// Taskset pins the workload to a CPU list; empty pins nothing.
	Taskset string
	// Sudo prefixes scheduler and capture invocations with sudo.
	Sudo bool
	// TeardownGrace bounds how long a scheduler process gets after
	// SIGTERM before the kill escalates.
	TeardownGrace time.Duration
	// ForkOnly restricts worker tracking to fork-observed children
	// instead of creating a record for any sighted pid.
	ForkOnly bool
	// KeepArtifacts leaves perf data and rendered trace logs on disk
	// after analysis instead of removing them.
	KeepArtifacts bool
}

// Runner manages experiment scheduling and execution.
type Runner struct {
	cfg        Config
	expRepo    *repository.ExperimentRepository
	resultRepo *repository.ResultRepository
	policies   *policy.Table
	atlas      *workload.Atlas
	perf       *capture.Capture
	files      *storage.CSVExporter
	queue      *ExperimentQueue
	stopChan   chan struct{}
}

// NewRunner creates a new runner.
func NewRunner(
	cfg Config,
	expRepo *repository.ExperimentRepository,
	resultRepo *repository.ResultRepository,
	policies *policy.Table,
	atlas *workload.Atlas,
	perf *capture.Capture,
	files *storage.CSVExporter,
) *Runner {
	return &Runner{
		cfg:        cfg,
		expRepo:    expRepo,
		resultRepo: resultRepo,
		policies:   policies,
		atlas:      atlas,
		perf:       perf,
		files:      files,
		queue:      NewExperimentQueue(),
		stopChan:   make(chan struct{}),
	}
}

// Start starts the runner worker. Runs execute inline on this loop, one
// at a time, so concurrent workloads never perturb each other's
// measurements.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Second) // Check queue every 5 seconds
	defer ticker.Stop()

	// Re-enqueue experiments submitted before the last shutdown
	r.loadPendingExperiments()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.processQueue(ctx)
		}
	}
}

// Stop stops the runner.
func (r *Runner) Stop() {
	close(r.stopChan)
}

// Enqueue adds an experiment to the queue.
func (r *Runner) Enqueue(exp *models.Experiment) {
	r.queue.Enqueue(exp)
}

// QueueSize reports how many experiments are waiting to run.
func (r *Runner) QueueSize() int {
	return r.queue.Size()
}

// loadPendingExperiments loads pending experiments from the database.
func (r *Runner) loadPendingExperiments() {
	status := models.ExperimentStatusPending
	experiments, err := r.expRepo.ListExperiments(&status, 100)
	if err != nil {
		log.Printf("Failed to load pending experiments: %v", err)
		return
	}

	for _, exp := range experiments {
		r.queue.Enqueue(exp)
	}
}

// processQueue processes experiments from the queue.
func (r *Runner) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		default:
		}

		exp := r.queue.PopExperiment()
		if exp == nil {
			return
		}

		// Re-fetch the experiment to get its latest state
		fresh, err := r.expRepo.GetExperiment(exp.ID)
		if err != nil {
			log.Printf("Failed to fetch experiment %s: %v", exp.ID, err)
			continue
		}

		// Skip if the experiment is no longer pending
		if fresh.Status != models.ExperimentStatusPending {
			continue
		}

		r.runExperiment(fresh)
	}
}

// runExperiment drives one experiment through its status transitions.
func (r *Runner) runExperiment(exp *models.Experiment) {
	log.Printf("Running experiment %s (policy %s)", exp.ID, exp.Request.PolicyName)

	if err := r.expRepo.UpdateExperimentStatus(exp.ID, models.ExperimentStatusPending, models.ExperimentStatusRunning, "run_started", nil); err != nil {
		log.Printf("Failed to mark experiment %s running: %v", exp.ID, err)
		return
	}

	row, dumps, err := r.orchestrate(exp)
	if err != nil {
		log.Printf("Experiment %s failed: %v", exp.ID, err)
		if merr := r.expRepo.MarkFailed(exp.ID, models.ExperimentStatusRunning, err.Error()); merr != nil {
			log.Printf("Failed to mark experiment %s failed: %v", exp.ID, merr)
		}
		return
	}

	if err := r.persist(exp, row, dumps); err != nil {
		log.Printf("Experiment %s failed: %v", exp.ID, err)
		if merr := r.expRepo.MarkFailed(exp.ID, models.ExperimentStatusRunning, err.Error()); merr != nil {
			log.Printf("Failed to mark experiment %s failed: %v", exp.ID, merr)
		}
		return
	}

	if err := r.expRepo.UpdateExperimentStatus(exp.ID, models.ExperimentStatusRunning, models.ExperimentStatusCompleted, "run_completed", nil); err != nil {
		log.Printf("Failed to mark experiment %s completed: %v", exp.ID, err)
		return
	}
	log.Printf("Experiment %s completed", exp.ID)
}

// orchestrate executes one run end to end: start the scheduler under
// test, launch the workload wrapped in perf record, sample system state
// while it runs, then analyze the rendered trace once it exits. The
// scheduler process is torn down on every path, and everything after the
// workload has started is best effort: a failed workload, a missing
// trace, or an empty window degrades the row instead of failing the run.
func (r *Runner) orchestrate(exp *models.Experiment) (*models.ResultRow, []models.WorkerDump, error) {
	entry, ok := r.policies.Get(exp.Request.PolicyName)
	if !ok {
		return nil, nil, fmt.Errorf("unknown policy %q", exp.Request.PolicyName)
	}

	var prof *workload.Profile
	if exp.Request.Profile != "" {
		p, ok := r.atlas.Get(exp.Request.Profile)
		if !ok {
			return nil, nil, fmt.Errorf("unknown profile %q", exp.Request.Profile)
		}
		prof = &p
	}

	mgr := policy.NewManager(entry, r.cfg.Sudo, r.cfg.TeardownGrace)
	if err := mgr.Start(); err != nil {
		return nil, nil, err
	}
	defer func() {
		if err := mgr.Stop(); err != nil {
			log.Printf("WARNING: failed to stop scheduler for experiment %s: %v", exp.ID, err)
		}
	}()

	argv := workload.Command(r.cfg.StressBin, exp.Request, prof, workload.Options{Taskset: r.cfg.Taskset})
	run, err := r.perf.Start(exp.ID, argv)
	if err != nil {
		return nil, nil, err
	}

	duration := time.Duration(exp.Request.DurationSeconds * float64(time.Second))
	interval := time.Duration(exp.Request.SampleIntervalSeconds * float64(time.Second))
	sampler := state.NewSampler(run.Cmd.Process.Pid, interval, duration)
	sampler.Start()

	waitErr := run.Cmd.Wait()
	// Stop joins the sampling goroutine; only after it returns is the
	// window stable to read.
	sampler.Stop()
	if waitErr != nil {
		log.Printf("WARNING: workload for experiment %s exited with error: %v\n%s",
			exp.ID, waitErr, run.Output.String())
	}

	metrics := sampler.Window().Reduce()
	if len(metrics) == 0 {
		log.Printf("WARNING: no snapshots collected for experiment %s", exp.ID)
	}

	if err := r.perf.Render(exp.ID); err != nil {
		log.Printf("WARNING: failed to render trace for experiment %s: %v", exp.ID, err)
	} else if !r.cfg.KeepArtifacts {
		if err := r.perf.RemoveData(exp.ID); err != nil {
			log.Printf("Failed to remove perf data for experiment %s: %v", exp.ID, err)
		}
	}

	summary, dumps, err := analyzeTrace(r.perf.LogPath(exp.ID), r.cfg.ForkOnly)
	if err != nil {
		// The row keeps its request parameters and window features; the
		// trace metric columns are simply absent.
		log.Printf("WARNING: trace log unreadable for experiment %s, trace metrics omitted: %v", exp.ID, err)
	} else {
		for k, v := range summary.Metrics() {
			metrics[k] = v
		}
		if !r.cfg.KeepArtifacts {
			if err := r.perf.RemoveLog(exp.ID); err != nil {
				log.Printf("Failed to remove trace log for experiment %s: %v", exp.ID, err)
			}
		}
	}

	row := &models.ResultRow{
		ExperimentID: exp.ID,
		Policy:       exp.Request.PolicyName,
		Request:      exp.Request,
		Metrics:      metrics,
		RecordedAt:   time.Now(),
	}
	return row, dumps, nil
}

// persist writes the result row and worker dumps. The database row is
// required; file exports degrade to warnings so a full disk cannot void
// a completed measurement.
func (r *Runner) persist(exp *models.Experiment, row *models.ResultRow, dumps []models.WorkerDump) error {
	if err := r.resultRepo.SaveResult(row); err != nil {
		return fmt.Errorf("failed to save result row: %w", err)
	}
	if err := r.resultRepo.SaveWorkerDumps(exp.ID, dumps); err != nil {
		log.Printf("WARNING: failed to save worker dumps for experiment %s: %v", exp.ID, err)
	}
	if err := r.files.AppendResult(row); err != nil {
		log.Printf("WARNING: failed to append result CSV for experiment %s: %v", exp.ID, err)
	}
	if err := r.files.WriteWorkerDumps(exp.ID, dumps); err != nil {
		log.Printf("WARNING: failed to write worker dump CSV for experiment %s: %v", exp.ID, err)
	}
	return nil
}

// analyzeTrace reconstructs worker lifecycles from the rendered trace
// log and reduces them to the run summary and the per-pid dump. Whatever
// was parsed before a read error is still summarized; the error is
// returned alongside so the caller can decide whether to trust the
// partial result.
func analyzeTrace(path string, forkOnly bool) (trace.Summary, []models.WorkerDump, error) {
	tracker := trace.NewTracker(forkOnly)
	scanErr := trace.ScanFile(path, tracker.Apply)

	start, end, ok := tracker.Span()
	records := tracker.Finalize(end)
	summary := trace.Summarize(records, start, end, ok)
	return summary, tracker.Dump(), scanErr
}
