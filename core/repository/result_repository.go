package repository

import (
	"encoding/json"
	"fmt"

	"schedbench/core/models"
)

// ResultRepository handles database operations for result rows and
// per-worker dumps.
type ResultRepository struct {
	db *DB
}

// NewResultRepository creates a new result repository.
func NewResultRepository(db *DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// SaveResult upserts the flat metric row for an experiment. Re-running an
// analysis simply replaces the previous row.
func (r *ResultRepository) SaveResult(row *models.ResultRow) error {
	metrics, err := json.Marshal(row.Metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	query := `
		INSERT INTO experiment_results (experiment_id, recorded_at, metrics)
		VALUES ($1, $2, $3)
		ON CONFLICT (experiment_id)
		DO UPDATE SET recorded_at = EXCLUDED.recorded_at, metrics = EXCLUDED.metrics
	`
	_, err = r.db.Exec(query, row.ExperimentID, row.RecordedAt, metrics)
	return err
}

const resultColumns = `
	r.experiment_id, r.recorded_at, r.metrics,
	e.policy, e.profile, e.cpu_workers, e.cpu_method, e.io_workers,
	e.memory_load_gb, e.vm_workers, e.duration_seconds, e.sample_interval_seconds
`

// GetResult retrieves the result row for one experiment, joined with the
// request parameters it was produced under.
func (r *ResultRepository) GetResult(expID string) (*models.ResultRow, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM experiment_results r
		JOIN experiments e ON e.id = r.experiment_id
		WHERE r.experiment_id = $1
	`
	return scanResult(r.db.QueryRow(query, expID))
}

// ListResults returns every result row oldest first. The dataset builder
// consumes this to assemble training data.
func (r *ResultRepository) ListResults() ([]*models.ResultRow, error) {
	query := `
		SELECT ` + resultColumns + `
		FROM experiment_results r
		JOIN experiments e ON e.id = r.experiment_id
		ORDER BY r.recorded_at
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.ResultRow
	for rows.Next() {
		row, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

func scanResult(row rowScanner) (*models.ResultRow, error) {
	var res models.ResultRow
	var metrics []byte

	err := row.Scan(
		&res.ExperimentID,
		&res.RecordedAt,
		&metrics,
		&res.Policy,
		&res.Request.Profile,
		&res.Request.CPUWorkers,
		&res.Request.CPUMethod,
		&res.Request.IOWorkers,
		&res.Request.MemoryLoadGB,
		&res.Request.VMWorkers,
		&res.Request.DurationSeconds,
		&res.Request.SampleIntervalSeconds,
	)
	if err != nil {
		return nil, err
	}

	res.Request.PolicyName = res.Policy
	if err := json.Unmarshal(metrics, &res.Metrics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
	}
	return &res, nil
}

// SaveWorkerDumps replaces the per-pid lifecycle rows for an experiment.
func (r *ResultRepository) SaveWorkerDumps(expID string, dumps []models.WorkerDump) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.Exec(`DELETE FROM worker_dumps WHERE experiment_id = $1`, expID); err != nil {
		return err
	}

	query := `
		INSERT INTO worker_dumps (
			experiment_id, pid, arrival, first_cpu, completion,
			turnaround, response, total_cpu_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, d := range dumps {
		if _, err = tx.Exec(query,
			expID, d.PID, d.Arrival, d.FirstCPU, d.Completion,
			d.Turnaround, d.Response, d.TotalCPUTime,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetWorkerDumps retrieves the per-pid lifecycle rows for an experiment,
// ordered by pid.
func (r *ResultRepository) GetWorkerDumps(expID string) ([]models.WorkerDump, error) {
	query := `
		SELECT pid, arrival, first_cpu, completion, turnaround, response, total_cpu_time
		FROM worker_dumps
		WHERE experiment_id = $1
		ORDER BY pid
	`
	rows, err := r.db.Query(query, expID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dumps []models.WorkerDump
	for rows.Next() {
		var d models.WorkerDump
		if err := rows.Scan(
			&d.PID, &d.Arrival, &d.FirstCPU, &d.Completion,
			&d.Turnaround, &d.Response, &d.TotalCPUTime,
		); err != nil {
			return nil, err
		}
		dumps = append(dumps, d)
	}
	return dumps, rows.Err()
}
