package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"schedbench/core/models"
)

// ExperimentRepository handles database operations for experiments.
type ExperimentRepository struct {
	db *DB
}

// NewExperimentRepository creates a new experiment repository.
func NewExperimentRepository(db *DB) *ExperimentRepository {
	return &ExperimentRepository{db: db}
}

// CreateExperiment inserts a new experiment and its initial event.
func (r *ExperimentRepository) CreateExperiment(exp *models.Experiment) error {
	query := `
		INSERT INTO experiments (
			id, status, policy, profile, cpu_workers, cpu_method, io_workers,
			memory_load_gb, vm_workers, duration_seconds, sample_interval_seconds,
			submitted_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := r.db.Exec(query,
		exp.ID,
		exp.Status,
		exp.Request.PolicyName,
		exp.Request.Profile,
		exp.Request.CPUWorkers,
		exp.Request.CPUMethod,
		exp.Request.IOWorkers,
		exp.Request.MemoryLoadGB,
		exp.Request.VMWorkers,
		exp.Request.DurationSeconds,
		exp.Request.SampleIntervalSeconds,
		exp.SubmittedAt,
	)
	if err != nil {
		return err
	}

	return r.CreateExperimentEvent(exp.ID, nil, exp.Status, "experiment_submitted", nil)
}

const experimentColumns = `
	id, status, policy, profile, cpu_workers, cpu_method, io_workers,
	memory_load_gb, vm_workers, duration_seconds, sample_interval_seconds,
	error, submitted_at, started_at, completed_at
`

// GetExperiment retrieves an experiment by ID.
func (r *ExperimentRepository) GetExperiment(id string) (*models.Experiment, error) {
	query := `SELECT ` + experimentColumns + ` FROM experiments WHERE id = $1`
	return scanExperiment(r.db.QueryRow(query, id))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExperiment(row rowScanner) (*models.Experiment, error) {
	var exp models.Experiment
	var errMsg sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&exp.ID,
		&exp.Status,
		&exp.Request.PolicyName,
		&exp.Request.Profile,
		&exp.Request.CPUWorkers,
		&exp.Request.CPUMethod,
		&exp.Request.IOWorkers,
		&exp.Request.MemoryLoadGB,
		&exp.Request.VMWorkers,
		&exp.Request.DurationSeconds,
		&exp.Request.SampleIntervalSeconds,
		&errMsg,
		&exp.SubmittedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if errMsg.Valid {
		exp.Error = errMsg.String
	}
	if startedAt.Valid {
		exp.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		exp.CompletedAt = &completedAt.Time
	}
	return &exp, nil
}

// ListExperiments lists experiments newest first, optionally filtered by
// status.
func (r *ExperimentRepository) ListExperiments(status *models.ExperimentStatus, limit int) ([]*models.Experiment, error) {
	query := `SELECT ` + experimentColumns + ` FROM experiments`
	args := []interface{}{}
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += fmt.Sprintf(` ORDER BY submitted_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var experiments []*models.Experiment
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			return nil, err
		}
		experiments = append(experiments, exp)
	}
	return experiments, rows.Err()
}

// CountExperimentsByStatus returns experiment counts grouped by status.
func (r *ExperimentRepository) CountExperimentsByStatus() (map[models.ExperimentStatus]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM experiments GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.ExperimentStatus]int)
	for rows.Next() {
		var status models.ExperimentStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// UpdateExperimentStatus transitions an experiment atomically with event
// logging. Entering running stamps started_at; entering a terminal state
// stamps completed_at.
func (r *ExperimentRepository) UpdateExperimentStatus(expID string, fromStatus, toStatus models.ExperimentStatus, reason string, meta map[string]interface{}) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var updateQuery string
	switch toStatus {
	case models.ExperimentStatusRunning:
		updateQuery = `UPDATE experiments SET status = $1, started_at = NOW() WHERE id = $2`
	case models.ExperimentStatusCompleted, models.ExperimentStatusFailed:
		updateQuery = `UPDATE experiments SET status = $1, completed_at = NOW() WHERE id = $2`
	default:
		updateQuery = `UPDATE experiments SET status = $1 WHERE id = $2`
	}
	if _, err = tx.Exec(updateQuery, toStatus, expID); err != nil {
		return err
	}

	if err = createExperimentEventTx(tx, expID, &fromStatus, toStatus, reason, meta); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkFailed records a failure: status, error text and event in one
// transaction.
func (r *ExperimentRepository) MarkFailed(expID string, fromStatus models.ExperimentStatus, errMsg string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `UPDATE experiments SET status = $1, error = $2, completed_at = NOW() WHERE id = $3`
	if _, err = tx.Exec(query, models.ExperimentStatusFailed, errMsg, expID); err != nil {
		return err
	}

	meta := map[string]interface{}{"error": errMsg}
	if err = createExperimentEventTx(tx, expID, &fromStatus, models.ExperimentStatusFailed, "run_failed", meta); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateExperimentEvent records a lifecycle event outside any status
// transition.
func (r *ExperimentRepository) CreateExperimentEvent(expID string, fromStatus *models.ExperimentStatus, toStatus models.ExperimentStatus, reason string, meta map[string]interface{}) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = createExperimentEventTx(tx, expID, fromStatus, toStatus, reason, meta); err != nil {
		return err
	}
	return tx.Commit()
}

func createExperimentEventTx(tx *sql.Tx, expID string, fromStatus *models.ExperimentStatus, toStatus models.ExperimentStatus, reason string, meta map[string]interface{}) error {
	query := `
		INSERT INTO experiment_events (experiment_id, from_status, to_status, reason, meta_json)
		VALUES ($1, $2, $3, $4, $5)
	`

	var fromStatusStr *string
	if fromStatus != nil {
		s := string(*fromStatus)
		fromStatusStr = &s
	}

	metaJSON := "{}"
	if len(meta) > 0 {
		b, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("failed to marshal event meta: %w", err)
		}
		metaJSON = string(b)
	}

	_, err := tx.Exec(query, expID, fromStatusStr, toStatus, reason, metaJSON)
	return err
}
