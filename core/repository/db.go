package repository

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// DB wraps the shared database handle used by all repositories.
type DB struct {
	*sql.DB
}

// NewDB opens a Postgres connection and verifies it.
func NewDB(databaseURL string) (*DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DB{db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS experiments (
	id UUID PRIMARY KEY,
	status TEXT NOT NULL,
	policy TEXT NOT NULL,
	profile TEXT NOT NULL DEFAULT '',
	cpu_workers INT NOT NULL DEFAULT 0,
	cpu_method TEXT NOT NULL DEFAULT '',
	io_workers INT NOT NULL DEFAULT 0,
	memory_load_gb INT NOT NULL DEFAULT 0,
	vm_workers INT NOT NULL DEFAULT 0,
	duration_seconds DOUBLE PRECISION NOT NULL,
	sample_interval_seconds DOUBLE PRECISION NOT NULL,
	error TEXT,
	submitted_at TIMESTAMPTZ NOT NULL,
	started_at TIMESTAMPTZ,
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS experiment_events (
	id BIGSERIAL PRIMARY KEY,
	experiment_id UUID NOT NULL REFERENCES experiments(id) ON DELETE CASCADE,
	at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	from_status TEXT,
	to_status TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	meta_json TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_experiment_events_experiment
	ON experiment_events (experiment_id, at DESC);

CREATE TABLE IF NOT EXISTS experiment_results (
	experiment_id UUID PRIMARY KEY REFERENCES experiments(id) ON DELETE CASCADE,
	recorded_at TIMESTAMPTZ NOT NULL,
	metrics JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS worker_dumps (
	experiment_id UUID NOT NULL REFERENCES experiments(id) ON DELETE CASCADE,
	pid INT NOT NULL,
	arrival DOUBLE PRECISION NOT NULL,
	first_cpu DOUBLE PRECISION,
	completion DOUBLE PRECISION,
	turnaround DOUBLE PRECISION,
	response DOUBLE PRECISION,
	total_cpu_time DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (experiment_id, pid)
);
`

// InitSchema creates the tables if they do not exist.
func (db *DB) InitSchema() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}
