package repository

import (
	"database/sql"
	"encoding/json"

	"schedbench/core/models"
)

// EventRepository handles database operations for experiment events.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// GetExperimentEvents retrieves events for an experiment, newest first.
func (r *EventRepository) GetExperimentEvents(expID string, limit int) ([]models.ExperimentEvent, error) {
	query := `
		SELECT id, experiment_id, at, from_status, to_status, reason, meta_json
		FROM experiment_events
		WHERE experiment_id = $1
		ORDER BY at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(query, expID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.ExperimentEvent
	for rows.Next() {
		var event models.ExperimentEvent
		var fromStatus sql.NullString
		var metaJSON string

		err := rows.Scan(
			&event.ID,
			&event.ExperimentID,
			&event.At,
			&fromStatus,
			&event.ToStatus,
			&event.Reason,
			&metaJSON,
		)
		if err != nil {
			return nil, err
		}

		if fromStatus.Valid {
			status := models.ExperimentStatus(fromStatus.String)
			event.FromStatus = &status
		}
		if metaJSON != "" {
			json.Unmarshal([]byte(metaJSON), &event.MetaJSON)
		}

		events = append(events, event)
	}
	return events, rows.Err()
}
