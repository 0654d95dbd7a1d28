package models

import "time"

// ExperimentEvent represents a state transition event for an experiment
type ExperimentEvent struct {
	ID           int64
	ExperimentID string
	At           time.Time
	FromStatus   *ExperimentStatus
	ToStatus     ExperimentStatus
	Reason       string
	MetaJSON     map[string]interface{} // Additional metadata
}
