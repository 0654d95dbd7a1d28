package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Experiment represents one benchmark run of a workload under a scheduling policy
type Experiment struct {
	ID          string
	Request     Request
	Status      ExperimentStatus
	Error       string
	SubmittedAt time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Request holds the workload and sampling parameters for one run
type Request struct {
	PolicyName            string  `json:"policy_name"`
	Profile               string  `json:"profile,omitempty"` // named stress profile; overrides the raw worker counts
	CPUWorkers            int     `json:"cpu_workers"`
	CPUMethod             string  `json:"cpu_method"`
	IOWorkers             int     `json:"io_workers"`
	MemoryLoadGB          int     `json:"memory_load_gb"`
	VMWorkers             int     `json:"vm_workers"`
	DurationSeconds       float64 `json:"duration_seconds"`
	SampleIntervalSeconds float64 `json:"sample_interval_seconds"`
}

// ExperimentStatus represents the current status of an experiment
type ExperimentStatus string

const (
	ExperimentStatusPending   ExperimentStatus = "pending"
	ExperimentStatusRunning   ExperimentStatus = "running"
	ExperimentStatusCompleted ExperimentStatus = "completed"
	ExperimentStatusFailed    ExperimentStatus = "failed"
)

// NewExperiment creates a pending experiment with a fresh id
func NewExperiment(req Request) *Experiment {
	return &Experiment{
		ID:          uuid.New().String(),
		Request:     req,
		Status:      ExperimentStatusPending,
		SubmittedAt: time.Now(),
	}
}

// Validate checks a request against the configured policies and profiles
func (r *Request) Validate(knownPolicies []string, knownProfiles []string) error {
	if r.PolicyName == "" {
		return fmt.Errorf("policy_name is required")
	}
	if !contains(knownPolicies, r.PolicyName) {
		return fmt.Errorf("unknown policy %q", r.PolicyName)
	}
	if r.Profile != "" && !contains(knownProfiles, r.Profile) {
		return fmt.Errorf("unknown profile %q", r.Profile)
	}
	if r.Profile == "" && r.CPUWorkers <= 0 && r.IOWorkers <= 0 && r.VMWorkers <= 0 {
		return fmt.Errorf("at least one of cpu_workers, io_workers, vm_workers must be positive")
	}
	if r.CPUWorkers < 0 || r.IOWorkers < 0 || r.VMWorkers < 0 || r.MemoryLoadGB < 0 {
		return fmt.Errorf("worker counts must not be negative")
	}
	if r.VMWorkers > 0 && r.MemoryLoadGB <= 0 {
		return fmt.Errorf("vm_workers requires a positive memory_load_gb")
	}
	if r.DurationSeconds <= 0 {
		return fmt.Errorf("duration_seconds must be positive")
	}
	if r.SampleIntervalSeconds <= 0 {
		return fmt.Errorf("sample_interval_seconds must be positive")
	}
	if r.SampleIntervalSeconds > r.DurationSeconds {
		return fmt.Errorf("sample_interval_seconds must not exceed duration_seconds")
	}
	return nil
}

// ConfigKey returns a stable identifier for the workload configuration,
// shared by runs of the same workload under different policies.
func (r *Request) ConfigKey() string {
	if r.Profile != "" {
		return r.Profile
	}
	parts := []string{
		strconv.Itoa(r.CPUWorkers),
		r.CPUMethod,
		strconv.Itoa(r.IOWorkers),
		strconv.Itoa(r.MemoryLoadGB),
		strconv.Itoa(r.VMWorkers),
		strconv.FormatFloat(r.DurationSeconds, 'g', -1, 64),
	}
	return strings.Join(parts, "_")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
