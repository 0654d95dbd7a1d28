package models

import (
	"strings"
	"testing"
)

var (
	knownPolicies = []string{"CFS", "bpfland", "rusty"}
	knownProfiles = []string{"mixed_burst", "io_heavy"}
)

func validRequest() Request {
	return Request{
		PolicyName:            "CFS",
		CPUWorkers:            4,
		CPUMethod:             "matrixprod",
		IOWorkers:             2,
		DurationSeconds:       30,
		SampleIntervalSeconds: 1,
	}
}

func TestRequestValidateAccepts(t *testing.T) {
	req := validRequest()
	if err := req.Validate(knownPolicies, knownProfiles); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestRequestValidateProfileOnly(t *testing.T) {
	req := Request{
		PolicyName:            "bpfland",
		Profile:               "io_heavy",
		DurationSeconds:       10,
		SampleIntervalSeconds: 0.5,
	}
	if err := req.Validate(knownPolicies, knownProfiles); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestRequestValidateRejects(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Request)
		wantErr string
	}{
		{
			"missing policy",
			func(r *Request) { r.PolicyName = "" },
			"policy_name is required",
		},
		{
			"unknown policy",
			func(r *Request) { r.PolicyName = "lottery" },
			`unknown policy "lottery"`,
		},
		{
			"unknown profile",
			func(r *Request) { r.Profile = "cache_storm" },
			`unknown profile "cache_storm"`,
		},
		{
			"no workers",
			func(r *Request) { r.CPUWorkers = 0; r.IOWorkers = 0 },
			"at least one of cpu_workers, io_workers, vm_workers must be positive",
		},
		{
			"negative workers",
			func(r *Request) { r.IOWorkers = -1 },
			"worker counts must not be negative",
		},
		{
			"vm without memory",
			func(r *Request) { r.VMWorkers = 2; r.MemoryLoadGB = 0 },
			"vm_workers requires a positive memory_load_gb",
		},
		{
			"zero duration",
			func(r *Request) { r.DurationSeconds = 0 },
			"duration_seconds must be positive",
		},
		{
			"zero interval",
			func(r *Request) { r.SampleIntervalSeconds = 0 },
			"sample_interval_seconds must be positive",
		},
		{
			"interval exceeds duration",
			func(r *Request) { r.SampleIntervalSeconds = 60 },
			"sample_interval_seconds must not exceed duration_seconds",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			err := req.Validate(knownPolicies, knownProfiles)
			if err == nil {
				t.Fatal("Validate err = nil, want error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate err = %q, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestConfigKeySharedAcrossPolicies(t *testing.T) {
	a := validRequest()
	b := validRequest()
	b.PolicyName = "rusty"
	if a.ConfigKey() != b.ConfigKey() {
		t.Errorf("ConfigKey differs across policies: %q vs %q", a.ConfigKey(), b.ConfigKey())
	}

	c := validRequest()
	c.CPUWorkers = 8
	if a.ConfigKey() == c.ConfigKey() {
		t.Errorf("ConfigKey %q shared across different workloads", a.ConfigKey())
	}
}

func TestConfigKeyProfileWins(t *testing.T) {
	req := validRequest()
	req.Profile = "mixed_burst"
	if got := req.ConfigKey(); got != "mixed_burst" {
		t.Errorf("ConfigKey = %q, want %q", got, "mixed_burst")
	}
}

func TestNewExperimentDefaults(t *testing.T) {
	req := validRequest()
	exp := NewExperiment(req)

	if exp.ID == "" {
		t.Error("ID is empty")
	}
	if exp.Status != ExperimentStatusPending {
		t.Errorf("Status = %q, want %q", exp.Status, ExperimentStatusPending)
	}
	if exp.SubmittedAt.IsZero() {
		t.Error("SubmittedAt is zero")
	}
	if exp.StartedAt != nil || exp.CompletedAt != nil {
		t.Error("StartedAt/CompletedAt set on new experiment")
	}
	if exp.Request != req {
		t.Errorf("Request = %+v, want %+v", exp.Request, req)
	}

	other := NewExperiment(req)
	if other.ID == exp.ID {
		t.Error("two experiments share an ID")
	}
}
