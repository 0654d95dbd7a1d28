package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	// Database
	DatabaseURL string

	// Server
	ServerPort string

	// Trace capture
	PerfBin            string
	Sudo               bool
	CaptureNice        int
	KeepTraceArtifacts bool
	PerfDataDir        string

	// Workload
	StressBin string
	Taskset   string

	// Run loop
	TeardownGraceSeconds int
	ForkOnlyTracking     bool

	// Catalogs and output
	ResultsDir       string
	PolicyTablePath  string
	ProfileAtlasPath string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		DatabaseURL:          getEnv("DATABASE_URL", "postgres://localhost/schedbench?sslmode=disable"),
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		PerfBin:              getEnv("PERF_BIN", "/usr/bin/perf"),
		Sudo:                 getEnvBool("USE_SUDO", true),
		CaptureNice:          getEnvInt("CAPTURE_NICE", -20),
		KeepTraceArtifacts:   getEnvBool("KEEP_TRACE_ARTIFACTS", false),
		PerfDataDir:          getEnv("PERF_DATA_DIR", "perf_data"),
		StressBin:            getEnv("STRESS_NG_BIN", "stress-ng"),
		Taskset:              getEnv("STRESS_TASKSET", ""),
		TeardownGraceSeconds: getEnvInt("TEARDOWN_GRACE_SECONDS", 5),
		ForkOnlyTracking:     getEnvBool("FORK_ONLY_TRACKING", false),
		ResultsDir:           getEnv("RESULTS_DIR", "results"),
		PolicyTablePath:      getEnv("POLICY_TABLE_PATH", "policies.yaml"),
		ProfileAtlasPath:     getEnv("PROFILE_ATLAS_PATH", "profiles.yaml"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
