// Package capture wraps workloads in perf record and renders the
// resulting trace into the text form the trace parser consumes.
package capture

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// SchedEvents is the tracepoint list recorded for every run.
const SchedEvents = "sched:sched_process_fork,sched:sched_process_exit,sched:sched_switch"

// Config controls where trace artifacts live and how perf is invoked.
type Config struct {
	// DataDir is the root for trace artifacts; binary perf data lands in
	// DataDir/binary and rendered logs in DataDir/logs.
	DataDir string
	// PerfBin is the perf executable path.
	PerfBin string
	// Sudo prefixes perf invocations with sudo. Recording kernel-wide
	// sched tracepoints requires it on most hosts.
	Sudo bool
	// NiceLevel reniced onto the perf process so trace capture is not
	// starved by the very workload it observes. Zero disables the
	// wrapper.
	NiceLevel int
}

// Capture runs perf around workloads for one configured data directory.
type Capture struct {
	cfg Config
}

// New returns a Capture using cfg.
func New(cfg Config) *Capture {
	return &Capture{cfg: cfg}
}

// EnsureDirs creates the artifact directories.
func (c *Capture) EnsureDirs() error {
	for _, dir := range []string{
		filepath.Join(c.cfg.DataDir, "binary"),
		filepath.Join(c.cfg.DataDir, "logs"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// DataPath returns the binary perf.data location for an experiment.
func (c *Capture) DataPath(expID string) string {
	return filepath.Join(c.cfg.DataDir, "binary", "perf.data."+expID)
}

// LogPath returns the rendered trace log location for an experiment.
func (c *Capture) LogPath(expID string) string {
	return filepath.Join(c.cfg.DataDir, "logs", "trace_log."+expID)
}

// RecordCommand builds the argv that runs workload under perf record.
func (c *Capture) RecordCommand(expID string, workload []string) []string {
	var argv []string
	if c.cfg.Sudo {
		argv = append(argv, "sudo")
	}
	if c.cfg.NiceLevel != 0 {
		argv = append(argv, "nice", "-n", strconv.Itoa(c.cfg.NiceLevel))
	}
	argv = append(argv,
		c.cfg.PerfBin, "record",
		"-e", SchedEvents,
		"-a",
		"-o", c.DataPath(expID),
		"--",
	)
	return append(argv, workload...)
}

// Run is a started capture process. Output collects the combined
// stdout/stderr of perf and the workload for post-mortem logging.
type Run struct {
	Cmd    *exec.Cmd
	Output *bytes.Buffer
}

// Start launches the workload under perf record and returns without
// waiting. The caller owns the wait and any teardown.
func (c *Capture) Start(expID string, workload []string) (*Run, error) {
	argv := c.RecordCommand(expID, workload)
	cmd := exec.Command(argv[0], argv[1:]...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start capture: %w", err)
	}
	return &Run{Cmd: cmd, Output: &out}, nil
}

// Render runs perf script over the recorded data, writing the text trace
// to the experiment's log path.
func (c *Capture) Render(expID string) error {
	out, err := os.Create(c.LogPath(expID))
	if err != nil {
		return fmt.Errorf("failed to create trace log: %w", err)
	}
	defer out.Close()

	var argv []string
	if c.cfg.Sudo {
		argv = append(argv, "sudo")
	}
	argv = append(argv, c.cfg.PerfBin, "script", "-i", c.DataPath(expID))

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = out
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("perf script failed: %w: %s", err, msg)
		}
		return fmt.Errorf("perf script failed: %w", err)
	}
	return nil
}

// RemoveData deletes the binary perf data once it has been rendered.
func (c *Capture) RemoveData(expID string) error {
	return os.Remove(c.DataPath(expID))
}

// RemoveLog deletes the rendered trace log once it has been parsed.
func (c *Capture) RemoveLog(expID string) error {
	return os.Remove(c.LogPath(expID))
}
