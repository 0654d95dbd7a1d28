package policy

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Manager owns the scheduler helper process for a single run. Built-in
// policies make Start and Stop no-ops, so callers treat every policy
// uniformly.
type Manager struct {
	entry Entry
	sudo  bool
	grace time.Duration

	cmd  *exec.Cmd
	done chan error
}

// NewManager prepares a manager for one run under entry. grace bounds how
// long Stop waits after SIGTERM before escalating to SIGKILL.
func NewManager(entry Entry, sudo bool, grace time.Duration) *Manager {
	return &Manager{entry: entry, sudo: sudo, grace: grace}
}

// Start launches the scheduler process in its own session so signals
// aimed at it never reach the server. Returns immediately for built-in
// policies.
func (m *Manager) Start() error {
	if m.entry.Builtin() {
		return nil
	}
	argv := m.entry.Command
	if m.sudo {
		argv = append([]string{"sudo"}, argv...)
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler %s: %w", m.entry.Name, err)
	}
	m.cmd = cmd
	m.done = make(chan error, 1)
	go func() { m.done <- cmd.Wait() }()
	log.Printf("Started scheduler %s (pid %d)", m.entry.Name, cmd.Process.Pid)
	return nil
}

// Stop terminates the scheduler process: SIGTERM, a bounded wait, then
// SIGKILL. A scheduler that already exited counts as stopped. Stop is
// idempotent.
func (m *Manager) Stop() error {
	if m.cmd == nil {
		return nil
	}
	cmd := m.cmd
	m.cmd = nil

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			<-m.done
			return nil
		}
		return fmt.Errorf("failed to signal scheduler %s: %w", m.entry.Name, err)
	}

	select {
	case <-m.done:
		return nil
	case <-time.After(m.grace):
		log.Printf("Scheduler %s did not terminate gracefully, forcing kill", m.entry.Name)
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("failed to kill scheduler %s: %w", m.entry.Name, err)
		}
		<-m.done
		return nil
	}
}
