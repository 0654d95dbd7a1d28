// Package policy manages the scheduling policies an experiment can run
// under: the static table of known policies and the lifecycle of
// pluggable scheduler processes around a run.
package policy

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Entry describes one selectable scheduling policy. A policy with no
// command is built into the kernel and needs nothing launched; one with a
// command (typically a sched_ext userspace scheduler) is started before
// the workload and torn down after.
type Entry struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Command     []string `yaml:"command"`
}

// Builtin reports whether the policy runs without a helper process.
func (e Entry) Builtin() bool { return len(e.Command) == 0 }

type tableFile struct {
	Policies []Entry `yaml:"policies"`
}

// Table is the set of policies experiments may request.
type Table struct {
	entries map[string]Entry
}

// LoadTable reads and parses the policy table at path.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy table: %w", err)
	}
	return ParseTable(data)
}

// ParseTable parses YAML policy table content.
func ParseTable(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(file.Policies) == 0 {
		return nil, fmt.Errorf("policy table is empty")
	}
	table := &Table{entries: make(map[string]Entry, len(file.Policies))}
	for _, e := range file.Policies {
		if e.Name == "" {
			return nil, fmt.Errorf("policy with empty name in table")
		}
		if _, dup := table.entries[e.Name]; dup {
			return nil, fmt.Errorf("duplicate policy %q in table", e.Name)
		}
		table.entries[e.Name] = e
	}
	return table, nil
}

// Get looks up a policy by name.
func (t *Table) Get(name string) (Entry, bool) {
	e, ok := t.entries[name]
	return e, ok
}

// Names returns every policy name in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
