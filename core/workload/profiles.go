// Package workload assembles stress-ng invocations from experiment
// requests and the named profile atlas.
package workload

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Profile is one named stressor mix from the atlas. Args hold stress-ng
// long options without the leading dashes; an empty value emits a bare
// flag.
type Profile struct {
	Name        string            `yaml:"name"`
	Category    string            `yaml:"category"`
	Description string            `yaml:"description"`
	Args        map[string]string `yaml:"args"`
}

type atlasFile struct {
	Profiles []Profile `yaml:"profiles"`
}

// Atlas is the set of named stress profiles available to requests.
type Atlas struct {
	profiles map[string]Profile
}

// LoadAtlas reads and parses the profile atlas at path.
func LoadAtlas(path string) (*Atlas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile atlas: %w", err)
	}
	return ParseAtlas(data)
}

// ParseAtlas parses YAML atlas content and validates profile names.
func ParseAtlas(data []byte) (*Atlas, error) {
	var file atlasFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	atlas := &Atlas{profiles: make(map[string]Profile, len(file.Profiles))}
	for _, p := range file.Profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("profile with empty name in atlas")
		}
		if _, dup := atlas.profiles[p.Name]; dup {
			return nil, fmt.Errorf("duplicate profile %q in atlas", p.Name)
		}
		// The run duration always comes from the request, so a timeout
		// carried in from older atlas files is ignored.
		delete(p.Args, "timeout")
		if len(p.Args) == 0 {
			return nil, fmt.Errorf("profile %q has no args", p.Name)
		}
		atlas.profiles[p.Name] = p
	}
	return atlas, nil
}

// Get looks up a profile by name.
func (a *Atlas) Get(name string) (Profile, bool) {
	p, ok := a.profiles[name]
	return p, ok
}

// Names returns every profile name in sorted order.
func (a *Atlas) Names() []string {
	names := make([]string, 0, len(a.profiles))
	for name := range a.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of profiles loaded.
func (a *Atlas) Len() int { return len(a.profiles) }
