package workload

import (
	"fmt"
	"sort"
	"strconv"

	"schedbench/core/models"
)

// Options carries host-level tuning applied to every stressor run.
type Options struct {
	// Taskset pins all stressors to the given CPU list (stress-ng
	// --taskset syntax, e.g. "2,3"). Empty pins nothing.
	Taskset string
}

// Command assembles the stress-ng argv for one experiment. When the
// request names a profile, the profile args define the stressor mix;
// otherwise the explicit worker fields do. The timeout always comes from
// the request so the sampling window and the workload agree on duration.
func Command(bin string, req models.Request, profile *Profile, opts Options) []string {
	argv := []string{bin}
	if opts.Taskset != "" {
		argv = append(argv, "--taskset", opts.Taskset)
	}
	// Reproducible stressor behavior across runs of the same config.
	argv = append(argv, "--no-rand-seed")

	if profile != nil {
		keys := make([]string, 0, len(profile.Args))
		for k := range profile.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			argv = append(argv, "--"+k)
			if v := profile.Args[k]; v != "" {
				argv = append(argv, v)
			}
		}
	} else {
		argv = append(argv, "--cpu", strconv.Itoa(req.CPUWorkers))
		if req.CPUMethod != "" {
			argv = append(argv, "--cpu-method", req.CPUMethod)
		}
		argv = append(argv, "--io", strconv.Itoa(req.IOWorkers))
		if req.VMWorkers > 0 {
			argv = append(argv,
				"--vm", strconv.Itoa(req.VMWorkers),
				"--vm-bytes", fmt.Sprintf("%dG", req.MemoryLoadGB),
				"--vm-populate",
				"--vm-hang", "1",
			)
		}
	}
	return append(argv, "--timeout", fmt.Sprintf("%gs", req.DurationSeconds))
}
