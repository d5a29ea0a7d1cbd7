// Package deps reports whether the external tools subforge shells out to are
// installed.
package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"subforge/internal/config"
	"subforge/internal/media/command"
)

// Requirement defines an external binary subforge relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs prints a version banner when run, e.g. "--version".
	VersionArgs []string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Version     string
	Detail      string
}

// Requirements lists the tools the configuration needs. The prober the
// config does not select is optional.
func Requirements(cfg *config.Config) []Requirement {
	reqs := []Requirement{
		{
			Name:        "mkvmerge",
			Command:     cfg.Tools.Mkvmerge,
			Description: "Required for muxing releases",
			VersionArgs: []string{"--version"},
		},
		{
			Name:        "ffprobe",
			Command:     cfg.Tools.FFprobe,
			Description: "Reads premux track metadata when tools.prober is ffprobe",
			Optional:    cfg.Tools.Prober != config.ProberFFprobe,
			VersionArgs: []string{"-version"},
		},
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// DetectVersions fills Version for available tools using run. A tool that
// fails to report a version stays available with a detail note.
func DetectVersions(ctx context.Context, run command.Runner, requirements []Requirement, statuses []Status) {
	for i := range statuses {
		if !statuses[i].Available || i >= len(requirements) || len(requirements[i].VersionArgs) == 0 {
			continue
		}
		out, err := run(ctx, statuses[i].Command, requirements[i].VersionArgs...)
		if err != nil {
			statuses[i].Detail = "version check failed"
			continue
		}
		line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
		statuses[i].Version = strings.TrimSpace(line)
	}
}

// Missing returns the required tools that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
