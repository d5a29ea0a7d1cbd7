package preflight

import (
	"errors"
	"strings"

	"subforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the directory and free-space checks. outputDir is the
// release destination; empty skips its free-space check.
func RunAll(cfg *config.Config, outputDir string) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckFreeSpace("Work free space", cfg.Paths.WorkDir, cfg.Build.MinFreeGiB),
	}
	if strings.TrimSpace(outputDir) != "" {
		results = append(results, CheckFreeSpace("Output free space", outputDir, cfg.Build.MinFreeGiB))
	}
	return results
}

// Failed joins the failing results into one error, or returns nil.
func Failed(results []Result) error {
	var errs []error
	for _, r := range results {
		if !r.Passed {
			errs = append(errs, errors.New(r.Name+": "+r.Detail))
		}
	}
	return errors.Join(errs...)
}
