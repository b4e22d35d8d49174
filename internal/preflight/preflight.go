package preflight

import (
	"context"

	"thepipe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Runtime directory (always checked); sockets and locks live here.
	results = append(results, CheckDirectoryAccess("Runtime directory", cfg.Paths.RuntimeDir))
	results = append(results, CheckSocketPath(cfg.Paths.RuntimeDir))

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))

	if cfg.Journal.Enabled {
		results = append(results, CheckJournal(ctx, cfg))
	}

	return results
}

// Failed reports whether any result did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}
