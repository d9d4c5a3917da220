package preflight

import (
	"context"

	"oktabot/internal/config"
	"oktabot/internal/deps"
	"oktabot/internal/validation"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Channels directory", cfg.Paths.ChannelsDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDiskSpace("Free disk space", cfg.Paths.ChannelsDir, cfg.Preflight.MinFreeDiskMB),
		CheckMusic(validation.MusicFromConfig(cfg)),
	}

	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		results = append(results, fromStatus(status))
	}

	if cfg.Preflight.CheckLLM {
		results = append(results, CheckLLM(ctx, "LLM API", cfg.LLM))
	}
	return results
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}

func fromStatus(status deps.Status) Result {
	result := Result{Name: status.Name, Passed: status.Available, Optional: status.Optional}
	if status.Available {
		result.Detail = status.Command + " (found)"
	} else {
		result.Detail = status.Detail
	}
	return result
}
