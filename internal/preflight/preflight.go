package preflight

import (
	"context"

	"bookforge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// CheckDirectories verifies the directories a production run writes to.
func CheckDirectories(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}
}

// RunAll executes every applicable preflight check for the given config.
// Network checks are only run when the corresponding feature is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := CheckDirectories(cfg)
	results = append(results, CheckLLM(ctx, "Story LLM", cfg.LLM))

	if cfg.Storage.Enabled {
		results = append(results, CheckStorage(ctx, cfg.Storage))
	}
	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNotifications(ctx, cfg.Notifications))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
