package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RunLogRetention selects the per-run log files to prune. Only "*.log" files
// directly under Dir are considered.
type RunLogRetention struct {
	Dir  string
	Days int
	// Keep lists paths that are never removed, such as the log of the run
	// that just finished.
	Keep []string
	// Now overrides the clock in tests.
	Now func() time.Time
}

// PruneReport lists what a retention pass removed.
type PruneReport struct {
	Removed []string
	Failed  int
}

// PruneRunLogs deletes run logs older than the retention window. Days <= 0
// disables pruning. Removal failures are logged and counted, never returned.
func PruneRunLogs(logger *slog.Logger, policy RunLogRetention) PruneReport {
	var report PruneReport
	dir := strings.TrimSpace(policy.Dir)
	if policy.Days <= 0 || dir == "" {
		return report
	}
	now := time.Now
	if policy.Now != nil {
		now = policy.Now
	}
	cutoff := now().AddDate(0, 0, -policy.Days)

	keep := make(map[string]struct{}, len(policy.Keep))
	for _, p := range policy.Keep {
		if abs := absPath(p); abs != "" {
			keep[abs] = struct{}{}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return report
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".log" {
			continue
		}
		path := absPath(filepath.Join(dir, entry.Name()))
		if _, ok := keep[path]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			report.Failed++
			WarnWithContext(logger, "run log retention failed; file remains", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on log_dir/runs"),
				String(FieldImpact, "old run log stays on disk"),
			)
			continue
		}
		report.Removed = append(report.Removed, path)
	}
	if logger != nil && len(report.Removed) > 0 {
		logger.Info("run logs pruned",
			String(FieldEventType, "log_pruned"),
			Int("removed", len(report.Removed)),
			Int("retention_days", policy.Days),
		)
	}
	return report
}

func absPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
