package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneRunLogs removes run logs in dir whose modification time is older than
// retentionDays and returns how many were removed. Zero days disables pruning.
func PruneRunLogs(logger *slog.Logger, dir string, retentionDays int) int {
	if retentionDays <= 0 || strings.TrimSpace(dir) == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != runLogExt {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			if logger != nil {
				logger.Warn("run log prune failed",
					String("path", path),
					Error(err),
					String(FieldEventType, "run_log_prune_failed"),
					String(FieldErrorHint, "check permissions on the log directory"),
				)
			}
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Info("pruned run logs",
			String("dir", dir),
			Int("removed", removed),
			String(FieldEventType, "run_logs_pruned"),
		)
	}
	return removed
}
