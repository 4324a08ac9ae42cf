// Package workdir manages the per-run directories under the work dir, where
// the producer writes an archive before copying it to the output dir.
package workdir

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"bookforge/internal/logging"
)

// DirInfo describes one run directory.
type DirInfo struct {
	RunID   string
	Path    string
	ModTime time.Time
	Size    int64
}

// CleanResult contains the outcome of a cleanup pass.
type CleanResult struct {
	Removed []DirInfo
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// Bytes is the total size of the removed directories.
func (r CleanResult) Bytes() int64 {
	var total int64
	for _, d := range r.Removed {
		total += d.Size
	}
	return total
}

// List returns every run directory in workDir, oldest first. Plain files such
// as the run store database are skipped.
func List(workDir string) ([]DirInfo, error) {
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		dirPath := filepath.Join(workDir, entry.Name())
		size, _ := dirSize(dirPath)
		dirs = append(dirs, DirInfo{RunID: entry.Name(), Path: dirPath, ModTime: info.ModTime(), Size: size})
	}
	slices.SortFunc(dirs, func(a, b DirInfo) int { return a.ModTime.Compare(b.ModTime) })
	return dirs, nil
}

// Stale returns the run directories last modified before maxAge ago whose run
// id is not in keep.
func Stale(workDir string, maxAge time.Duration, keep map[string]struct{}) ([]DirInfo, error) {
	dirs, err := List(workDir)
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-maxAge)
	stale := dirs[:0]
	for _, d := range dirs {
		if _, active := keep[d.RunID]; active {
			continue
		}
		if d.ModTime.Before(cutoff) {
			stale = append(stale, d)
		}
	}
	return stale, nil
}

// CleanStale removes the directories Stale reports. It stops early when ctx is
// canceled.
func CleanStale(ctx context.Context, workDir string, maxAge time.Duration, keep map[string]struct{}, logger *slog.Logger) CleanResult {
	result := CleanResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	stale, err := Stale(workDir, maxAge, keep)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: workDir, Error: err})
		return result
	}

	for _, dir := range stale {
		if ctx.Err() != nil {
			break
		}
		if err := os.RemoveAll(dir.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir.Path, Error: err})
			logger.Warn("failed to remove stale run directory",
				logging.String("path", dir.Path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "workdir_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dir)
		logger.Info("removed stale run directory",
			logging.String("path", dir.Path),
			logging.String(logging.FieldRunID, dir.RunID),
			logging.Duration("age", time.Since(dir.ModTime)),
			logging.String(logging.FieldEventType, "workdir_cleanup"),
		)
	}
	return result
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
