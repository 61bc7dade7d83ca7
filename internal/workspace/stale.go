package workspace

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spatialrip/internal/logging"
)

// DirInfo describes a work directory found in the output root.
type DirInfo struct {
	Name    string
	Path    string
	ModTime time.Time
	Size    int64
}

// CleanResult contains the outcome of a stale directory cleanup.
type CleanResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// ListWorkDirs returns the work directories under outputRoot. Only
// directories carrying the work marker are reported.
func ListWorkDirs(outputRoot string) ([]DirInfo, error) {
	outputRoot = strings.TrimSpace(outputRoot)
	if outputRoot == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(outputRoot)
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
		dirPath := filepath.Join(outputRoot, entry.Name())
		marker, err := os.Stat(filepath.Join(dirPath, markerName))
		if err != nil {
			continue
		}
		size, _ := dirSize(dirPath)
		modTime := marker.ModTime()
		if info, err := entry.Info(); err == nil && info.ModTime().After(modTime) {
			modTime = info.ModTime()
		}
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: modTime,
			Size:    size,
		})
	}
	return dirs, nil
}

// CleanStale removes work directories untouched for longer than maxAge.
func CleanStale(ctx context.Context, outputRoot string, maxAge time.Duration, logger *slog.Logger) CleanResult {
	result := CleanResult{}
	dirs, err := ListWorkDirs(outputRoot)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: outputRoot, Error: err})
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.WithContext(ctx, logger)

	cutoff := time.Now().Add(-maxAge)
	for _, dir := range dirs {
		if !dir.ModTime.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dir.Path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale work directory", "workspace_cleanup_failed",
				logging.String("path", dir.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check output_root permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dir.Path)
		logger.Info("removed stale work directory",
			logging.String("path", dir.Path),
			logging.Duration("age", time.Since(dir.ModTime)),
			logging.String(logging.FieldEventType, "workspace_cleanup"),
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
