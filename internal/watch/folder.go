package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"spatialrip/internal/disc"
	"spatialrip/internal/fileutil"
	"spatialrip/internal/logging"
	"spatialrip/internal/workspace"
)

// Handler processes one settled source.
type Handler func(ctx context.Context, source string)

// FolderWatcher emits new sources appearing under a directory tree.
type FolderWatcher struct {
	root   string
	settle time.Duration
	poll   time.Duration
	logger *slog.Logger
}

// NewFolderWatcher constructs a FolderWatcher for root.
func NewFolderWatcher(root string, settle time.Duration, logger *slog.Logger) *FolderWatcher {
	if settle <= 0 {
		settle = 30 * time.Second
	}
	return &FolderWatcher{
		root:   filepath.Clean(root),
		settle: settle,
		poll:   min(settle/2, time.Second),
		logger: logging.NewComponentLogger(logger, "folder-watch"),
	}
}

// Run watches until ctx is done. It returns nil on cancellation.
func (w *FolderWatcher) Run(ctx context.Context, handle Handler) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := w.addTree(watcher, w.root); err != nil {
		return err
	}
	w.logger.Info("watching folder",
		logging.String("root", w.root),
		logging.Duration("settle", w.settle),
		logging.String(logging.FieldEventType, "folder_watch_started"),
	)

	tracker := newSettleTracker(w.settle)
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("folder watch stopped", logging.String(logging.FieldEventType, "folder_watch_stopped"))
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(watcher, tracker, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("folder watch error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "folder_watch_error"),
				logging.String(logging.FieldImpact, "some new files may be missed"),
			)
		case now := <-ticker.C:
			if tracker.size() == 0 {
				continue
			}
			for _, source := range tracker.due(now, sourceSize) {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Info("source settled",
					logging.String("source", source),
					logging.String(logging.FieldEventType, "source_settled"),
				)
				handle(ctx, source)
			}
		}
	}
}

func (w *FolderWatcher) handleEvent(watcher *fsnotify.Watcher, tracker *settleTracker, event fsnotify.Event) {
	if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		tracker.forget(event.Name)
		return
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() && event.Op.Has(fsnotify.Create) {
		if err := w.addTree(watcher, event.Name); err != nil {
			w.logger.Debug("watch subdirectory failed", logging.String("path", event.Name), logging.Error(err))
		}
	}
	source, ok := SourceFor(w.root, event.Name)
	if !ok {
		return
	}
	w.logger.Debug("source activity", logging.String("source", source), logging.String("op", event.Op.String()))
	tracker.touch(source, time.Now())
}

// addTree watches dir and every subdirectory that is not a work directory.
func (w *FolderWatcher) addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return fmt.Errorf("watch %s: %w", dir, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if workspace.IsWorkDir(path) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// SourceFor maps a changed path under root to the source it belongs to: the
// enclosing disc folder when there is one, otherwise the file itself when it
// has a supported extension. Paths inside work directories never map.
func SourceFor(root, path string) (string, bool) {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}

	var folder string
	current := root
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, part)
		if workspace.IsWorkDir(current) {
			return "", false
		}
		if folder == "" && disc.IsDiscFolder(current) {
			folder = current
		}
	}
	if folder != "" {
		return folder, true
	}
	if fileutil.HasExtension(path, disc.SourceExtensions()...) {
		return path, true
	}
	return "", false
}

func sourceSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	size, err := workspace.Size(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0, err
	}
	return size, nil
}
