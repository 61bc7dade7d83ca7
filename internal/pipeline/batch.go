package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"spatialrip/internal/disc"
	"spatialrip/internal/fileutil"
	"spatialrip/internal/history"
	"spatialrip/internal/logging"
	"spatialrip/internal/services"
	"spatialrip/internal/workspace"
)

// Sources lists the convertible inputs under root: Blu-ray folders and files
// with a source extension. Work directories are never descended into.
func Sources(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if workspace.IsWorkDir(path) {
				return filepath.SkipDir
			}
			if disc.IsDiscFolder(path) {
				out = append(out, path)
				return filepath.SkipDir
			}
			return nil
		}
		if fileutil.HasExtension(path, disc.SourceExtensions()...) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "", "scan", root, err)
	}
	sort.Strings(out)
	return out, nil
}

// BatchItem is one source's outcome.
type BatchItem struct {
	Source string
	Result Result
	Err    error
}

// BatchSummary collects every item of a batch.
type BatchSummary struct {
	Items    []BatchItem
	Duration time.Duration
}

// Count returns how many items ended in status.
func (s BatchSummary) Count(status history.Status) int {
	n := 0
	for _, item := range s.Items {
		if item.Result.Status == status {
			n++
		}
	}
	return n
}

// Failed returns the items that did not complete or skip.
func (s BatchSummary) Failed() []BatchItem {
	var out []BatchItem
	for _, item := range s.Items {
		if item.Err != nil && item.Result.Status != history.StatusSkipped {
			out = append(out, item)
		}
	}
	return out
}

// RunBatch converts every source under root in order. A failed item is
// logged and the batch moves on; cancellation stops it.
func (p *Pipeline) RunBatch(ctx context.Context, root string, decide Decider) (BatchSummary, error) {
	started := time.Now()
	summary := BatchSummary{}

	sources, err := Sources(root)
	if err != nil {
		return summary, err
	}
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("batch started",
		logging.String("folder", root),
		logging.Int("sources", len(sources)),
		logging.String(logging.FieldEventType, "batch_start"),
	)

	for i, path := range sources {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(started)
			return summary, services.Wrap(services.ErrCanceled, "", "batch", "interrupted", err)
		}
		item := BatchItem{Source: path}
		src, parseErr := disc.ParseSource(path)
		if parseErr != nil {
			item.Err = parseErr
			item.Result = Result{Source: path, Status: history.StatusFailed}
		} else {
			item.Result, item.Err = p.RunWithRecovery(ctx, src, decide)
		}
		summary.Items = append(summary.Items, item)

		if item.Err == nil {
			continue
		}
		if errors.Is(item.Err, services.ErrCanceled) {
			summary.Duration = time.Since(started)
			return summary, item.Err
		}
		if item.Result.Status == history.StatusSkipped {
			logger.Info("batch item skipped",
				logging.String("source", path),
				logging.String("reason", item.Err.Error()),
			)
			continue
		}
		logging.WarnWithContext(logger, "batch item failed; continuing", "batch_item_failed",
			logging.String("source", path),
			logging.String("progress", fmt.Sprintf("%d/%d", i+1, len(sources))),
			logging.String("error_kind", services.Kind(item.Err)),
			logging.Error(item.Err),
			logging.String(logging.FieldImpact, "item left unconverted"),
		)
	}

	summary.Duration = time.Since(started)
	logger.Info("batch complete",
		logging.Int("completed", summary.Count(history.StatusCompleted)),
		logging.Int("skipped", summary.Count(history.StatusSkipped)),
		logging.Int("failed", len(summary.Failed())),
		logging.Duration("duration", summary.Duration),
		logging.String(logging.FieldEventType, "batch_complete"),
	)
	return summary, nil
}
