package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"spatialrip/internal/config"
	"spatialrip/internal/history"
	"spatialrip/internal/logging"
	"spatialrip/internal/notifications"
	"spatialrip/internal/pipeline"
	"spatialrip/internal/power"
	"spatialrip/internal/preflight"
	"spatialrip/internal/procrun"
	"spatialrip/internal/runlock"
)

// session holds everything a processing command keeps open while it runs.
type session struct {
	cfg      config.Config
	logger   *slog.Logger
	runner   *procrun.Runner
	store    *history.Store
	lock     *runlock.Lock
	pipeline *pipeline.Pipeline
	notifier notifications.Service

	stop    context.CancelFunc
	done    chan struct{}
	release func()
}

// openSession takes the output-root lock, runs preflight, opens history, and
// starts the sleep inhibitor. The returned context is canceled on SIGINT or
// SIGTERM, which also terminates every external tool.
func (c *commandContext) openSession(parent context.Context, cfg config.Config, console io.Writer) (context.Context, *session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, err := c.newLogger(cfg, console)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		if errors.Is(err, runlock.ErrHeld) {
			return nil, nil, fmt.Errorf("another spatialrip run is using %s", cfg.Paths.OutputRoot)
		}
		return nil, nil, err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	s := &session{
		cfg:      cfg,
		logger:   logger,
		lock:     lock,
		notifier: notifications.NewService(cfg.Notifications),
		stop:     stop,
		done:     make(chan struct{}),
		release:  func() {},
	}

	results := preflight.RunAll(ctx, &cfg)
	for _, r := range results {
		if !r.Passed {
			logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldErrorHint, "run spatialrip deps for tool status"),
			)
		}
	}
	if err := preflight.Err(results); err != nil {
		s.close()
		return nil, nil, err
	}

	store, err := history.Open(ctx, &cfg)
	if err != nil {
		s.close()
		return nil, nil, err
	}
	s.store = store

	s.runner = c.newRunner(cfg, logger)
	s.pipeline = pipeline.New(cfg, s.runner, logger, pipeline.WithRecorder(store))
	if cfg.Pipeline.KeepAwake {
		s.release = power.Inhibit(ctx, s.runner, cfg.Paths.LogDir, logger)
	}

	go s.terminateOnInterrupt(ctx)
	return ctx, s, nil
}

func (s *session) terminateOnInterrupt(ctx context.Context) {
	select {
	case <-s.done:
		return
	case <-ctx.Done():
	}
	select {
	case <-s.done:
		return
	default:
	}
	s.logger.Warn("interrupt received; stopping external tools",
		logging.String(logging.FieldEventType, "interrupt"),
	)
	s.runner.Terminate(context.Background(), filepath.Base(s.cfg.Tools.FRIMDecode))
}

// notify pushes the outcome of one source. Skips and interrupts stay quiet.
func (s *session) notify(ctx context.Context, res pipeline.Result, err error) {
	ctx = context.WithoutCancel(ctx)
	var pushErr error
	switch res.Status {
	case history.StatusCompleted:
		pushErr = s.notifier.NotifyCompleted(ctx, res.Title, res.Output)
	case history.StatusFailed:
		title := res.Title
		if title == "" {
			title = res.Source
		}
		pushErr = s.notifier.NotifyFailed(ctx, title, err)
	}
	s.warnPush(pushErr)
}

func (s *session) warnPush(err error) {
	if err == nil {
		return
	}
	logging.WarnWithContext(s.logger, "notification failed", "notification_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
	)
}

func (s *session) close() {
	close(s.done)
	s.stop()
	s.release()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Debug("close history failed", logging.Error(err))
		}
	}
	if err := s.lock.Release(); err != nil {
		s.logger.Debug("release run lock failed", logging.Error(err))
	}
}
