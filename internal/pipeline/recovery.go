package pipeline

import (
	"context"
	"errors"

	"spatialrip/internal/config"
	"spatialrip/internal/disc"
	"spatialrip/internal/logging"
	"spatialrip/internal/services"
	"spatialrip/internal/stage"
)

// Recovery is a way to continue after a recoverable failure: set one option
// and resume at Start.
type Recovery struct {
	Kind        string
	Description string
	Start       stage.Stage
	apply       func(*config.Config)
}

// Apply returns a copy of cfg with the recovery's option set and the start
// stage advanced.
func (r Recovery) Apply(cfg config.Config) config.Config {
	if r.apply != nil {
		r.apply(&cfg)
	}
	cfg.Pipeline.StartStage = r.Start
	return cfg
}

// RecoveryFor maps err to a recovery for a run configured with cfg. It
// reports false when err is not recoverable or the option it would set is
// already set.
func RecoveryFor(err error, cfg config.Config) (Recovery, bool) {
	if !services.Recoverable(err) {
		return Recovery{}, false
	}
	start := cfg.Pipeline.StartStage
	switch {
	case errors.Is(err, services.ErrRipDiagnostic):
		if cfg.Pipeline.ContinueOnError {
			return Recovery{}, false
		}
		return Recovery{
			Kind:        services.Kind(err),
			Description: "continue despite rip errors and resume at " + stage.ExtractStreams.String(),
			Start:       max(start, stage.ExtractStreams),
			apply:       func(c *config.Config) { c.Pipeline.ContinueOnError = true },
		}, true
	case errors.Is(err, services.ErrSubtitleExtraction):
		if cfg.Subtitles.Skip {
			return Recovery{}, false
		}
		return Recovery{
			Kind:        services.Kind(err),
			Description: "skip subtitles and resume after stream extraction",
			Start:       max(start, stage.ExtractSubtitles),
			apply:       func(c *config.Config) { c.Subtitles.Skip = true },
		}, true
	case errors.Is(err, services.ErrOutputExists):
		if cfg.Pipeline.Overwrite {
			return Recovery{}, false
		}
		return Recovery{
			Kind:        services.Kind(err),
			Description: "overwrite the existing output",
			Start:       start,
			apply:       func(c *config.Config) { c.Pipeline.Overwrite = true },
		}, true
	}
	return Recovery{}, false
}

// Decider approves a recovery for err. A nil Decider approves nothing.
type Decider func(ctx context.Context, r Recovery, err error) bool

// AlwaysRecover approves every recovery.
func AlwaysRecover(context.Context, Recovery, error) bool { return true }

// RunWithRecovery runs src and, while decide approves, applies the recovery
// for each recoverable failure and runs again from the recovery's start
// stage. Every recovery sets a different option, so the loop is bounded.
func (p *Pipeline) RunWithRecovery(ctx context.Context, src disc.Source, decide Decider) (Result, error) {
	current := p
	for {
		res, err := current.Run(ctx, src)
		if err == nil || decide == nil {
			return res, err
		}
		recovery, ok := RecoveryFor(err, current.cfg)
		if !ok || !decide(ctx, recovery, err) {
			return res, err
		}
		logging.WithContext(ctx, p.logger).Info("applying recovery",
			logging.String("source", src.String()),
			logging.String("error_kind", recovery.Kind),
			logging.String("recovery", recovery.Description),
			logging.String("start_stage", recovery.Start.String()),
			logging.String(logging.FieldEventType, "recovery_applied"),
		)
		current = current.WithConfig(recovery.Apply(current.cfg))
	}
}
