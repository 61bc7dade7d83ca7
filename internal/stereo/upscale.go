package stereo

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"spatialrip/internal/config"
	"spatialrip/internal/fileutil"
	"spatialrip/internal/logging"
	"spatialrip/internal/procrun"
	"spatialrip/internal/services"
	"spatialrip/internal/stage"
	"spatialrip/internal/workspace"
)

// Runner executes an external command to completion.
type Runner interface {
	Run(ctx context.Context, cmd procrun.Command) (string, error)
}

// Upscaler runs fx-upscale over eye movies.
type Upscaler struct {
	binary    string
	keepFiles bool
	runner    Runner
	logger    *slog.Logger
}

// NewUpscaler constructs an Upscaler.
func NewUpscaler(cfg config.Config, runner Runner, logger *slog.Logger) *Upscaler {
	return &Upscaler{
		binary:    cfg.Tools.FXUpscale,
		keepFiles: cfg.Pipeline.KeepFiles,
		runner:    runner,
		logger:    logging.NewComponentLogger(logger, "upscale"),
	}
}

// Upscale upscales path and returns the "<stem> Upscaled" file fx-upscale
// writes beside it. The input is removed unless files are kept.
func (u *Upscaler) Upscale(ctx context.Context, path string) (string, error) {
	out := workspace.Upscaled(path)
	stageName := stage.Upscale.String()
	if _, err := u.runner.Run(ctx, procrun.Command{
		Binary: u.binary,
		Args:   []string{path},
		Stage:  stageName,
		Label:  "Upscaling " + filepath.Base(path),
	}); err != nil {
		return "", err
	}
	if _, err := os.Stat(out); err != nil {
		return "", services.Wrap(services.ErrExternalTool, stageName, "upscale", fmt.Sprintf("fx-upscale did not produce %s", out), err)
	}
	if !u.keepFiles {
		if err := fileutil.RemoveIfExists(path); err != nil {
			u.logger.Debug("remove upscale input failed", logging.String("path", path), logging.Error(err))
		}
	}
	logging.WithContext(ctx, u.logger).Info("eye upscaled", logging.String("output", out))
	return out, nil
}
