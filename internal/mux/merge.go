package mux

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"spatialrip/internal/config"
	"spatialrip/internal/fileutil"
	"spatialrip/internal/logging"
	"spatialrip/internal/procrun"
	"spatialrip/internal/services"
	"spatialrip/internal/stage"
)

// Runner executes an external command to completion.
type Runner interface {
	Run(ctx context.Context, cmd procrun.Command) (string, error)
}

const (
	resolutionMismatch = "left and right input resolutions do not match. aborting!"
	mergeAborted       = "aborting!"
)

// Merger produces the MV-HEVC movie.
type Merger struct {
	binary    string
	quality   int
	fov       int
	keepFiles bool
	runner    Runner
	logger    *slog.Logger
}

// NewMerger constructs a Merger.
func NewMerger(cfg config.Config, runner Runner, logger *slog.Logger) *Merger {
	return &Merger{
		binary:    cfg.Tools.SpatialMediaKit,
		quality:   cfg.Video.MVHEVCQuality,
		fov:       cfg.Video.FieldOfView,
		keepFiles: cfg.Pipeline.KeepFiles,
		runner:    runner,
		logger:    logging.NewComponentLogger(logger, "merger"),
	}
}

// Merge combines left and right into out. The merge tool reports some
// failures only on its output, so that is checked even after a clean exit.
// colorDepth is recorded for diagnostics; the tool reads it from the inputs.
func (m *Merger) Merge(ctx context.Context, left, right, out string, colorDepth int) error {
	stageName := stage.CombineStereo.String()
	if err := fileutil.RemoveIfExists(out); err != nil {
		return services.Wrap(services.ErrMergeFailure, stageName, "prepare", "remove previous output", err)
	}

	cmd := procrun.Command{
		Binary: m.binary,
		Args: []string{
			"merge",
			"-l", left,
			"-r", right,
			"-q", strconv.Itoa(m.quality),
			"--left-is-primary",
			"--horizontal-field-of-view", strconv.Itoa(m.fov),
			"-o", out,
		},
		Stage:  stageName,
		Marker: services.ErrMergeFailure,
		Label:  "Combining stereo HEVC streams to MV-HEVC",
	}
	output, err := m.runner.Run(ctx, cmd)
	if err != nil {
		var toolErr *services.ToolError
		if errors.As(err, &toolErr) && strings.Contains(toolErr.Output, resolutionMismatch) {
			return services.NewToolError(services.ErrResolutionMismatch, stageName, cmd.Argv(), toolErr.Output,
				errors.New("left and right input resolutions do not match; try without AI upscaling"))
		}
		return err
	}
	if err := classifyMergeOutput(stageName, cmd, output); err != nil {
		return err
	}

	if !m.keepFiles {
		for _, path := range []string{left, right} {
			if rmErr := fileutil.RemoveIfExists(path); rmErr != nil {
				m.logger.Debug("remove eye movie failed", logging.String("path", path), logging.Error(rmErr))
			}
		}
	}
	logging.WithContext(ctx, m.logger).Info("mv-hevc merged",
		logging.String("output", out),
		logging.Int("quality", m.quality),
		logging.Int("fov", m.fov),
		logging.Int("color_depth", colorDepth),
	)
	return nil
}

func classifyMergeOutput(stageName string, cmd procrun.Command, output string) error {
	switch {
	case strings.Contains(output, resolutionMismatch):
		return services.NewToolError(services.ErrResolutionMismatch, stageName, cmd.Argv(), output,
			errors.New("left and right input resolutions do not match; try without AI upscaling"))
	case strings.Contains(output, mergeAborted):
		return services.NewToolError(services.ErrMergeFailure, stageName, cmd.Argv(), output,
			errors.New("failed to combine stereo HEVC streams to MV-HEVC"))
	}
	return nil
}
