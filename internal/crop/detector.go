package crop

import (
	"context"
	"log/slog"
	"strconv"

	"spatialrip/internal/config"
	"spatialrip/internal/logging"
	"spatialrip/internal/procrun"
)

// Runner executes an external command to completion.
type Runner interface {
	Run(ctx context.Context, cmd procrun.Command) (string, error)
}

// Detector runs cropdetect over a sampling window.
type Detector struct {
	enabled bool
	ffmpeg  string
	offset  int
	frames  int
	runner  Runner
	logger  *slog.Logger
}

// NewDetector constructs a Detector from the video settings.
func NewDetector(cfg config.Config, runner Runner, logger *slog.Logger) *Detector {
	return &Detector{
		enabled: cfg.Video.CropBlackBars,
		ffmpeg:  cfg.Tools.FFmpeg,
		offset:  cfg.Video.CropSampleOffset,
		frames:  cfg.Video.CropSampleFrames,
		runner:  runner,
		logger:  logging.NewComponentLogger(logger, "crop"),
	}
}

// Enabled reports whether crop detection is configured.
func (d *Detector) Enabled() bool {
	return d.enabled
}

// Detect samples path and returns the aggregated rectangle. It reports false
// when detection is disabled or ffmpeg proposed nothing.
func (d *Detector) Detect(ctx context.Context, path string) (Rect, bool, error) {
	if !d.enabled {
		return Rect{}, false, nil
	}
	logger := logging.WithContext(ctx, d.logger)
	out, err := d.runner.Run(ctx, procrun.Command{
		Binary: d.ffmpeg,
		Args: []string{
			"-hide_banner", "-nostdin",
			"-ss", strconv.Itoa(d.offset),
			"-i", path,
			"-vframes", strconv.Itoa(d.frames),
			"-vf", "cropdetect",
			"-f", "null", "-",
		},
		Stage: "crop_detect",
		Label: "Detecting black bars",
	})
	if err != nil {
		return Rect{}, false, err
	}

	samples := Parse(out)
	rect, ok := Aggregate(samples)
	if !ok {
		logger.Info("no crop proposals found", logging.String("path", path))
		return Rect{}, false, nil
	}
	logger.Info("crop detected",
		logging.String("crop", rect.String()),
		logging.String("aspect_ratio", rect.AspectRatio()),
		logging.Int("samples", len(samples)),
	)
	return rect, true, nil
}
