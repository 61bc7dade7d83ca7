package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"spatialrip/internal/config"
	"spatialrip/internal/fileutil"
	"spatialrip/internal/logging"
	"spatialrip/internal/media/ffprobe"
	"spatialrip/internal/procrun"
	"spatialrip/internal/services"
	"spatialrip/internal/stage"
)

// Runner executes an external command to completion.
type Runner interface {
	Run(ctx context.Context, cmd procrun.Command) (string, error)
}

// Extractor copies the elementary streams the splitter and muxer consume.
type Extractor struct {
	ffmpeg  string
	ffprobe string
	runner  Runner
	logger  *slog.Logger
}

// New constructs an Extractor.
func New(cfg config.Config, runner Runner, logger *slog.Logger) *Extractor {
	return &Extractor{
		ffmpeg:  cfg.Tools.FFmpeg,
		ffprobe: cfg.Tools.FFprobe,
		runner:  runner,
		logger:  logging.NewComponentLogger(logger, "extract"),
	}
}

// ExtractStreams writes the first video stream as an Annex-B bitstream to
// videoOut and decodes the first audio stream to 24-bit PCM in audioOut. Both
// outputs exist afterwards or neither does.
func (e *Extractor) ExtractStreams(ctx context.Context, container, videoOut, audioOut string) error {
	cmd := procrun.Command{
		Binary: e.ffmpeg,
		Args: []string{
			"-y", "-hide_banner", "-nostdin",
			"-i", container,
			"-map", "0:v:0", "-c:v", "copy", "-bsf:v", "h264_mp4toannexb", "-f", "h264", videoOut,
			"-map", "0:a:0", "-c:a", "pcm_s24le", audioOut,
		},
		Stage: stage.ExtractStreams.String(),
		Label: "Extracting MVC video and PCM audio",
	}
	if _, err := e.runner.Run(ctx, cmd); err != nil {
		e.discard(videoOut, audioOut)
		return err
	}
	for _, path := range []string{videoOut, audioOut} {
		if info, err := os.Stat(path); err != nil || info.Size() == 0 {
			e.discard(videoOut, audioOut)
			return services.Wrap(services.ErrExternalTool, cmd.Stage, "extract streams",
				fmt.Sprintf("ffmpeg did not produce %s", path), err)
		}
	}
	logging.WithContext(ctx, e.logger).Info("streams extracted",
		logging.String("video", videoOut),
		logging.String("audio", audioOut),
	)
	return nil
}

func (e *Extractor) discard(paths ...string) {
	for _, path := range paths {
		if err := fileutil.RemoveIfExists(path); err != nil {
			e.logger.Debug("remove partial output failed", logging.String("path", path), logging.Error(err))
		}
	}
}

// ColorDepth returns 10 or 8 for the first video stream in path. Probe
// failures are logged and reported as 8-bit.
func (e *Extractor) ColorDepth(ctx context.Context, path string) int {
	result, err := ffprobe.Inspect(ctx, e.runner, e.ffprobe, path)
	if err == nil {
		if video, ok := result.FirstVideo(); ok {
			return video.ColorDepth()
		}
		err = errors.New("no video stream")
	}
	logging.WarnWithContext(logging.WithContext(ctx, e.logger), "colour depth probe failed; assuming 8-bit", "color_depth_fallback",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "verify ffprobe can read the extracted bitstream"),
		logging.String(logging.FieldImpact, "10-bit sources will be encoded as 8-bit"),
	)
	return 8
}
