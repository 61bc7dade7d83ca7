package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

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

// Transcoder converts PCM audio to AAC with ffmpeg.
type Transcoder struct {
	ffmpeg    string
	bitrate   int
	keepFiles bool
	runner    Runner
	logger    *slog.Logger
}

// NewTranscoder constructs a Transcoder.
func NewTranscoder(cfg config.Config, runner Runner, logger *slog.Logger) *Transcoder {
	return &Transcoder{
		ffmpeg:    cfg.Tools.FFmpeg,
		bitrate:   cfg.Audio.Bitrate,
		keepFiles: cfg.Pipeline.KeepFiles,
		runner:    runner,
		logger:    logging.NewComponentLogger(logger, "audio"),
	}
}

// Transcode writes an AAC rendition of input to output. The PCM input is
// removed afterwards unless files are kept.
func (t *Transcoder) Transcode(ctx context.Context, input, output string) error {
	stageName := stage.TranscodeAudio.String()
	bitrate := strconv.Itoa(t.bitrate) + "k"
	if _, err := t.runner.Run(ctx, procrun.Command{
		Binary: t.ffmpeg,
		Args: []string{
			"-y", "-hide_banner", "-nostdin",
			"-i", input,
			"-map", "0:a", "-c:a", "aac", "-b:a", bitrate,
			output,
		},
		Stage: stageName,
		Label: "Transcoding audio to AAC " + bitrate,
	}); err != nil {
		return err
	}
	if _, err := os.Stat(output); err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "transcode", fmt.Sprintf("ffmpeg did not produce %s", output), err)
	}
	if !t.keepFiles {
		if err := fileutil.RemoveIfExists(input); err != nil {
			t.logger.Debug("remove pcm audio failed", logging.String("path", input), logging.Error(err))
		}
	}
	logging.WithContext(ctx, t.logger).Info("audio transcoded",
		logging.String("output", output),
		logging.String("bitrate", bitrate),
	)
	return nil
}

// Select returns the audio file the muxer should use. A transcoded file left
// by an earlier run is reused when transcoding is enabled.
func Select(transcode bool, pcm, aac string) string {
	if transcode {
		if _, err := os.Stat(aac); err == nil {
			return aac
		}
	}
	return pcm
}
