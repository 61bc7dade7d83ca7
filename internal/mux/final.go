package mux

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"spatialrip/internal/config"
	"spatialrip/internal/fileutil"
	"spatialrip/internal/language"
	"spatialrip/internal/logging"
	"spatialrip/internal/media/ffprobe"
	"spatialrip/internal/procrun"
	"spatialrip/internal/services"
	"spatialrip/internal/stage"
	"spatialrip/internal/subtitles"
)

// forcedTextFlags marks a tx3g track as forced and always displayed.
const forcedTextFlags = "0xC0000000"

// AudioTrack describes one audio stream handed to the muxer.
type AudioTrack struct {
	// Selector picks the track out of the audio file, for example "audio" or
	// "trackID=2".
	Selector string
	Language string
	Layout   string
}

// Muxer writes the final container.
type Muxer struct {
	mp4box    string
	ffprobe   string
	language  string
	keepFiles bool
	runner    Runner
	logger    *slog.Logger
}

// NewMuxer constructs a Muxer.
func NewMuxer(cfg config.Config, runner Runner, logger *slog.Logger) *Muxer {
	return &Muxer{
		mp4box:    cfg.Tools.MP4Box,
		ffprobe:   cfg.Tools.FFprobe,
		language:  cfg.Source.Language,
		keepFiles: cfg.Pipeline.KeepFiles,
		runner:    runner,
		logger:    logging.NewComponentLogger(logger, "muxer"),
	}
}

// Mux writes video, every audio track in audio, and subs into out.
func (m *Muxer) Mux(ctx context.Context, video, audio string, subs []subtitles.File, out string) error {
	stageName := stage.MuxFinal.String()
	logger := logging.WithContext(ctx, m.logger)

	tracks := m.AudioTracks(ctx, audio)
	if err := fileutil.RemoveIfExists(out); err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "prepare", "remove previous output", err)
	}

	if _, err := m.runner.Run(ctx, procrun.Command{
		Binary: m.mp4box,
		Args:   m.Args(video, audio, tracks, subs, out),
		Stage:  stageName,
		Label:  "Muxing video, audio, and subtitles",
	}); err != nil {
		return err
	}
	if _, err := os.Stat(out); err != nil {
		return services.Wrap(services.ErrExternalTool, stageName, "mux", fmt.Sprintf("MP4Box did not produce %s", out), err)
	}

	if !m.keepFiles {
		for _, path := range []string{video, audio} {
			if rmErr := fileutil.RemoveIfExists(path); rmErr != nil {
				logger.Debug("remove mux input failed", logging.String("path", path), logging.Error(rmErr))
			}
		}
	}
	logger.Info("final container written",
		logging.String("output", out),
		logging.Int("audio_tracks", len(tracks)),
		logging.Int("subtitle_tracks", len(subs)),
	)
	return nil
}

// AudioTracks lists the audio streams in path. When ffprobe fails the whole
// file is added as one track tagged with the configured language.
func (m *Muxer) AudioTracks(ctx context.Context, path string) []AudioTrack {
	fallback := []AudioTrack{{Selector: "audio", Language: m.language}}
	result, err := ffprobe.Inspect(ctx, m.runner, m.ffprobe, path)
	if err != nil {
		logging.WithContext(ctx, m.logger).Warn("audio probe failed; using configured language",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "audio_probe_failed"),
		)
		return fallback
	}
	streams := result.StreamsOfType("audio")
	if len(streams) == 0 {
		return fallback
	}
	tracks := make([]AudioTrack, 0, len(streams))
	for _, s := range streams {
		lang := s.Language()
		if lang == "" || lang == "und" {
			lang = m.language
		}
		selector := "audio"
		if len(streams) > 1 {
			selector = "trackID=" + strconv.Itoa(s.Index+1)
		}
		tracks = append(tracks, AudioTrack{Selector: selector, Language: lang, Layout: s.ChannelLayout})
	}
	return tracks
}

// Args builds the MP4Box argument vector.
func (m *Muxer) Args(video, audio string, tracks []AudioTrack, subs []subtitles.File, out string) []string {
	args := []string{"-new", "-lang", language.ToISO3(m.language), "-add", video}
	for _, t := range tracks {
		name := strings.TrimSpace(language.DisplayName(t.Language) + " " + t.Layout)
		args = append(args, "-add", fmt.Sprintf("%s#%s:lang=%s:name=%s", audio, t.Selector, language.ToISO3(t.Language), name))
	}
	for _, sub := range subs {
		args = append(args, "-add", subtitleTrack(sub))
	}
	return append(args, out)
}

func subtitleTrack(sub subtitles.File) string {
	lang := sub.Language
	name := language.DisplayName(lang) + " Subtitles"
	if sub.Forced {
		name = language.DisplayName(lang) + " Forced Subtitles"
	}
	track := fmt.Sprintf("%s:hdlr=sbtl:group=2:lang=%s:name=%s", sub.Path, language.ToISO3(lang), name)
	if sub.Forced {
		track += ":txtflags=" + forcedTextFlags
	}
	return track + ":tx3g"
}
