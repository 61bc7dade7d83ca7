package subtitles

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"spatialrip/internal/config"
	"spatialrip/internal/language"
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

// Track is one subtitle stream in the container.
type Track struct {
	Index    int
	Language string
	Default  bool
	Forced   bool
}

// File is an SRT produced by OCR.
type File struct {
	Path     string
	Language string
	Forced   bool
}

// Extractor runs subtitle OCR.
type Extractor struct {
	ffprobe         string
	ocr             string
	language        string
	continueOnError bool
	keepFiles       bool
	runner          Runner
	logger          *slog.Logger
}

// New constructs an Extractor.
func New(cfg config.Config, runner Runner, logger *slog.Logger) *Extractor {
	return &Extractor{
		ffprobe:         cfg.Tools.FFprobe,
		ocr:             cfg.Tools.SubtitleOCR,
		language:        cfg.Source.Language,
		continueOnError: cfg.Pipeline.ContinueOnError,
		keepFiles:       cfg.Pipeline.KeepFiles,
		runner:          runner,
		logger:          logging.NewComponentLogger(logger, "subtitles"),
	}
}

// Tracks lists the container's subtitle streams.
func (e *Extractor) Tracks(ctx context.Context, container string) ([]Track, error) {
	result, err := ffprobe.Inspect(ctx, e.runner, e.ffprobe, container)
	if err != nil {
		return nil, services.Wrap(services.ErrSubtitleExtraction, stage.ExtractSubtitles.String(), "probe", container, err)
	}
	var tracks []Track
	for _, s := range result.StreamsOfType("subtitle") {
		tracks = append(tracks, Track{
			Index:    s.Index,
			Language: s.Language(),
			Default:  s.IsDefault(),
			Forced:   s.IsForced(),
		})
	}
	return tracks, nil
}

// Extract OCRs the configured language's subtitle tracks in container into
// SRT files in the container's directory. Missing tracks or empty OCR output
// fail with services.ErrSubtitleExtraction unless continue_on_error is set.
func (e *Extractor) Extract(ctx context.Context, container string) ([]File, error) {
	logger := logging.WithContext(ctx, e.logger)
	dir := filepath.Dir(container)
	stageName := stage.ExtractSubtitles.String()

	tracks, err := e.Tracks(ctx, container)
	if err != nil {
		return nil, err
	}
	tracks = filterLanguage(tracks, e.language)
	if len(tracks) == 0 {
		if e.continueOnError {
			logger.Info("no subtitle tracks found; continuing without subtitles",
				logging.String("language", e.language))
			return nil, nil
		}
		return nil, services.Wrap(services.ErrSubtitleExtraction, stageName, "enumerate",
			fmt.Sprintf("no %s subtitle tracks found in source", language.DisplayName(e.language)), nil)
	}

	if err := removeSRT(dir); err != nil {
		return nil, services.Wrap(services.ErrSubtitleExtraction, stageName, "clear", dir, err)
	}

	args := []string{"--force", "--all"}
	if iso2 := language.ToISO2(e.language); iso2 != "" {
		args = append(args, "--language", iso2)
	}
	if e.keepFiles {
		args = append(args, "--keep-temp-files")
	}
	args = append(args, container)
	if _, err := e.runner.Run(ctx, procrun.Command{
		Binary: e.ocr,
		Args:   args,
		Dir:    dir,
		Stage:  stageName,
		Marker: services.ErrSubtitleExtraction,
		Label:  "Converting subtitles to SRT",
	}); err != nil {
		if e.continueOnError {
			logging.WarnWithContext(logger, "subtitle OCR failed; continuing without subtitles", "subtitle_ocr_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run with subtitles.skip to silence this step"),
				logging.String(logging.FieldImpact, "output will have no subtitles"),
			)
			return nil, nil
		}
		return nil, err
	}

	paths, err := nonEmptySRT(dir)
	if err != nil {
		return nil, services.Wrap(services.ErrSubtitleExtraction, stageName, "collect", dir, err)
	}
	if len(paths) == 0 {
		if e.continueOnError {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrSubtitleExtraction, stageName, "collect", "no SRT subtitle files with data created", nil)
	}

	if forced, ok := forcedLanguage(tracks); ok {
		paths = markForced(paths, forced, logger)
	}
	files := Collect(paths)
	logger.Info("subtitles extracted", logging.Int("files", len(files)))
	return files, nil
}

// Existing returns the SRT files a previous run left in dir.
func Existing(dir string) ([]File, error) {
	paths, err := nonEmptySRT(dir)
	if err != nil {
		return nil, err
	}
	return Collect(paths), nil
}

// Collect describes SRT paths from their "<stem>[.forced].<lang>.srt" names.
func Collect(paths []string) []File {
	files := make([]File, 0, len(paths))
	for _, path := range paths {
		files = append(files, describe(path))
	}
	return files
}

func describe(path string) File {
	parts := strings.Split(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), ".")
	file := File{Path: path, Language: "und"}
	if len(parts) >= 2 {
		file.Language = language.ToISO3(parts[len(parts)-1])
		for _, part := range parts[1 : len(parts)-1] {
			if strings.EqualFold(part, "forced") {
				file.Forced = true
			}
		}
	}
	return file
}

func filterLanguage(tracks []Track, lang string) []Track {
	if strings.TrimSpace(lang) == "" {
		return tracks
	}
	var out []Track
	for _, t := range tracks {
		if language.Matches(t.Language, lang) {
			out = append(out, t)
		}
	}
	return out
}

func forcedLanguage(tracks []Track) (string, bool) {
	for _, t := range tracks {
		if t.Forced {
			return t.Language, true
		}
	}
	return "", false
}

// markForced renames the first SRT of lang to "<stem>.forced.<iso2>.srt" when
// that language produced more than one file; a lone file is the full track.
func markForced(paths []string, lang string, logger *slog.Logger) []string {
	iso2 := language.ToISO2(lang)
	if iso2 == "" {
		return paths
	}
	suffix := "." + iso2 + ".srt"
	var matches []int
	for i, p := range paths {
		if strings.HasSuffix(strings.ToLower(p), suffix) {
			matches = append(matches, i)
		}
	}
	if len(matches) < 2 {
		logger.Info("forced subtitle decision",
			logging.String(logging.FieldDecisionType, "forced_subtitle_rename"),
			logging.String("decision_result", "skipped"),
			logging.String("decision_reason", "single_track_for_language"),
			logging.String("language", lang),
		)
		return paths
	}
	idx := matches[0]
	src := paths[idx]
	dst := src[:len(src)-len(suffix)] + ".forced" + suffix
	if err := os.Rename(src, dst); err != nil {
		logging.WarnWithContext(logger, "could not mark forced subtitle", "subtitle_forced_rename_failed",
			logging.String("path", src),
			logging.Error(err),
			logging.String(logging.FieldImpact, "forced subtitles muxed as a regular track"),
		)
		return paths
	}
	logger.Info("forced subtitle decision",
		logging.String(logging.FieldDecisionType, "forced_subtitle_rename"),
		logging.String("decision_result", "renamed"),
		logging.String("path", dst),
	)
	out := append([]string(nil), paths...)
	out[idx] = dst
	return out
}

func removeSRT(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.srt"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// nonEmptySRT deletes zero-byte SRT files in dir and returns the rest, sorted.
func nonEmptySRT(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.srt"))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if info.Size() == 0 {
			_ = os.Remove(m)
			continue
		}
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}
