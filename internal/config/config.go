package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"spatialrip/internal/stage"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputRoot string `toml:"output_root"`
	LogDir     string `toml:"log_dir"`
	StateDir   string `toml:"state_dir"`
	MinFreeGiB int    `toml:"min_free_gib"`
}

// Pipeline controls how a work item moves through the stages.
type Pipeline struct {
	StartStage      stage.Stage `toml:"start_stage"`
	Overwrite       bool        `toml:"overwrite"`
	KeepFiles       bool        `toml:"keep_files"`
	ContinueOnError bool        `toml:"continue_on_error"`
	RemoveOriginal  bool        `toml:"remove_original"`
	KeepAwake       bool        `toml:"keep_awake"`
	OutputCommands  bool        `toml:"output_commands"`
}

// Source contains probing and ripping preferences.
type Source struct {
	Language             string `toml:"language"`
	FrameRate            string `toml:"frame_rate"`
	Resolution           string `toml:"resolution"`
	RemoveExtraLanguages bool   `toml:"remove_extra_languages"`
}

// Video contains per-eye encode and merge settings.
type Video struct {
	LeftRightBitrate int  `toml:"left_right_bitrate"`
	MVHEVCQuality    int  `toml:"mv_hevc_quality"`
	FieldOfView      int  `toml:"fov"`
	SoftwareEncoder  bool `toml:"software_encoder"`
	SwapEyes         bool `toml:"swap_eyes"`
	FXUpscale        bool `toml:"fx_upscale"`
	CropBlackBars    bool `toml:"crop_black_bars"`
	CropSampleOffset int  `toml:"crop_sample_offset"`
	CropSampleFrames int  `toml:"crop_sample_frames"`
}

// Audio contains audio transcode settings.
type Audio struct {
	Transcode bool `toml:"transcode"`
	Bitrate   int  `toml:"bitrate"`
}

// Subtitles contains subtitle extraction settings.
type Subtitles struct {
	Skip bool `toml:"skip"`
}

// Tools lists the external binaries the pipeline drives.
type Tools struct {
	MakeMKV         string `toml:"makemkvcon"`
	FFmpeg          string `toml:"ffmpeg"`
	FFprobe         string `toml:"ffprobe"`
	Wine            string `toml:"wine"`
	FRIMDecode      string `toml:"frim_decode"`
	SpatialMediaKit string `toml:"spatial_media_kit"`
	MP4Box          string `toml:"mp4box"`
	FXUpscale       string `toml:"fx_upscale"`
	SubtitleOCR     string `toml:"subtitle_ocr"`
}

// Watch contains folder and disc watcher settings.
type Watch struct {
	SettleSeconds int    `toml:"settle_seconds"`
	OpticalDevice string `toml:"optical_device"`
}

// Notifications contains ntfy push settings. An empty topic disables them.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values.
//
// Sections:
//   - Paths: output root, log and state directories, free space floor
//   - Pipeline: start stage and run-level policies
//   - Source: language and operator overrides for probed values
//   - Video: per-eye bitrate, merge quality, crop, upscale
//   - Audio: AAC transcode
//   - Subtitles: OCR stage toggle
//   - Tools: external binary paths
//   - Watch: folder settle time and optical device
//   - Notifications: ntfy topic for completion and failure pushes
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Source        Source        `toml:"source"`
	Video         Video         `toml:"video"`
	Audio         Audio         `toml:"audio"`
	Subtitles     Subtitles     `toml:"subtitles"`
	Tools         Tools         `toml:"tools"`
	Watch         Watch         `toml:"watch"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Unknown keys are rejected.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	loadDotEnv(filepath.Dir(resolvedPath))

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config %s: unknown keys:\n%s", resolvedPath, strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("spatialrip.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadDotEnv reads .env files from the working directory and the config
// directory. Variables already present in the environment win.
func loadDotEnv(configDir string) {
	candidates := []string{".env"}
	if configDir != "" {
		candidates = append(candidates, filepath.Join(configDir, ".env"))
	}
	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err != nil || info.IsDir() {
			continue
		}
		_ = godotenv.Load(candidate)
	}
}

// EnsureDirectories creates the output root, log, and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputRoot, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the SQLite ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the run lock file inside the output root.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.OutputRoot, ".spatialrip.lock")
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(data), nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
