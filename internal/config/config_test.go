package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"spatialrip/internal/config"
	"spatialrip/internal/stage"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, "Movies"); cfg.Paths.OutputRoot != want {
		t.Fatalf("unexpected output root: got %q want %q", cfg.Paths.OutputRoot, want)
	}
	if want := filepath.Join(tempHome, ".wine", "drive_c", "FRIM", "FRIMDecode64.exe"); cfg.Tools.FRIMDecode != want {
		t.Fatalf("unexpected decoder path: got %q want %q", cfg.Tools.FRIMDecode, want)
	}
	if cfg.Pipeline.StartStage != stage.CreateContainer {
		t.Fatalf("expected default start stage create_container, got %s", cfg.Pipeline.StartStage)
	}
	if !cfg.Pipeline.KeepAwake {
		t.Fatal("expected keep_awake enabled by default")
	}
	if cfg.Video.LeftRightBitrate != 20 || cfg.Video.MVHEVCQuality != 75 || cfg.Video.FieldOfView != 90 {
		t.Fatalf("unexpected video defaults: %+v", cfg.Video)
	}
	if cfg.Audio.Bitrate != 384 {
		t.Fatalf("unexpected audio bitrate default: %d", cfg.Audio.Bitrate)
	}
	if cfg.HistoryPath() != filepath.Join(tempHome, ".local", "share", "spatialrip", "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
}

func TestLoadCustomConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")
	content := `
[paths]
output_root = "~/spatial"

[pipeline]
start_stage = "combine-stereo"
keep_files = true

[source]
language = "GER"
frame_rate = "24000/1001"
resolution = "1920X1080"

[video]
swap_eyes = true
left_right_bitrate = 30

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected config to be read from %s, got %s (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.OutputRoot != filepath.Join(tempHome, "spatial") {
		t.Fatalf("unexpected output root %q", cfg.Paths.OutputRoot)
	}
	if cfg.Pipeline.StartStage != stage.CombineStereo {
		t.Fatalf("expected combine_stereo, got %s", cfg.Pipeline.StartStage)
	}
	if !cfg.Pipeline.KeepFiles || !cfg.Video.SwapEyes || cfg.Video.LeftRightBitrate != 30 {
		t.Fatalf("unexpected overrides: pipeline=%+v video=%+v", cfg.Pipeline, cfg.Video)
	}
	if cfg.Source.Language != "ger" || cfg.Source.Resolution != "1920x1080" {
		t.Fatalf("expected normalized source section, got %+v", cfg.Source)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging section, got %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := "[video]\nleft_right_bitrat = 25\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, _, _, err := config.Load(configPath)
	if err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
	if !strings.Contains(err.Error(), "left_right_bitrat") {
		t.Fatalf("expected offending key in error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"bitrate", func(c *config.Config) { c.Video.LeftRightBitrate = 0 }, "video.left_right_bitrate"},
		{"quality", func(c *config.Config) { c.Video.MVHEVCQuality = 101 }, "video.mv_hevc_quality"},
		{"fov", func(c *config.Config) { c.Video.FieldOfView = 0 }, "video.fov"},
		{"frames", func(c *config.Config) { c.Video.CropSampleFrames = 0 }, "video.crop_sample_frames"},
		{"audio", func(c *config.Config) { c.Audio.Bitrate = -1 }, "audio.bitrate"},
		{"language", func(c *config.Config) { c.Source.Language = "en" }, "source.language"},
		{"resolution", func(c *config.Config) { c.Source.Resolution = "1080p" }, "source.resolution"},
		{"frame rate", func(c *config.Config) { c.Source.FrameRate = "fast" }, "source.frame_rate"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"ntfy", func(c *config.Config) { c.Notifications.NtfyTopic = "my-rips" }, "notifications.ntfy_topic"},
		{"stage", func(c *config.Config) { c.Pipeline.StartStage = stage.Stage(99) }, "pipeline.start_stage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.OutputRoot = t.TempDir()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestToolEnvironmentOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SPATIALRIP_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")
	configPath := filepath.Join(t.TempDir(), "missing.toml")

	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Tools.FFmpeg != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("expected env override, got %q", cfg.Tools.FFmpeg)
	}
}

func TestDotEnvFileBesideConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	const key = "SPATIALRIP_MP4BOX"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(key+"=/usr/local/bin/MP4Box\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	configPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(configPath, []byte("[audio]\ntranscode = true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Tools.MP4Box != "/usr/local/bin/MP4Box" {
		t.Fatalf("expected .env override, got %q", cfg.Tools.MP4Box)
	}
	if !cfg.Audio.Transcode {
		t.Fatal("expected audio.transcode from file")
	}
}

func TestSampleConfigDecodesIntoSchema(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample config does not decode: %v", err)
	}
	if _, _, _, err := config.Load(target); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}

func TestEncodeRoundTripsStartStage(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.StartStage = stage.MuxFinal
	out, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(out, "start_stage = 'mux_final'") && !strings.Contains(out, `start_stage = "mux_final"`) {
		t.Fatalf("expected stage name in encoded config, got:\n%s", out)
	}
}
