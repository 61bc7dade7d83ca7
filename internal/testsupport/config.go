package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"spatialrip/internal/config"
	"spatialrip/internal/stage"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Spinners, keep-awake, and the free space floor are disabled.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputRoot = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.MinFreeGiB = 0
	cfgVal.Pipeline.KeepAwake = false
	cfgVal.Tools.FRIMDecode = filepath.Join(base, "FRIM", "FRIMDecode64.exe")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithStartStage overrides the first stage to run.
func WithStartStage(s stage.Stage) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.StartStage = s
	}
}

// WithKeepFiles retains intermediates in the work directory.
func WithKeepFiles() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Pipeline.KeepFiles = true
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, every configured tool that is
// resolved through PATH is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			tools := b.cfg.Tools
			names = []string{tools.MakeMKV, tools.FFmpeg, tools.FFprobe, tools.Wine,
				tools.SpatialMediaKit, tools.MP4Box, tools.FXUpscale, tools.SubtitleOCR}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputRoot)
}
