package main

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"spatialrip/internal/config"
	"spatialrip/internal/procrun"
	"spatialrip/internal/testsupport"
)

const robotInfo = `CINFO:2,0,"Hugo 3D"
TINFO:0,9,0,"2:06:12"
SINFO:0,1,7,0,"Mpeg4 MVC High@4.1"
SINFO:0,1,19,0,"1920x1080"
SINFO:0,1,21,0,"23.976 (24000/1001)"
`

const probeJSON = `{"streams":[
 {"index":0,"codec_type":"video","width":1920,"height":1080,"pix_fmt":"yuv420p","avg_frame_rate":"24000/1001"},
 {"index":1,"codec_type":"audio","channel_layout":"stereo","tags":{"language":"eng"}}
]}`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	exec       *testsupport.FakeExecutor
}

// setupCLITestEnv writes a config whose tools all resolve, with subtitles
// skipped and every external command answered by a fake executor.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Subtitles.Skip = true
	t.Setenv("HOME", filepath.Join(testsupport.BaseDir(cfg), "home"))
	testsupport.WriteFile(t, cfg.Tools.FRIMDecode, 8)

	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		configPath: configPath,
		exec:       testsupport.NewFakeExecutor(fakeTools),
	}
}

func fakeTools(cmd procrun.Command) (string, error) {
	args := cmd.Args
	last := ""
	if len(args) > 0 {
		last = args[len(args)-1]
	}
	switch cmd.Name() {
	case "makemkvcon":
		if slices.Contains(args, "info") {
			return robotInfo, nil
		}
		testsupport.Touch(filepath.Join(last, "title_t00.mkv"))
	case "ffprobe":
		return probeJSON, nil
	case "ffmpeg":
		for i, arg := range args {
			if arg == "h264" && i > 0 && args[i-1] == "-f" {
				testsupport.Touch(args[i+1])
			}
		}
		testsupport.Touch(last)
	case "spatial-media-kit-tool":
		if i := slices.Index(args, "-o"); i >= 0 {
			testsupport.Touch(args[i+1])
		}
	case "MP4Box":
		testsupport.Touch(last)
	}
	return "", nil
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ctx := newCommandContext()
	ctx.runnerOptions = []procrun.Option{procrun.WithExecutor(e.exec), procrun.WithSpinner(false)}
	cmd := newRootCommandWithContext(ctx)
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stdout)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
