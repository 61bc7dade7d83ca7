package pipeline_test

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"spatialrip/internal/config"
	"spatialrip/internal/logging"
	"spatialrip/internal/pipeline"
	"spatialrip/internal/procrun"
	"spatialrip/internal/testsupport"
	"spatialrip/internal/workspace"
)

const robotInfo = `CINFO:2,0,"Hugo 3D"
TINFO:0,9,0,"0:05:00"
SINFO:0,1,7,0,"Mpeg4 AVC High@L4.1"
TINFO:1,9,0,"2:06:12"
SINFO:1,1,7,0,"Mpeg4 MVC High@4.1"
SINFO:1,1,19,0,"1920x1080"
SINFO:1,1,21,0,"23.976 (24000/1001)"
`

const probeJSON = `{"streams":[
 {"index":0,"codec_type":"video","width":1920,"height":1080,"pix_fmt":"yuv420p","avg_frame_rate":"24000/1001"},
 {"index":1,"codec_type":"audio","channel_layout":"5.1(side)","tags":{"language":"eng"}},
 {"index":2,"codec_type":"subtitle","codec_name":"hdmv_pgs_subtitle","tags":{"language":"eng"},"disposition":{"default":1,"forced":0}}
]}`

// fakeTools answers every external tool the way the real one would, leaving
// its outputs on disk.
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
		testsupport.Touch(filepath.Join(last, "title_t01.mkv"))
		return `MSG:5011,0,0,"Operation successfully completed"`, nil
	case "ffprobe":
		return probeJSON, nil
	case "ffmpeg":
		if slices.Contains(args, "cropdetect") {
			return "[Parsed_cropdetect_0 @ 0x1] crop=1920:800:0:140\n", nil
		}
		for i, arg := range args {
			if arg == "h264" && i > 0 && args[i-1] == "-f" {
				testsupport.Touch(args[i+1])
			}
		}
		testsupport.Touch(last)
	case "pgsrip":
		stem := strings.TrimSuffix(filepath.Base(last), filepath.Ext(last))
		path := filepath.Join(cmd.Dir, stem+".en.srt")
		if err := os.WriteFile(path, []byte("1\n00:00:01,000 --> 00:00:02,000\nHello\n"), 0o644); err != nil {
			return "", err
		}
	case "spatial-media-kit-tool":
		if i := slices.Index(args, "-o"); i >= 0 {
			testsupport.Touch(args[i+1])
		}
	case "MP4Box":
		testsupport.Touch(last)
	case "fx-upscale":
		testsupport.Touch(workspace.Upscaled(args[0]))
	}
	return "", nil
}

type fixture struct {
	cfg    *config.Config
	exec   *testsupport.FakeExecutor
	runner *procrun.Runner
}

func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	exec := testsupport.NewFakeExecutor(fakeTools)
	return &fixture{
		cfg:    cfg,
		exec:   exec,
		runner: procrun.New(logging.NewNop(), procrun.WithExecutor(exec), procrun.WithSpinner(false)),
	}
}

func (f *fixture) pipeline(opts ...pipeline.Option) *pipeline.Pipeline {
	return pipeline.New(*f.cfg, f.runner, logging.NewNop(), opts...)
}

// toolSequence drops ffprobe, which several stages call for metadata.
func (f *fixture) toolSequence() []string {
	var out []string
	for _, name := range f.exec.Binaries() {
		if name != "ffprobe" {
			out = append(out, name)
		}
	}
	return out
}

func (f *fixture) item() workspace.Item {
	return workspace.New(f.cfg.Paths.OutputRoot, "Hugo 3D")
}
