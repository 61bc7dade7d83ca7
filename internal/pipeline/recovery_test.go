package pipeline_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"spatialrip/internal/config"
	"spatialrip/internal/history"
	"spatialrip/internal/pipeline"
	"spatialrip/internal/procrun"
	"spatialrip/internal/services"
	"spatialrip/internal/stage"
	"spatialrip/internal/testsupport"
)

func TestRecoveryFor(t *testing.T) {
	base := config.Default()
	tests := []struct {
		name   string
		err    error
		mutate func(*config.Config)
		ok     bool
		start  stage.Stage
		check  func(config.Config) bool
	}{
		{
			name:  "container creation",
			err:   services.NewToolError(services.ErrRipDiagnostic, "create_container", []string{"makemkvcon"}, "corrupt or invalid", nil),
			ok:    true,
			start: stage.ExtractStreams,
			check: func(c config.Config) bool { return c.Pipeline.ContinueOnError },
		},
		{
			name:   "container creation already continuing",
			err:    services.Wrap(services.ErrRipDiagnostic, "", "rip", "", nil),
			mutate: func(c *config.Config) { c.Pipeline.ContinueOnError = true },
		},
		{
			name: "license expired",
			err: services.NewToolError(services.ErrContainerCreation, "create_container", []string{"makemkvcon"},
				"This application version is too old.", errors.New("makemkv license expired; update or register MakeMKV")),
		},
		{
			name: "nothing saved",
			err: services.NewToolError(services.ErrContainerCreation, "create_container", []string{"makemkvcon"},
				"Copy complete. 0 titles saved, 1 failed.", errors.New("makemkv saved 0 titles (1 failed)")),
		},
		{
			name: "makemkv exit status",
			err:  services.NewToolError(services.ErrContainerCreation, "create_container", []string{"makemkvcon"}, "", errors.New("exit status 1")),
		},
		{
			name: "missing container",
			err:  services.Wrap(services.ErrContainerCreation, "create_container", "locate", "no MKV file created", nil),
		},
		{
			name:  "subtitles",
			err:   services.Wrap(services.ErrSubtitleExtraction, "", "ocr", "", nil),
			ok:    true,
			start: stage.ExtractSubtitles,
			check: func(c config.Config) bool { return c.Subtitles.Skip },
		},
		{
			name:   "subtitles never moves the start backwards",
			err:    services.Wrap(services.ErrSubtitleExtraction, "", "ocr", "", nil),
			mutate: func(c *config.Config) { c.Pipeline.StartStage = stage.MuxFinal },
			ok:     true,
			start:  stage.MuxFinal,
			check:  func(c config.Config) bool { return c.Subtitles.Skip },
		},
		{
			name:   "output exists keeps start stage",
			err:    services.Wrap(services.ErrOutputExists, "", "check", "", nil),
			mutate: func(c *config.Config) { c.Pipeline.StartStage = stage.SplitStereo },
			ok:     true,
			start:  stage.SplitStereo,
			check:  func(c config.Config) bool { return c.Pipeline.Overwrite },
		},
		{
			name: "merge failure",
			err:  services.Wrap(services.ErrMergeFailure, "", "merge", "", nil),
		},
		{
			name: "canceled",
			err:  services.Wrap(services.ErrCanceled, "", "run", "", context.Canceled),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			r, ok := pipeline.RecoveryFor(tt.err, cfg)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if r.Start != tt.start {
				t.Fatalf("start = %s, want %s", r.Start, tt.start)
			}
			applied := r.Apply(cfg)
			if applied.Pipeline.StartStage != tt.start || !tt.check(applied) {
				t.Fatalf("recovery not applied: %+v", applied.Pipeline)
			}
			if tt.check(cfg) {
				t.Fatal("Apply mutated the input config")
			}
		})
	}
}

func TestRunWithRecoveryOverwrites(t *testing.T) {
	f := newFixture(t)
	existing := filepath.Join(f.cfg.Paths.OutputRoot, "hugo_3d_avp.mov")
	testsupport.WriteFile(t, existing, 16)

	var asked []string
	decide := func(_ context.Context, r pipeline.Recovery, err error) bool {
		asked = append(asked, r.Kind)
		return true
	}
	res, err := f.pipeline().RunWithRecovery(context.Background(), discSource, decide)
	if err != nil {
		t.Fatalf("RunWithRecovery returned error: %v", err)
	}
	if len(asked) != 1 || asked[0] != "output_exists" {
		t.Fatalf("unexpected recoveries %v", asked)
	}
	if res.Status != history.StatusCompleted {
		t.Fatalf("status = %s, want completed", res.Status)
	}
	if testsupport.Exists(existing) {
		t.Fatal("expected the previous deliverable replaced")
	}
	if !testsupport.Exists(filepath.Join(f.cfg.Paths.OutputRoot, "Hugo 3D_AVP.mov")) {
		t.Fatal("expected new deliverable")
	}
}

func TestRunWithRecoverySkipsSubtitlesWithoutReplay(t *testing.T) {
	f := newFixture(t)
	f.exec.Respond = func(cmd procrun.Command) (string, error) {
		if cmd.Name() == "pgsrip" {
			return "", nil
		}
		return fakeTools(cmd)
	}

	res, err := f.pipeline().RunWithRecovery(context.Background(), discSource, pipeline.AlwaysRecover)
	if err != nil {
		t.Fatalf("RunWithRecovery returned error: %v", err)
	}
	if res.Status != history.StatusCompleted {
		t.Fatalf("status = %s, want completed", res.Status)
	}

	var rips, extractions int
	for _, call := range f.exec.Calls() {
		args := strings.Join(call.Args, " ")
		switch {
		case call.Name() == "makemkvcon" && strings.Contains(args, " mkv "):
			rips++
		case call.Name() == "ffmpeg" && strings.Contains(args, "h264_mp4toannexb"):
			extractions++
		}
	}
	if rips != 1 || extractions != 1 {
		t.Fatalf("expected completed stages not replayed, got %d rips and %d extractions", rips, extractions)
	}
	if mux := strings.Join(f.exec.CallsTo("MP4Box")[0].Args, " "); strings.Contains(mux, ".srt") {
		t.Fatalf("expected no subtitles muxed, got %q", mux)
	}
}

func TestRunWithRecoveryDeclined(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteFile(t, filepath.Join(f.cfg.Paths.OutputRoot, "Hugo 3D_AVP.mov"), 16)

	decline := func(context.Context, pipeline.Recovery, error) bool { return false }
	_, err := f.pipeline().RunWithRecovery(context.Background(), discSource, decline)
	if !errors.Is(err, services.ErrOutputExists) {
		t.Fatalf("expected output exists error, got %v", err)
	}
	if len(f.exec.CallsTo("makemkvcon")) != 1 {
		t.Fatal("expected a single attempt")
	}
}
