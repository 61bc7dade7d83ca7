package mux_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"spatialrip/internal/logging"
	"spatialrip/internal/mux"
	"spatialrip/internal/procrun"
	"spatialrip/internal/services"
	"spatialrip/internal/subtitles"
	"spatialrip/internal/testsupport"
)

func newRunner(exec procrun.Executor) *procrun.Runner {
	return procrun.New(logging.NewNop(), procrun.WithExecutor(exec), procrun.WithSpinner(false))
}

func TestMergeArgsAndCleanup(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Video.MVHEVCQuality = 80
	cfg.Video.FieldOfView = 100
	dir := t.TempDir()
	left := filepath.Join(dir, "M_left_movie.mov")
	right := filepath.Join(dir, "M_right_movie.mov")
	out := filepath.Join(dir, "M_MV-HEVC.mov")
	testsupport.WriteFile(t, left, 8)
	testsupport.WriteFile(t, right, 8)
	testsupport.WriteFile(t, out, 8)

	var staleSeen bool
	exec := testsupport.NewFakeExecutor(func(cmd procrun.Command) (string, error) {
		staleSeen = testsupport.Exists(out)
		testsupport.Touch(out)
		return "Merged", nil
	})
	if err := mux.NewMerger(*cfg, newRunner(exec), logging.NewNop()).Merge(context.Background(), left, right, out, 8); err != nil {
		t.Fatalf("Merge returned error: %v", err)
	}
	if staleSeen {
		t.Fatal("expected previous output removed before merging")
	}
	want := "merge -l " + left + " -r " + right + " -q 80 --left-is-primary --horizontal-field-of-view 100 -o " + out
	if got := strings.Join(exec.Calls()[0].Args, " "); got != want {
		t.Fatalf("args = %q, want %q", got, want)
	}
	if testsupport.Exists(left) || testsupport.Exists(right) {
		t.Fatal("expected eye movies removed")
	}
}

func TestMergeClassifiesAborts(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
		want   error
	}{
		{name: "resolution mismatch", output: "left and right input resolutions do not match. aborting!", want: services.ErrResolutionMismatch},
		{name: "generic abort", output: "bad input. aborting!", want: services.ErrMergeFailure},
		{name: "mismatch on non-zero exit", output: "left and right input resolutions do not match. aborting!", err: errors.New("exit status 1"), want: services.ErrResolutionMismatch},
		{name: "non-zero exit", output: "segfault", err: errors.New("exit status 139"), want: services.ErrMergeFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			dir := t.TempDir()
			left := filepath.Join(dir, "l.mov")
			testsupport.WriteFile(t, left, 1)
			exec := testsupport.NewFakeExecutor(func(cmd procrun.Command) (string, error) {
				return tt.output, tt.err
			})
			err := mux.NewMerger(*cfg, newRunner(exec), logging.NewNop()).
				Merge(context.Background(), left, filepath.Join(dir, "r.mov"), filepath.Join(dir, "o.mov"), 8)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !testsupport.Exists(left) {
				t.Fatal("eye movie removed after failed merge")
			}
		})
	}
}

func TestMuxArgs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	dir := t.TempDir()
	video := filepath.Join(dir, "M_MV-HEVC.mov")
	audio := filepath.Join(dir, "M_audio_AAC.mov")
	out := filepath.Join(dir, "M_AVP.mov")
	testsupport.WriteFile(t, video, 4)
	testsupport.WriteFile(t, audio, 4)
	subs := []subtitles.File{
		{Path: filepath.Join(dir, "M_subtitles.eng.srt"), Language: "eng"},
		{Path: filepath.Join(dir, "M_subtitles.forced.eng.srt"), Language: "eng", Forced: true},
	}

	exec := testsupport.NewFakeExecutor(func(cmd procrun.Command) (string, error) {
		if cmd.Name() == "ffprobe" {
			return `{"streams":[{"index":0,"codec_type":"audio","channel_layout":"5.1(side)","tags":{"language":"eng"}}]}`, nil
		}
		testsupport.Touch(cmd.Args[len(cmd.Args)-1])
		return "", nil
	})
	if err := mux.NewMuxer(*cfg, newRunner(exec), logging.NewNop()).Mux(context.Background(), video, audio, subs, out); err != nil {
		t.Fatalf("Mux returned error: %v", err)
	}

	calls := exec.CallsTo("MP4Box")
	if len(calls) != 1 {
		t.Fatalf("expected one MP4Box call, got %v", exec.Binaries())
	}
	want := []string{
		"-new", "-lang", "eng",
		"-add", video,
		"-add", audio + "#audio:lang=eng:name=English 5.1(side)",
		"-add", subs[0].Path + ":hdlr=sbtl:group=2:lang=eng:name=English Subtitles:tx3g",
		"-add", subs[1].Path + ":hdlr=sbtl:group=2:lang=eng:name=English Forced Subtitles:txtflags=0xC0000000:tx3g",
		out,
	}
	got := calls[0].Args
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("args mismatch\n got: %q\nwant: %q", got, want)
	}
	if testsupport.Exists(video) || testsupport.Exists(audio) {
		t.Fatal("expected mux inputs removed")
	}
}

func TestAudioTracksMultipleStreams(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := testsupport.NewFakeExecutor(func(cmd procrun.Command) (string, error) {
		return `{"streams":[
			{"index":0,"codec_type":"audio","channel_layout":"stereo","tags":{"language":"fre"}},
			{"index":1,"codec_type":"audio","channel_layout":"mono"}
		]}`, nil
	})
	tracks := mux.NewMuxer(*cfg, newRunner(exec), logging.NewNop()).AudioTracks(context.Background(), "/tmp/a.mov")
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %+v", tracks)
	}
	if tracks[0].Selector != "trackID=1" || tracks[0].Language != "fre" {
		t.Fatalf("unexpected first track %+v", tracks[0])
	}
	if tracks[1].Selector != "trackID=2" || tracks[1].Language != "eng" {
		t.Fatalf("expected configured language for untagged track, got %+v", tracks[1])
	}
}

func TestAudioTracksProbeFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := testsupport.NewFakeExecutor(func(cmd procrun.Command) (string, error) {
		return "", errors.New("exit status 1")
	})
	tracks := mux.NewMuxer(*cfg, newRunner(exec), logging.NewNop()).AudioTracks(context.Background(), "/tmp/a.mov")
	if len(tracks) != 1 || tracks[0].Selector != "audio" || tracks[0].Language != "eng" {
		t.Fatalf("unexpected fallback %+v", tracks)
	}
}
