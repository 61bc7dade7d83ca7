package crop_test

import (
	"context"
	"strings"
	"testing"

	"spatialrip/internal/crop"
	"spatialrip/internal/logging"
	"spatialrip/internal/procrun"
	"spatialrip/internal/testsupport"
)

func TestDetectAggregatesSamples(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Video.CropBlackBars = true
	cfg.Video.CropSampleOffset = 120
	cfg.Video.CropSampleFrames = 48
	exec := testsupport.NewFakeExecutor(func(cmd procrun.Command) (string, error) {
		return "[cropdetect] crop=100:200:10:5\n[cropdetect] crop=120:180:0:15\n", nil
	})
	runner := procrun.New(logging.NewNop(), procrun.WithExecutor(exec), procrun.WithSpinner(false))

	rect, ok, err := crop.NewDetector(*cfg, runner, logging.NewNop()).Detect(context.Background(), "/work/title.mkv")
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if !ok || rect.String() != "120:200:0:5" {
		t.Fatalf("unexpected rectangle %s (ok=%v)", rect, ok)
	}
	args := strings.Join(exec.Calls()[0].Args, " ")
	if !strings.Contains(args, "-ss 120 -i /work/title.mkv -vframes 48 -vf cropdetect") {
		t.Fatalf("unexpected ffmpeg args %q", args)
	}
}

func TestDetectDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := testsupport.NewFakeExecutor(nil)
	runner := procrun.New(logging.NewNop(), procrun.WithExecutor(exec), procrun.WithSpinner(false))

	_, ok, err := crop.NewDetector(*cfg, runner, logging.NewNop()).Detect(context.Background(), "/work/title.mkv")
	if err != nil || ok {
		t.Fatalf("expected no crop when disabled, got ok=%v err=%v", ok, err)
	}
	if len(exec.Calls()) != 0 {
		t.Fatal("expected ffmpeg not invoked")
	}
}

func TestDetectNoProposals(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Video.CropBlackBars = true
	exec := testsupport.NewFakeExecutor(func(cmd procrun.Command) (string, error) {
		return "frame=    0 fps=0.0\n", nil
	})
	runner := procrun.New(logging.NewNop(), procrun.WithExecutor(exec), procrun.WithSpinner(false))

	_, ok, err := crop.NewDetector(*cfg, runner, logging.NewNop()).Detect(context.Background(), "/work/title.mkv")
	if err != nil || ok {
		t.Fatalf("expected empty result, got ok=%v err=%v", ok, err)
	}
}
