package disc_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spatialrip/internal/disc"
	"spatialrip/internal/logging"
	"spatialrip/internal/procrun"
	"spatialrip/internal/services"
	"spatialrip/internal/testsupport"
)

const robotInfo = `CINFO:2,0,"Hugo 3D"
TINFO:0,9,0,"0:05:00"
SINFO:0,1,7,0,"Mpeg4 MVC High@4.1"
TINFO:1,9,0,"2:06:12"
SINFO:1,1,7,0,"MPEG4-MVC-3D"
SINFO:1,1,19,0,"1920x1080"
SINFO:1,1,21,0,"23.976 (24000/1001)"
`

func newRunner(exec procrun.Executor) *procrun.Runner {
	return procrun.New(logging.NewNop(), procrun.WithExecutor(exec), procrun.WithSpinner(false))
}

func TestParseSource(t *testing.T) {
	dir := t.TempDir()
	iso := filepath.Join(dir, "Movie.ISO")
	mts := filepath.Join(dir, "clip.m2ts")
	mkv := filepath.Join(dir, "title.mkv")
	txt := filepath.Join(dir, "notes.txt")
	for _, p := range []string{iso, mts, mkv, txt} {
		testsupport.WriteFile(t, p, 1)
	}

	tests := []struct {
		raw     string
		kind    disc.Kind
		arg     string
		noScan  bool
		wantErr bool
	}{
		{raw: "disc:0", kind: disc.KindOptical, arg: "disc:0"},
		{raw: "dev:/dev/sr0", kind: disc.KindOptical, arg: "dev:/dev/sr0"},
		{raw: iso, kind: disc.KindImage, arg: "iso:" + iso, noScan: true},
		{raw: dir, kind: disc.KindFolder, arg: "file:" + dir, noScan: true},
		{raw: mts, kind: disc.KindTransportStream, arg: "file:" + mts, noScan: true},
		{raw: mkv, kind: disc.KindMatroska, arg: "file:" + mkv, noScan: true},
		{raw: "disc:x", wantErr: true},
		{raw: "dev:", wantErr: true},
		{raw: txt, wantErr: true},
		{raw: filepath.Join(dir, "missing.iso"), wantErr: true},
		{raw: "  ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			src, err := disc.ParseSource(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, services.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSource returned error: %v", err)
			}
			if src.Kind != tt.kind {
				t.Fatalf("kind = %s, want %s", src.Kind, tt.kind)
			}
			if src.MakeMKVArg() != tt.arg {
				t.Fatalf("makemkv arg = %q, want %q", src.MakeMKVArg(), tt.arg)
			}
			if src.NoScan() != tt.noScan {
				t.Fatalf("noscan = %v, want %v", src.NoScan(), tt.noScan)
			}
		})
	}
}

func TestProbeDiscSelectsLongestMVCTitle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := testsupport.NewFakeExecutor(func(cmd procrun.Command) (string, error) {
		return robotInfo, nil
	})
	prober := disc.NewProber(*cfg, newRunner(exec), logging.NewNop())

	desc, err := prober.Probe(context.Background(), disc.Source{Raw: "disc:0", Kind: disc.KindOptical})
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if desc.Name != "Hugo 3D" || desc.TitleIndex != 1 || desc.FrameRate != "23.976" || desc.Resolution != "1920x1080" {
		t.Fatalf("unexpected descriptor %+v", desc)
	}

	calls := exec.CallsTo("makemkvcon")
	if len(calls) != 1 {
		t.Fatalf("expected one makemkvcon call, got %d", len(calls))
	}
	args := strings.Join(calls[0].Args, " ")
	if args != "--robot info disc:0" {
		t.Fatalf("unexpected args %q", args)
	}
}

func TestProbeAppliesOverrides(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Source.FrameRate = "24"
	cfg.Source.Resolution = "3840x2160"
	exec := testsupport.NewFakeExecutor(func(cmd procrun.Command) (string, error) {
		return robotInfo, nil
	})
	iso := filepath.Join(t.TempDir(), "hugo.iso")
	testsupport.WriteFile(t, iso, 1)
	src, err := disc.ParseSource(iso)
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}

	desc, err := disc.NewProber(*cfg, newRunner(exec), logging.NewNop()).Probe(context.Background(), src)
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if desc.FrameRate != "24" || desc.Resolution != "3840x2160" {
		t.Fatalf("overrides not applied: %+v", desc)
	}
	args := exec.Calls()[0].Args
	if args[1] != "--noscan" {
		t.Fatalf("expected --noscan for image source, got %v", args)
	}
}

func TestProbeFailsWithoutMVC(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	exec := testsupport.NewFakeExecutor(func(cmd procrun.Command) (string, error) {
		return "CINFO:2,0,\"Flat\"\nTINFO:0,9,0,\"1:30:00\"\nSINFO:0,1,7,0,\"Mpeg4 AVC High@L4.1\"\n", nil
	})
	_, err := disc.NewProber(*cfg, newRunner(exec), logging.NewNop()).
		Probe(context.Background(), disc.Source{Raw: "disc:0", Kind: disc.KindOptical})
	if !errors.Is(err, services.ErrSourceProbe) {
		t.Fatalf("expected source probe error, got %v", err)
	}
}

func TestProbeTransportStreamUsesFFprobe(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(t.TempDir(), "Concert Night.mts")
	testsupport.WriteFile(t, path, 1)
	exec := testsupport.NewFakeExecutor(func(cmd procrun.Command) (string, error) {
		return `{"streams":[{"index":0,"codec_type":"video","width":1920,"height":1080,"avg_frame_rate":"30000/1001","field_order":"tt"}]}`, nil
	})
	src, err := disc.ParseSource(path)
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}

	desc, err := disc.NewProber(*cfg, newRunner(exec), logging.NewNop()).Probe(context.Background(), src)
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if desc.Name != "Concert Night" || desc.FrameRate != "30000/1001" || !desc.Interlaced {
		t.Fatalf("unexpected descriptor %+v", desc)
	}
	if bins := exec.Binaries(); len(bins) != 1 || bins[0] != "ffprobe" {
		t.Fatalf("expected only ffprobe, got %v", bins)
	}
}

func TestCreateContainerRipsSelectedTitle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Source.RemoveExtraLanguages = true
	work := t.TempDir()
	var profile string
	exec := testsupport.NewFakeExecutor(func(cmd procrun.Command) (string, error) {
		profilePath := strings.TrimPrefix(cmd.Args[0], "--profile=")
		data, err := os.ReadFile(profilePath)
		if err != nil {
			return "", err
		}
		profile = string(data)
		testsupport.Touch(filepath.Join(work, "title_t01.mkv"))
		return "MSG:5011,0,0,\"Operation successfully completed\"", nil
	})
	ripper := disc.NewRipper(*cfg, newRunner(exec), logging.NewNop())

	path, err := ripper.CreateContainer(context.Background(), disc.Source{Raw: "disc:0", Kind: disc.KindOptical}, disc.Descriptor{TitleIndex: 1}, work)
	if err != nil {
		t.Fatalf("CreateContainer returned error: %v", err)
	}
	if filepath.Base(path) != "title_t01.mkv" {
		t.Fatalf("unexpected container %s", path)
	}
	if !strings.Contains(profile, `defaultSelection="-sel:all,+sel:video,+sel:mvcvideo,+sel:(eng)"`) {
		t.Fatalf("unexpected profile:\n%s", profile)
	}
	args := exec.Calls()[0].Args
	if got := strings.Join(args[1:], " "); got != "mkv disc:0 1 "+work {
		t.Fatalf("unexpected rip args %q", got)
	}
	if testsupport.Exists(filepath.Join(work, disc.ProfileFileName)) {
		t.Fatal("expected rip profile removed")
	}
}

func TestCreateContainerFatalDiagnostic(t *testing.T) {
	output := strings.Join([]string{
		"MakeMKV v1.17.7 started",
		"Evaluation version, 12 day(s) out of 30 remaining",
		"Title #00800.mpls has length of 12 seconds which is less than minimum title length",
		"Error 'Scsi error - MEDIUM ERROR' occurred: the file is corrupt or invalid",
	}, "\n")

	t.Run("fatal", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		exec := testsupport.NewFakeExecutor(func(cmd procrun.Command) (string, error) { return output, nil })
		_, err := disc.NewRipper(*cfg, newRunner(exec), logging.NewNop()).
			CreateContainer(context.Background(), disc.Source{Raw: "disc:0", Kind: disc.KindOptical}, disc.Descriptor{}, t.TempDir())
		if !errors.Is(err, services.ErrRipDiagnostic) || !errors.Is(err, services.ErrContainerCreation) {
			t.Fatalf("expected rip diagnostic error, got %v", err)
		}
		var toolErr *services.ToolError
		if !errors.As(err, &toolErr) {
			t.Fatalf("expected ToolError, got %T", err)
		}
		if toolErr.Output != "Error 'Scsi error - MEDIUM ERROR' occurred: the file is corrupt or invalid" {
			t.Fatalf("noise not filtered: %q", toolErr.Output)
		}
	})

	t.Run("continue on error", func(t *testing.T) {
		cfg := testsupport.NewConfig(t)
		cfg.Pipeline.ContinueOnError = true
		work := t.TempDir()
		exec := testsupport.NewFakeExecutor(func(cmd procrun.Command) (string, error) {
			testsupport.Touch(filepath.Join(work, "title.mkv"))
			return output, nil
		})
		if _, err := disc.NewRipper(*cfg, newRunner(exec), logging.NewNop()).
			CreateContainer(context.Background(), disc.Source{Raw: "disc:0", Kind: disc.KindOptical}, disc.Descriptor{}, work); err != nil {
			t.Fatalf("expected diagnostics ignored, got %v", err)
		}
	})
}

func TestCreateContainerCopiesFileSources(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	srcPath := filepath.Join(t.TempDir(), "clip.mts")
	testsupport.WriteFile(t, srcPath, 2048)
	work := t.TempDir()
	exec := testsupport.NewFakeExecutor(nil)

	src, err := disc.ParseSource(srcPath)
	if err != nil {
		t.Fatalf("ParseSource: %v", err)
	}
	path, err := disc.NewRipper(*cfg, newRunner(exec), logging.NewNop()).CreateContainer(context.Background(), src, disc.Descriptor{}, work)
	if err != nil {
		t.Fatalf("CreateContainer returned error: %v", err)
	}
	if path != filepath.Join(work, "clip.mts") {
		t.Fatalf("unexpected container %s", path)
	}
	if len(exec.Calls()) != 0 {
		t.Fatalf("expected no tool invocations, got %v", exec.Binaries())
	}
}

func TestLocateMissingContainer(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := disc.NewRipper(*cfg, newRunner(testsupport.NewFakeExecutor(nil)), logging.NewNop()).Locate(t.TempDir())
	if !errors.Is(err, services.ErrContainerCreation) {
		t.Fatalf("expected container creation error, got %v", err)
	}
}

func TestCreateContainerFatalRipReport(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{name: "license expired", output: "This application version is too old.  Please download the latest version"},
		{name: "nothing saved", output: "Copy complete. 0 titles saved, 1 failed."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			cfg.Pipeline.ContinueOnError = true
			exec := testsupport.NewFakeExecutor(func(cmd procrun.Command) (string, error) { return tt.output, nil })
			_, err := disc.NewRipper(*cfg, newRunner(exec), logging.NewNop()).
				CreateContainer(context.Background(), disc.Source{Raw: "disc:0", Kind: disc.KindOptical}, disc.Descriptor{}, t.TempDir())
			if !errors.Is(err, services.ErrContainerCreation) {
				t.Fatalf("expected container creation error, got %v", err)
			}
			if services.Recoverable(err) {
				t.Fatalf("expected %v to end the item", err)
			}
		})
	}
}

func TestScanRipOutput(t *testing.T) {
	output := strings.Join([]string{
		"Error 'Scsi error - MEDIUM ERROR:L-EC UNCORRECTABLE ERROR' occurred while reading '/BDMV/STREAM/00800.m2ts' at offset '1048576'",
		"Error 'Scsi error - HARDWARE ERROR' occurred while reading '/BDMV/STREAM/00800.m2ts'",
		"Error 'Scsi error - MEDIUM ERROR:L-EC UNCORRECTABLE ERROR' occurred while reading '/BDMV/STREAM/00800.m2ts' at offset '2097152'",
		"Copy complete. 1 titles saved.",
	}, "\n")
	report := disc.ScanRipOutput(output)
	if !report.Counted || report.Saved != 1 || report.Failed != 0 {
		t.Fatalf("unexpected counts %+v", report)
	}
	if report.Expired != "" {
		t.Fatalf("unexpected expiry %q", report.Expired)
	}
	if report.ReadErrors["uncorrectable_read"] != 2 || report.ReadErrors["hardware_error"] != 1 {
		t.Fatalf("unexpected read errors %v", report.ReadErrors)
	}
}
