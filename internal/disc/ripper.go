package disc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"spatialrip/internal/config"
	"spatialrip/internal/fileutil"
	"spatialrip/internal/logging"
	"spatialrip/internal/procrun"
	"spatialrip/internal/services"
	"spatialrip/internal/stage"
)

// Diagnostics that mean MakeMKV produced an unusable container even when it
// exits cleanly.
var fatalDiagnostics = []string{
	"corrupt or invalid",
	"video frame timecode differs",
	"secondary stream video frame timecode differs",
}

// Lines dropped from rip output before it is surfaced to the operator.
var noiseFilters = []string{
	"which is less than minimum title length",
	"Debug logging",
	"AnyDVD",
	"MakeMKV",
	"Do you want to continue anyway",
	"AACS directory not present",
	"Evaluation version",
	"Using direct disc access mode",
	"Program reads data faster than it can write to disk",
}

// ContainerExtensions are the files CreateContainer may leave in the work directory.
var ContainerExtensions = []string{".mkv", ".mts", ".m2ts"}

// Ripper produces the container the rest of the pipeline reads from.
type Ripper struct {
	binary          string
	language        string
	removeExtra     bool
	continueOnError bool
	runner          Runner
	logger          *slog.Logger
}

// NewRipper constructs a Ripper.
func NewRipper(cfg config.Config, runner Runner, logger *slog.Logger) *Ripper {
	return &Ripper{
		binary:          cfg.Tools.MakeMKV,
		language:        cfg.Source.Language,
		removeExtra:     cfg.Source.RemoveExtraLanguages,
		continueOnError: cfg.Pipeline.ContinueOnError,
		runner:          runner,
		logger:          logging.NewComponentLogger(logger, "ripper"),
	}
}

// CreateContainer copies a container file into workDir, or rips the selected
// MVC title there, and returns the resulting container path.
func (r *Ripper) CreateContainer(ctx context.Context, src Source, desc Descriptor, workDir string) (string, error) {
	logger := logging.WithContext(ctx, r.logger)
	if src.IsFile() {
		dst := filepath.Join(workDir, filepath.Base(src.Path))
		logger.Info("copying source container", logging.String("source", src.Path), logging.String("destination", dst))
		if err := fileutil.CopyFile(src.Path, dst); err != nil {
			return "", services.Wrap(services.ErrContainerCreation, stage.CreateContainer.String(), "copy", src.Path, err)
		}
		return r.Locate(workDir)
	}

	if err := r.rip(ctx, src, desc, workDir); err != nil {
		return "", err
	}
	path, err := fileutil.LargestFile(workDir, MatroskaExtensions...)
	if err != nil || path == "" {
		return "", services.Wrap(services.ErrContainerCreation, stage.CreateContainer.String(), "locate", "no MKV file created", err)
	}
	logger.Info("container created", logging.String("path", path))
	return path, nil
}

// Locate finds the container a previous run left in workDir.
func (r *Ripper) Locate(workDir string) (string, error) {
	path, err := fileutil.LargestFile(workDir, ContainerExtensions...)
	if err != nil || path == "" {
		return "", services.Wrap(services.ErrContainerCreation, stage.CreateContainer.String(), "locate",
			fmt.Sprintf("no container in %s", workDir), err)
	}
	return path, nil
}

func (r *Ripper) rip(ctx context.Context, src Source, desc Descriptor, workDir string) error {
	profile, err := WriteProfile(workDir, r.language, r.removeExtra)
	if err != nil {
		return services.Wrap(services.ErrContainerCreation, stage.CreateContainer.String(), "profile", "", err)
	}
	defer func() { _ = os.Remove(profile) }()

	args := []string{"--profile=" + profile}
	if src.NoScan() {
		args = append(args, "--noscan")
	}
	args = append(args, "mkv", src.MakeMKVArg(), strconv.Itoa(desc.TitleIndex), workDir)
	cmd := procrun.Command{
		Binary: r.binary,
		Args:   args,
		Stage:  stage.CreateContainer.String(),
		Marker: services.ErrContainerCreation,
		Label:  "Ripping title " + strconv.Itoa(desc.TitleIndex),
	}

	out, err := r.runner.Run(ctx, cmd)
	if err != nil {
		var toolErr *services.ToolError
		if errors.As(err, &toolErr) {
			toolErr.Output = FilterNoise(toolErr.Output)
		}
		return err
	}

	// License expiry and an empty rip are fatal even with continue_on_error.
	report := ScanRipOutput(out)
	report.log(logging.WithContext(ctx, r.logger))
	if report.Expired != "" {
		return services.NewToolError(services.ErrContainerCreation, cmd.Stage, cmd.Argv(), report.Expired,
			errors.New("makemkv license expired; update or register MakeMKV"))
	}
	if report.Counted && report.Saved == 0 {
		return services.NewToolError(services.ErrContainerCreation, cmd.Stage, cmd.Argv(), FilterNoise(out),
			fmt.Errorf("makemkv saved 0 titles (%d failed)", report.Failed))
	}
	if r.continueOnError {
		return nil
	}
	if diag, ok := FatalDiagnostic(out); ok {
		return services.NewToolError(services.ErrRipDiagnostic, cmd.Stage, cmd.Argv(), FilterNoise(out),
			fmt.Errorf("makemkv reported %q", diag))
	}
	return nil
}

// FatalDiagnostic returns the first known-fatal diagnostic found in output.
func FatalDiagnostic(output string) (string, bool) {
	for _, diag := range fatalDiagnostics {
		if strings.Contains(output, diag) {
			return diag, true
		}
	}
	return "", false
}

// FilterNoise removes banner and advisory lines from MakeMKV output.
func FilterNoise(output string) string {
	lines := strings.Split(output, "\n")
	kept := lines[:0]
	for _, line := range lines {
		noisy := false
		for _, filter := range noiseFilters {
			if strings.Contains(line, filter) {
				noisy = true
				break
			}
		}
		if !noisy {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
