package disc

import (
	"context"
	"fmt"
	"log/slog"

	"spatialrip/internal/config"
	"spatialrip/internal/logging"
	"spatialrip/internal/media/ffprobe"
	"spatialrip/internal/procrun"
	"spatialrip/internal/services"
	"spatialrip/internal/textutil"
)

const probeStage = "probe"

// Runner executes an external command to completion.
type Runner interface {
	Run(ctx context.Context, cmd procrun.Command) (string, error)
}

// Prober builds a Descriptor for a Source.
type Prober struct {
	tools      config.Tools
	frameRate  string
	resolution string
	runner     Runner
	logger     *slog.Logger
}

// NewProber constructs a Prober using the configured tool paths and overrides.
func NewProber(cfg config.Config, runner Runner, logger *slog.Logger) *Prober {
	return &Prober{
		tools:      cfg.Tools,
		frameRate:  cfg.Source.FrameRate,
		resolution: cfg.Source.Resolution,
		runner:     runner,
		logger:     logging.NewComponentLogger(logger, "prober"),
	}
}

// Probe inspects src. Container files are read with ffprobe; discs, images,
// and disc folders go through MakeMKV's robot mode, which must report at
// least one MVC title. Operator overrides are applied last.
func (p *Prober) Probe(ctx context.Context, src Source) (Descriptor, error) {
	var (
		desc Descriptor
		err  error
	)
	if src.IsFile() {
		desc, err = p.probeFile(ctx, src)
	} else {
		desc, err = p.probeDisc(ctx, src)
	}
	if err != nil {
		return Descriptor{}, err
	}
	desc = desc.WithOverrides(p.frameRate, p.resolution)

	logging.WithContext(ctx, p.logger).Info("source probed",
		logging.String("source", src.String()),
		logging.String("name", desc.Name),
		logging.String("resolution", desc.Resolution),
		logging.String("frame_rate", desc.FrameRate),
		logging.Bool("interlaced", desc.Interlaced),
		logging.Int("title", desc.TitleIndex),
	)
	return desc, nil
}

func (p *Prober) probeFile(ctx context.Context, src Source) (Descriptor, error) {
	desc := defaultDescriptor()
	if name := textutil.SanitizeTitle(src.Stem()); name != "" {
		desc.Name = name
	}

	result, err := ffprobe.Inspect(ctx, p.runner, p.tools.FFprobe, src.Path)
	if err != nil {
		return Descriptor{}, services.Wrap(services.ErrSourceProbe, probeStage, "ffprobe", src.Path, err)
	}
	video, ok := result.FirstVideo()
	if !ok {
		return Descriptor{}, services.Wrap(services.ErrSourceProbe, probeStage, "ffprobe", fmt.Sprintf("no video stream in %s", src.Path), nil)
	}
	if res := video.Resolution(); res != "" {
		desc.Resolution = res
	}
	if video.AvgFrameRate != "" && video.AvgFrameRate != "0/0" {
		desc.FrameRate = video.AvgFrameRate
	}
	desc.Interlaced = video.Interlaced()
	return desc, nil
}

func (p *Prober) probeDisc(ctx context.Context, src Source) (Descriptor, error) {
	args := []string{"--robot"}
	if src.NoScan() {
		args = append(args, "--noscan")
	}
	args = append(args, "info", src.MakeMKVArg())

	out, err := p.runner.Run(ctx, procrun.Command{
		Binary: p.tools.MakeMKV,
		Args:   args,
		Stage:  probeStage,
		Marker: services.ErrSourceProbe,
		Label:  "Reading disc information",
	})
	if err != nil {
		return Descriptor{}, err
	}

	name, titles := ParseRobotOutput(out)
	title, ok := SelectMVCTitle(titles)
	if !ok {
		return Descriptor{}, services.Wrap(services.ErrSourceProbe, probeStage, "select title",
			fmt.Sprintf("no MVC video found on %s", src), nil)
	}

	desc := defaultDescriptor()
	if name != "" {
		desc.Name = name
	}
	desc.TitleIndex = title.Index
	if title.Resolution != "" {
		desc.Resolution = title.Resolution
	}
	if title.FrameRate != "" {
		desc.FrameRate = title.FrameRate
	}
	return desc, nil
}
