package pipeline

import (
	"context"
	"fmt"
	"time"

	"spatialrip/internal/audio"
	"spatialrip/internal/disc"
	"spatialrip/internal/fileutil"
	"spatialrip/internal/logging"
	"spatialrip/internal/services"
	"spatialrip/internal/stage"
	"spatialrip/internal/stereo"
	"spatialrip/internal/subtitles"
	"spatialrip/internal/workspace"
)

// shouldRun follows the stage machine, except that combine_stereo executes
// after upscale: a run resumed at upscale with upscaling enabled merges the
// upscaled eyes instead of muxing the earlier MV-HEVC.
func (p *Pipeline) shouldRun(s stage.Stage) bool {
	if s == stage.CombineStereo && p.machine.Start() == stage.Upscale && p.cfg.Video.FXUpscale {
		return true
	}
	return p.machine.ShouldRun(s)
}

// step runs fn for s unless the machine skips it or enabled is false.
func (p *Pipeline) step(ctx context.Context, s stage.Stage, enabled bool, fn func(context.Context) error) (bool, error) {
	logger := logging.WithContext(ctx, p.logger)
	if !enabled {
		logger.Debug("stage skipped",
			logging.String(logging.FieldStage, s.String()),
			logging.String("reason", "disabled"),
			logging.String(logging.FieldEventType, "stage_skipped"),
		)
		return false, nil
	}
	if !p.shouldRun(s) {
		logger.Info("stage skipped",
			logging.String(logging.FieldStage, s.String()),
			logging.String("reason", "before start stage"),
			logging.String(logging.FieldEventType, "stage_skipped"),
		)
		return false, nil
	}

	ctx = services.WithStage(ctx, s.String())
	logger = logging.WithContext(ctx, p.logger)
	logger.Info(fmt.Sprintf("stage %d: %s", s.Number(), s.Description()),
		logging.String(logging.FieldEventType, "stage_start"),
	)
	started := time.Now()
	if err := fn(ctx); err != nil {
		return true, err
	}
	logger.Info("stage complete",
		logging.Duration("duration", time.Since(started)),
		logging.String(logging.FieldEventType, "stage_complete"),
	)
	return true, nil
}

func (p *Pipeline) process(ctx context.Context, w *workState) error {
	steps := []func(context.Context, *workState) error{
		p.createContainer,
		p.detectCrop,
		p.extractStreams,
		p.extractSubtitles,
		p.splitStereo,
		p.upscale,
		p.combineStereo,
		p.transcodeAudio,
		p.muxFinal,
		p.relocateOutput,
	}
	for _, fn := range steps {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrCanceled, "", "run", "interrupted", err)
		}
		if err := fn(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) createContainer(ctx context.Context, w *workState) error {
	_, err := p.step(ctx, stage.CreateContainer, true, func(ctx context.Context) error {
		path, err := p.ripper.CreateContainer(ctx, w.src, w.desc, w.item.Dir)
		w.container = path
		return err
	})
	if err != nil || w.container != "" {
		return err
	}
	// Resumed: later stages read the container an earlier run left behind.
	path, err := p.ripper.Locate(w.item.Dir)
	if err == nil {
		w.container = path
		return nil
	}
	needed := p.machine.ShouldRun(stage.ExtractStreams) ||
		(p.machine.ShouldRun(stage.ExtractSubtitles) && !p.cfg.Subtitles.Skip) ||
		(p.machine.ShouldRun(stage.SplitStereo) && w.src.Kind == disc.KindTransportStream)
	if needed {
		return err
	}
	return nil
}

// detectCrop only matters when the eyes are encoded in this run.
func (p *Pipeline) detectCrop(ctx context.Context, w *workState) error {
	if !p.detector.Enabled() || !p.machine.ShouldRun(stage.SplitStereo) {
		return nil
	}
	input := w.container
	if input == "" {
		input = w.item.MVC()
	}
	rect, ok, err := p.detector.Detect(ctx, input)
	logger := logging.WithContext(ctx, p.logger)
	if err != nil {
		logging.WarnWithContext(logger, "crop detection failed; encoding full frame", "crop_detect_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "black bars are kept"),
		)
		return nil
	}
	if !ok {
		return nil
	}
	logger.Info("crop decision",
		logging.String(logging.FieldDecisionType, "crop"),
		logging.String("decision_result", rect.String()),
	)
	w.crop = &rect
	return nil
}

func (p *Pipeline) extractStreams(ctx context.Context, w *workState) error {
	_, err := p.step(ctx, stage.ExtractStreams, true, func(ctx context.Context) error {
		return p.extractor.ExtractStreams(ctx, w.container, w.item.MVC(), w.item.PCM())
	})
	return err
}

func (p *Pipeline) extractSubtitles(ctx context.Context, w *workState) error {
	ran, err := p.step(ctx, stage.ExtractSubtitles, !p.cfg.Subtitles.Skip, func(ctx context.Context) error {
		files, err := p.subtitles.Extract(ctx, w.container)
		w.subs = files
		return err
	})
	if err != nil || ran || p.cfg.Subtitles.Skip {
		return err
	}
	files, err := subtitles.Existing(w.item.Dir)
	if err != nil {
		return services.Wrap(services.ErrSubtitleExtraction, stage.ExtractSubtitles.String(), "collect", w.item.Dir, err)
	}
	w.subs = files
	return nil
}

func (p *Pipeline) splitStereo(ctx context.Context, w *workState) error {
	w.left, w.right = w.item.Left(), w.item.Right()
	_, err := p.step(ctx, stage.SplitStereo, true, func(ctx context.Context) error {
		depthSource := w.item.MVC()
		if !fileutil.Exists(depthSource) {
			depthSource = w.container
		}
		w.desc = w.desc.WithColorDepth(p.extractor.ColorDepth(ctx, depthSource))
		return p.splitter.Split(ctx, stereo.Request{
			Bitstream:       w.item.MVC(),
			Container:       w.container,
			TransportStream: w.src.Kind == disc.KindTransportStream,
			Left:            w.left,
			Right:           w.right,
			LeftFIFO:        w.item.LeftFIFO(),
			RightFIFO:       w.item.RightFIFO(),
			Descriptor:      w.desc,
			Crop:            w.crop,
		})
	})
	return err
}

// upscale replaces each eye with its upscaled copy. An eye whose input is
// gone but whose upscaled copy exists was finished by an earlier run.
func (p *Pipeline) upscale(ctx context.Context, w *workState) error {
	enabled := p.cfg.Video.FXUpscale
	_, err := p.step(ctx, stage.Upscale, enabled, func(ctx context.Context) error {
		for _, eye := range []*string{&w.left, &w.right} {
			if !fileutil.Exists(*eye) && fileutil.Exists(workspace.Upscaled(*eye)) {
				*eye = workspace.Upscaled(*eye)
				continue
			}
			out, err := p.upscaler.Upscale(ctx, *eye)
			if err != nil {
				return err
			}
			*eye = out
		}
		return nil
	})
	if err == nil && enabled && !p.machine.ShouldRun(stage.Upscale) {
		w.left, w.right = workspace.Upscaled(w.left), workspace.Upscaled(w.right)
	}
	return err
}

func (p *Pipeline) combineStereo(ctx context.Context, w *workState) error {
	_, err := p.step(ctx, stage.CombineStereo, true, func(ctx context.Context) error {
		return p.merger.Merge(ctx, w.left, w.right, w.item.MVHEVC(), w.desc.ColorDepth)
	})
	return err
}

func (p *Pipeline) transcodeAudio(ctx context.Context, w *workState) error {
	_, err := p.step(ctx, stage.TranscodeAudio, p.cfg.Audio.Transcode, func(ctx context.Context) error {
		return p.transcoder.Transcode(ctx, w.item.PCM(), w.item.AAC())
	})
	w.audio = audio.Select(p.cfg.Audio.Transcode, w.item.PCM(), w.item.AAC())
	return err
}

func (p *Pipeline) muxFinal(ctx context.Context, w *workState) error {
	_, err := p.step(ctx, stage.MuxFinal, true, func(ctx context.Context) error {
		return p.muxer.Mux(ctx, w.item.MVHEVC(), w.audio, w.subs, w.item.Final())
	})
	return err
}

func (p *Pipeline) relocateOutput(ctx context.Context, w *workState) error {
	_, err := p.step(ctx, stage.RelocateOutput, true, func(ctx context.Context) error {
		dst, err := w.item.Relocate(w.replaces)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, stage.RelocateOutput.String(), "move", w.item.Final(), err)
		}
		w.output = dst
		if p.cfg.Pipeline.KeepFiles {
			return nil
		}
		if err := w.item.Remove(); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, p.logger), "failed to remove work directory", "work_dir_cleanup_failed",
				logging.String("path", w.item.Dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run spatialrip clean to remove stale work directories"),
			)
		}
		return nil
	})
	return err
}
