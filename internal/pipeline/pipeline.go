package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"spatialrip/internal/audio"
	"spatialrip/internal/config"
	"spatialrip/internal/crop"
	"spatialrip/internal/disc"
	"spatialrip/internal/extract"
	"spatialrip/internal/history"
	"spatialrip/internal/logging"
	"spatialrip/internal/mux"
	"spatialrip/internal/procrun"
	"spatialrip/internal/services"
	"spatialrip/internal/stage"
	"spatialrip/internal/stereo"
	"spatialrip/internal/subtitles"
	"spatialrip/internal/workspace"
)

// Runner launches external commands synchronously and asynchronously.
type Runner interface {
	Run(ctx context.Context, cmd procrun.Command) (string, error)
	Start(ctx context.Context, cmd procrun.Command, logPath string) (*procrun.Handle, error)
}

// Recorder persists run outcomes.
type Recorder interface {
	Begin(ctx context.Context, rec history.Record) error
	Finish(ctx context.Context, id string, out history.Outcome) error
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRecorder records every run in r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		p.recorder = r
	}
}

// Result summarizes one run.
type Result struct {
	RunID  string
	Source string
	Title  string
	Status history.Status
	Output string
	Size   int64
}

// Pipeline runs the stages for one configuration.
type Pipeline struct {
	cfg      config.Config
	machine  stage.Machine
	runner   Runner
	recorder Recorder
	base     *slog.Logger
	logger   *slog.Logger

	prober     *disc.Prober
	ripper     *disc.Ripper
	detector   *crop.Detector
	extractor  *extract.Extractor
	subtitles  *subtitles.Extractor
	splitter   *stereo.Splitter
	upscaler   *stereo.Upscaler
	merger     *mux.Merger
	transcoder *audio.Transcoder
	muxer      *mux.Muxer
}

// New builds a Pipeline. cfg is copied; later changes to the caller's value
// have no effect.
func New(cfg config.Config, runner Runner, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		cfg:     cfg,
		machine: stage.NewMachine(cfg.Pipeline.StartStage),
		runner:  runner,
		base:    logger,
		logger:  logging.NewComponentLogger(logger, "pipeline"),

		prober:     disc.NewProber(cfg, runner, logger),
		ripper:     disc.NewRipper(cfg, runner, logger),
		detector:   crop.NewDetector(cfg, runner, logger),
		extractor:  extract.New(cfg, runner, logger),
		subtitles:  subtitles.New(cfg, runner, logger),
		splitter:   stereo.NewSplitter(cfg, runner, logger),
		upscaler:   stereo.NewUpscaler(cfg, runner, logger),
		merger:     mux.NewMerger(cfg, runner, logger),
		transcoder: audio.NewTranscoder(cfg, runner, logger),
		muxer:      mux.NewMuxer(cfg, runner, logger),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the configuration the pipeline runs with.
func (p *Pipeline) Config() config.Config { return p.cfg }

// WithConfig returns a pipeline sharing p's runner, recorder, and logger
// but running with cfg.
func (p *Pipeline) WithConfig(cfg config.Config) *Pipeline {
	return New(cfg, p.runner, p.base, WithRecorder(p.recorder))
}

// workState is what the stages hand to each other.
type workState struct {
	src       disc.Source
	desc      disc.Descriptor
	item      workspace.Item
	container string
	crop      *crop.Rect
	subs      []subtitles.File
	left      string
	right     string
	audio     string
	output    string
	// replaces is an existing deliverable whose name differs from ours only
	// in case or separators.
	replaces string
}

// Run converts src. A source whose deliverable already exists ends Skipped
// with an error matching services.ErrOutputExists.
func (p *Pipeline) Run(ctx context.Context, src disc.Source) (res Result, err error) {
	runID := uuid.NewString()
	ctx = services.WithRequestID(ctx, runID)
	res = Result{RunID: runID, Source: src.String(), Status: history.StatusRunning}
	started := time.Now()

	p.begin(ctx, res)
	defer func() { p.finish(ctx, &res, err, started) }()

	logging.WithContext(ctx, p.logger).Info("processing source",
		logging.String("source", src.String()),
		logging.String("kind", src.Kind.String()),
		logging.String("start_stage", p.machine.Start().String()),
		logging.String(logging.FieldEventType, "item_start"),
	)

	desc, err := p.prober.Probe(ctx, src)
	if err != nil {
		return res, err
	}
	res.Title = desc.Name
	ctx = services.WithItemID(ctx, desc.Name)
	logger := logging.WithContext(ctx, p.logger)

	item := workspace.New(p.cfg.Paths.OutputRoot, desc.Name)
	if err := item.Prepare(p.machine.PurgesOutput()); err != nil {
		return res, services.Wrap(services.ErrConfiguration, "", "prepare", item.Dir, err)
	}

	existing, exists, err := item.OutputExists()
	if err != nil {
		return res, services.Wrap(services.ErrConfiguration, "", "check output", p.cfg.Paths.OutputRoot, err)
	}
	if exists && !p.cfg.Pipeline.Overwrite {
		if abandonErr := item.Abandon(); abandonErr != nil {
			logger.Debug("remove unused work directory failed", logging.Error(abandonErr))
		}
		res.Status = history.StatusSkipped
		res.Output = existing
		return res, services.Wrap(services.ErrOutputExists, "", "check output",
			fmt.Sprintf("%s already exists; use --overwrite to replace it", existing), nil)
	}

	w := &workState{src: src, desc: desc, item: item}
	if exists {
		logger.Info("existing output will be replaced",
			logging.String("existing", existing),
			logging.String(logging.FieldDecisionType, "overwrite"),
		)
		w.replaces = existing
	}
	if err := p.process(ctx, w); err != nil {
		return res, err
	}

	res.Output = w.output
	if info, statErr := os.Stat(w.output); statErr == nil {
		res.Size = info.Size()
	}
	p.removeOriginal(ctx, src)
	return res, nil
}

func (p *Pipeline) removeOriginal(ctx context.Context, src disc.Source) {
	if !p.cfg.Pipeline.RemoveOriginal {
		return
	}
	logger := logging.WithContext(ctx, p.logger)
	if !src.Removable() {
		logger.Info("original not removed; optical drives are never deleted", logging.String("source", src.String()))
		return
	}
	if err := workspace.RemoveSource(src.Path); err != nil {
		logging.WarnWithContext(logger, "failed to remove original source", "remove_original_failed",
			logging.String("source", src.Path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "original source left in place"),
		)
		return
	}
	logger.Info("original source removed", logging.String("source", src.Path))
}

func (p *Pipeline) begin(ctx context.Context, res Result) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.Begin(ctx, history.Record{
		ID:         res.RunID,
		Source:     res.Source,
		StartStage: p.machine.Start().String(),
		StartedAt:  time.Now(),
	}); err != nil {
		p.logger.Debug("history begin failed", logging.Error(err))
	}
}

func (p *Pipeline) finish(ctx context.Context, res *Result, err error, started time.Time) {
	switch {
	case err == nil:
		res.Status = history.StatusCompleted
	case res.Status == history.StatusSkipped:
	case errors.Is(err, services.ErrCanceled) || errors.Is(err, context.Canceled):
		res.Status = history.StatusInterrupted
	default:
		res.Status = history.StatusFailed
	}

	logger := logging.WithContext(ctx, p.logger)
	attrs := []logging.Attr{
		logging.String("status", string(res.Status)),
		logging.Duration("duration", time.Since(started)),
		logging.String(logging.FieldEventType, "item_"+string(res.Status)),
	}
	switch res.Status {
	case history.StatusCompleted:
		logger.Info("item completed", logging.Args(append(attrs, logging.String("output", res.Output))...)...)
	case history.StatusSkipped:
		logger.Info("item skipped", logging.Args(append(attrs, logging.String("existing", res.Output))...)...)
	default:
		logger.Error("item failed", logging.Args(append(attrs,
			logging.Error(err),
			logging.String("error_kind", services.Kind(err)),
		)...)...)
	}

	if p.recorder == nil {
		return
	}
	// The run context may already be canceled; the outcome must still land.
	recordCtx := context.WithoutCancel(ctx)
	if recErr := p.recorder.Finish(recordCtx, res.RunID, history.Outcome{
		Status:     res.Status,
		Title:      res.Title,
		Err:        err,
		OutputPath: res.Output,
		OutputSize: res.Size,
	}); recErr != nil {
		p.logger.Debug("history finish failed", logging.Error(recErr))
	}
}
