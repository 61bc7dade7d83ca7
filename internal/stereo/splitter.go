package stereo

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"spatialrip/internal/config"
	"spatialrip/internal/crop"
	"spatialrip/internal/disc"
	"spatialrip/internal/fileutil"
	"spatialrip/internal/logging"
	"spatialrip/internal/procrun"
	"spatialrip/internal/stage"
	"spatialrip/internal/workspace"
)

// Launcher starts a tracked asynchronous process.
type Launcher interface {
	Start(ctx context.Context, cmd procrun.Command, logPath string) (*procrun.Handle, error)
}

// Request describes one split.
type Request struct {
	// Bitstream is the extracted MVC elementary stream.
	Bitstream string
	// Container is the work container; the decoder reads it directly when
	// TransportStream is set.
	Container       string
	TransportStream bool

	Left      string
	Right     string
	LeftFIFO  string
	RightFIFO string

	Descriptor disc.Descriptor
	Crop       *crop.Rect
}

func (r Request) decoderLog() string {
	return workspace.LogPath(r.Bitstream)
}

// Splitter runs the decoder and both eye encoders.
type Splitter struct {
	ffmpeg    string
	wine      string
	frim      string
	bitrate   int
	software  bool
	swapEyes  bool
	keepFiles bool
	launcher  Launcher
	logger    *slog.Logger
}

// NewSplitter constructs a Splitter.
func NewSplitter(cfg config.Config, launcher Launcher, logger *slog.Logger) *Splitter {
	return &Splitter{
		ffmpeg:    cfg.Tools.FFmpeg,
		wine:      cfg.Tools.Wine,
		frim:      cfg.Tools.FRIMDecode,
		bitrate:   cfg.Video.LeftRightBitrate,
		software:  cfg.Video.SoftwareEncoder,
		swapEyes:  cfg.Video.SwapEyes,
		keepFiles: cfg.Pipeline.KeepFiles,
		launcher:  launcher,
		logger:    logging.NewComponentLogger(logger, "splitter"),
	}
}

// Split decodes req's MVC stream into the left and right eye movies. It fails
// if any of the three processes exits non-zero; the others are killed so no
// process is left blocked on a pipe.
func (s *Splitter) Split(ctx context.Context, req Request) (err error) {
	logger := logging.WithContext(ctx, s.logger)

	if err := makeFIFOs(req.LeftFIFO, req.RightFIFO); err != nil {
		return err
	}
	defer removeFIFOs(req.LeftFIFO, req.RightFIFO)
	defer func() { s.cleanup(req, err) }()

	settings := EncoderSettings{
		Descriptor:  req.Descriptor,
		BitrateMbps: s.bitrate,
		Software:    s.software,
		Crop:        req.Crop,
	}
	stageName := stage.SplitStereo.String()

	var handles []*procrun.Handle
	killAll := sync.OnceFunc(func() {
		for _, h := range handles {
			_ = h.Kill()
		}
	})
	abort := func() {
		killAll()
		for _, h := range handles {
			_ = h.Wait()
		}
	}

	// Encoders first: each blocks opening its pipe for reading until the
	// decoder opens the write end.
	for _, eye := range []struct{ fifo, out, label string }{
		{req.LeftFIFO, req.Left, "Encoding left eye"},
		{req.RightFIFO, req.Right, "Encoding right eye"},
	} {
		h, startErr := s.launcher.Start(ctx, procrun.Command{
			Binary: s.ffmpeg,
			Args:   encoderArgs(settings, eye.fifo, eye.out),
			Stage:  stageName,
			Label:  eye.label,
		}, workspace.LogPath(eye.out))
		if startErr != nil {
			abort()
			return startErr
		}
		handles = append(handles, h)
	}

	decoder, err := s.launcher.Start(ctx, procrun.Command{
		Binary: s.wine,
		Args:   s.decoderArgs(req),
		Stage:  stageName,
		Label:  "Decoding MVC",
	}, req.decoderLog())
	if err != nil {
		abort()
		return err
	}
	handles = append(handles, decoder)

	logger.Info("stereo split started",
		logging.String("codec", settings.Codec()),
		logging.String("filters", settings.Filters()),
		logging.Int("decoder_pid", decoder.Pid()),
		logging.String(logging.FieldEventType, "split_started"),
	)

	// The first failure is kept before the others are killed, so a sibling's
	// kill signal never masks the real cause.
	var (
		g        errgroup.Group
		firstErr error
		record   sync.Once
	)
	for _, h := range handles {
		g.Go(func() error {
			if waitErr := h.Wait(); waitErr != nil {
				record.Do(func() { firstErr = waitErr })
				killAll()
				return waitErr
			}
			return nil
		})
	}
	if g.Wait() != nil {
		return firstErr
	}

	logger.Info("stereo split complete",
		logging.String("left", req.Left),
		logging.String("right", req.Right),
		logging.String(logging.FieldEventType, "split_complete"),
	)
	return nil
}

func (s *Splitter) decoderArgs(req Request) []string {
	args := []string{s.frim}
	if req.TransportStream {
		args = append(args, "-ts", "-i:mvc", req.Container, req.Container)
	} else {
		args = append(args, "-i:mvc", req.Bitstream)
	}
	args = append(args, "-o")
	if s.swapEyes {
		return append(args, req.RightFIFO, req.LeftFIFO)
	}
	return append(args, req.LeftFIFO, req.RightFIFO)
}

// cleanup removes process logs and, after success, the consumed bitstream.
// After a failure the partial eye movies go too.
func (s *Splitter) cleanup(req Request, err error) {
	if s.keepFiles {
		return
	}
	paths := []string{workspace.LogPath(req.Left), workspace.LogPath(req.Right), req.decoderLog()}
	if err == nil {
		paths = append(paths, req.Bitstream)
	} else {
		paths = append(paths, req.Left, req.Right)
	}
	for _, path := range paths {
		if rmErr := fileutil.RemoveIfExists(path); rmErr != nil {
			s.logger.Debug("cleanup failed", logging.String("path", path), logging.Error(rmErr))
		}
	}
}
