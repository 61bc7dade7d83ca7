package procrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"spatialrip/internal/logging"
	"spatialrip/internal/services"
)

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(r *Runner) {
		if exec != nil {
			r.exec = exec
		}
	}
}

// WithCommandLogging logs every command line at info level instead of debug.
func WithCommandLogging(enabled bool) Option {
	return func(r *Runner) { r.logCommands = enabled }
}

// WithSpinner forces spinners on or off; by default they are drawn only when
// stderr is a terminal.
func WithSpinner(enabled bool) Option {
	return func(r *Runner) { r.spinners = newSpinnerSet(enabled) }
}

// Runner launches external tools and tracks the long-running ones.
type Runner struct {
	exec        Executor
	logger      *slog.Logger
	registry    *Registry
	spinners    *spinnerSet
	logCommands bool
}

// New constructs a Runner.
func New(logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		exec:     commandExecutor{},
		logger:   logging.NewComponentLogger(logger, "procrun"),
		registry: NewRegistry(),
		spinners: newSpinnerSet(stderrIsTerminal()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry exposes the tracked processes.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Run executes cmd to completion and returns its combined output. A non-zero
// exit yields a *services.ToolError carrying cmd.Marker and the output.
func (r *Runner) Run(ctx context.Context, cmd Command) (string, error) {
	logger := logging.WithContext(ctx, r.logger)
	r.announce(logger, cmd)
	r.registry.noteName(cmd.Name())

	stop := r.spinners.begin(cmd.label())
	started := time.Now()
	out, err := r.exec.Output(ctx, cmd)
	stop()

	output := string(out)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return output, services.Wrap(services.ErrCanceled, cmd.Stage, cmd.Name(), "interrupted", ctxErr)
		}
		return output, services.NewToolError(cmd.Marker, cmd.Stage, cmd.Argv(), output, err)
	}
	logger.Debug("command finished",
		logging.String("command", cmd.Name()),
		logging.Duration("duration", time.Since(started)),
		logging.String("elapsed", humanize.RelTime(started, time.Now(), "", "")),
	)
	return output, nil
}

// Start launches cmd asynchronously with its output appended to logPath.
func (r *Runner) Start(ctx context.Context, cmd Command, logPath string) (*Handle, error) {
	logger := logging.WithContext(ctx, r.logger)
	r.announce(logger, cmd)

	if dir := filepath.Dir(logPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open process log: %w", err)
	}
	proc, err := r.exec.Start(ctx, cmd, logFile)
	if err != nil {
		_ = logFile.Close()
		return nil, services.NewToolError(cmd.Marker, cmd.Stage, cmd.Argv(), "", err)
	}
	h := &Handle{
		cmd:      cmd,
		proc:     proc,
		logPath:  logPath,
		logFile:  logFile,
		registry: r.registry,
		ctx:      ctx,
		started:  time.Now(),
	}
	r.registry.add(h)
	logger.Debug("process started",
		logging.String("command", cmd.Name()),
		logging.Int("pid", proc.Pid()),
		logging.String("log", logPath),
	)
	return h, nil
}

func (r *Runner) announce(logger *slog.Logger, cmd Command) {
	attrs := logging.Args(logging.String("command_line", cmd.String()))
	if r.logCommands {
		logger.Info("running "+cmd.Name(), attrs...)
		return
	}
	logger.Debug("running "+cmd.Name(), attrs...)
}

// Handle is an asynchronously launched process.
type Handle struct {
	cmd      Command
	proc     Process
	logPath  string
	logFile  *os.File
	registry *Registry
	ctx      context.Context
	started  time.Time
}

// Name returns the binary base name.
func (h *Handle) Name() string { return h.cmd.Name() }

// Pid returns the operating system process id.
func (h *Handle) Pid() int { return h.proc.Pid() }

// LogPath returns the file receiving the process output.
func (h *Handle) LogPath() string { return h.logPath }

// Kill terminates the process.
func (h *Handle) Kill() error { return h.proc.Kill() }

// Wait blocks until the process exits, closes its log, and removes it from the
// registry. A failure carries the tail of the log as diagnostic output.
func (h *Handle) Wait() error {
	err := h.proc.Wait()
	_ = h.logFile.Close()
	h.registry.remove(h)
	if err == nil {
		return nil
	}
	if ctxErr := h.ctx.Err(); ctxErr != nil {
		return services.Wrap(services.ErrCanceled, h.cmd.Stage, h.cmd.Name(), "interrupted", ctxErr)
	}
	return services.NewToolError(h.cmd.Marker, h.cmd.Stage, h.cmd.Argv(), tailFile(h.logPath, 20), err)
}

// Elapsed reports how long the process has been running.
func (h *Handle) Elapsed() time.Duration { return time.Since(h.started) }

func tailFile(path string, lines int) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(all) > lines {
		all = all[len(all)-lines:]
	}
	return strings.Join(all, "\n")
}
