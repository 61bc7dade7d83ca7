// Package power keeps the machine awake while a long run is in progress.
package power

import (
	"context"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"

	"spatialrip/internal/logging"
	"spatialrip/internal/procrun"
)

// Launcher starts a tracked asynchronous process.
type Launcher interface {
	Start(ctx context.Context, cmd procrun.Command, logPath string) (*procrun.Handle, error)
}

// InhibitCommand returns the idle/sleep inhibitor for goos, or false when the
// platform has none.
func InhibitCommand(goos string) (procrun.Command, bool) {
	switch goos {
	case "darwin":
		return procrun.Command{Binary: "caffeinate", Args: []string{"-dims"}, Label: "Keeping system awake"}, true
	case "linux":
		return procrun.Command{
			Binary: "systemd-inhibit",
			Args: []string{
				"--what=idle:sleep",
				"--who=spatialrip",
				"--why=Converting 3D video",
				"--mode=block",
				"sleep", "infinity",
			},
			Label: "Keeping system awake",
		}, true
	}
	return procrun.Command{}, false
}

// Inhibit starts the platform inhibitor and returns a func that releases it.
// A missing inhibitor is logged and the returned release does nothing.
func Inhibit(ctx context.Context, launcher Launcher, logDir string, logger *slog.Logger) func() {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "power"))
	cmd, ok := InhibitCommand(runtime.GOOS)
	if !ok {
		logger.Debug("no sleep inhibitor for platform", logging.String("goos", runtime.GOOS))
		return func() {}
	}
	if _, err := exec.LookPath(cmd.Binary); err != nil {
		logging.WarnWithContext(logger, "sleep inhibitor unavailable; system may sleep during the run", "keep_awake_unavailable",
			logging.String("binary", cmd.Binary),
		)
		return func() {}
	}
	return hold(ctx, launcher, cmd, filepath.Join(logDir, "keep-awake.log"), logger)
}

func hold(ctx context.Context, launcher Launcher, cmd procrun.Command, logPath string, logger *slog.Logger) func() {
	h, err := launcher.Start(ctx, cmd, logPath)
	if err != nil {
		logging.WarnWithContext(logger, "sleep inhibitor failed to start", "keep_awake_unavailable", logging.Error(err))
		return func() {}
	}
	logger.Info("keeping system awake", logging.String("inhibitor", cmd.Binary), logging.Int("pid", h.Pid()))
	var released bool
	return func() {
		if released {
			return
		}
		released = true
		_ = h.Kill()
		_ = h.Wait()
	}
}
