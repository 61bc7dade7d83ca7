package procrun

import (
	"context"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"spatialrip/internal/logging"
)

// commLimit is the length at which Linux truncates process names.
const commLimit = 15

// Terminate stops spinners, kills every tracked process, then sweeps the
// process table for leftovers whose name matches a tool the runner launched.
// extra names processes that are started indirectly, such as a Windows
// executable hosted by wine. It is safe to call more than once.
func (r *Runner) Terminate(ctx context.Context, extra ...string) {
	r.spinners.stopAll()

	for _, h := range r.registry.Active() {
		if err := h.Kill(); err != nil {
			r.logger.Debug("kill tracked process failed",
				logging.String("command", h.Name()),
				logging.Int("pid", h.Pid()),
				logging.Error(err),
			)
		}
	}

	names := append(r.registry.Names(), extra...)
	if len(names) == 0 {
		return
	}
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		r.logger.Debug("list processes failed", logging.Error(err))
		return
	}
	self := int32(os.Getpid())
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		cmdline, _ := p.CmdlineWithContext(ctx)
		if !matchesTool(name, cmdline, names) {
			continue
		}
		if err := p.KillWithContext(ctx); err != nil {
			r.logger.Debug("kill stray process failed",
				logging.String("name", name),
				logging.Int("pid", int(p.Pid)),
				logging.Error(err),
			)
			continue
		}
		r.logger.Info("killed stray process",
			logging.String("name", name),
			logging.Int("pid", int(p.Pid)),
		)
	}
}

func matchesTool(name, cmdline string, tools []string) bool {
	for _, tool := range tools {
		tool = strings.TrimSpace(tool)
		if tool == "" {
			continue
		}
		if name == tool {
			return true
		}
		if len(tool) > commLimit && name == tool[:commLimit] {
			return true
		}
		// Windows executables appear under the wine loader with the .exe in argv.
		if strings.HasSuffix(strings.ToLower(tool), ".exe") && strings.Contains(cmdline, tool) {
			return true
		}
	}
	return false
}
