package preflight

import (
	"context"
	"fmt"
	"strings"

	"spatialrip/internal/config"
	"spatialrip/internal/deps"
	"spatialrip/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for cfg.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Output root", cfg.Paths.OutputRoot),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckFreeSpace(ctx, "Output free space", cfg.Paths.OutputRoot, cfg.Paths.MinFreeGiB),
	}
	return append(results, CheckTools(deps.CheckBinaries(deps.Requirements(*cfg)))...)
}

// Err folds failed results into a configuration error, or nil when all passed.
func Err(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check", strings.Join(failed, "; "), nil)
}
