package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/disk"
	"golang.org/x/sys/unix"

	"spatialrip/internal/deps"
)

const gib = 1 << 30

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minGiB free.
// A zero floor only reports the free space.
func CheckFreeSpace(ctx context.Context, name, path string, minGiB int) Result {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: usage: %v)", path, err)}
	}
	free := humanize.IBytes(usage.Free)
	if minGiB > 0 && usage.Free < uint64(minGiB)*gib {
		return Result{Name: name, Detail: fmt.Sprintf("%s free, %d GiB required", free, minGiB)}
	}
	return Result{Name: name, Passed: true, Detail: free + " free"}
}

// CheckTools reports each missing required tool as a failed result.
func CheckTools(statuses []deps.Status) []Result {
	missing := deps.Missing(statuses)
	if len(missing) == 0 {
		return []Result{{Name: "External tools", Passed: true, Detail: fmt.Sprintf("%d available", len(statuses))}}
	}
	names := make([]string, 0, len(missing))
	for _, s := range missing {
		names = append(names, fmt.Sprintf("%s (%s)", s.Name, s.Detail))
	}
	return []Result{{Name: "External tools", Detail: "missing: " + strings.Join(names, ", ")}}
}
