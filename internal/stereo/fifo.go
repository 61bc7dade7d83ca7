package stereo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// makeFIFOs creates fresh named pipes at paths, replacing anything already
// there. On failure the pipes created so far are removed.
func makeFIFOs(paths ...string) error {
	for i, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			removeFIFOs(paths[:i]...)
			return fmt.Errorf("remove stale fifo %s: %w", path, err)
		}
		if err := unix.Mkfifo(path, 0o600); err != nil {
			removeFIFOs(paths[:i]...)
			return fmt.Errorf("create fifo %s: %w", path, err)
		}
	}
	return nil
}

func removeFIFOs(paths ...string) {
	for _, path := range paths {
		_ = os.Remove(path)
	}
}
