package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"spatialrip/internal/fileutil"
	"spatialrip/internal/textutil"
)

// ErrForeignDir is returned by Prepare when the work directory path is taken
// by a folder spatialrip did not create.
var ErrForeignDir = errors.New("folder exists and is not a spatialrip work directory")

// Prepare creates the work directory. With purge set an existing directory is
// removed first; resumed runs must reuse what earlier stages left behind.
// An existing folder without the work marker is never reused or removed.
func (i Item) Prepare(purge bool) error {
	if fileutil.Exists(i.Dir) && !IsWorkDir(i.Dir) {
		return ErrForeignDir
	}
	if purge {
		if err := os.RemoveAll(i.Dir); err != nil {
			return fmt.Errorf("purge work directory: %w", err)
		}
	}
	if err := os.MkdirAll(i.Dir, 0o755); err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(i.Dir, markerName), nil, 0o644); err != nil {
		return fmt.Errorf("mark work directory: %w", err)
	}
	return nil
}

// OutputExists reports whether the output root already holds the deliverable,
// comparing names case-insensitively with spaces and underscores equivalent.
// It returns the matching entry.
func (i Item) OutputExists() (string, bool, error) {
	return ExistsNormalized(i.Root, i.FinalName())
}

// ExistsNormalized looks for name among dir's entries using
// textutil.NormalizeName.
func ExistsNormalized(dir, name string) (string, bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	want := textutil.NormalizeName(name)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if textutil.NormalizeName(entry.Name()) == want {
			return filepath.Join(dir, entry.Name()), true, nil
		}
	}
	return "", false, nil
}

// Abandon removes the work directory when nothing was written into it yet.
func (i Item) Abandon() error {
	entries, err := os.ReadDir(i.Dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.Name() != markerName {
			return nil
		}
	}
	return os.RemoveAll(i.Dir)
}

// Relocate moves the deliverable into the output root, replacing any
// previous file of the same name. existing is an earlier deliverable found by
// OutputExists; it is removed after the move unless it already is the
// destination file.
func (i Item) Relocate(existing string) (string, error) {
	dst := i.Destination()
	stale := existing != "" && !fileutil.SameFile(existing, dst)
	if err := fileutil.MoveFile(i.Final(), dst); err != nil {
		return "", fmt.Errorf("relocate %s: %w", i.FinalName(), err)
	}
	if stale {
		if err := fileutil.RemoveIfExists(existing); err != nil {
			return dst, fmt.Errorf("remove replaced %s: %w", existing, err)
		}
	}
	return dst, nil
}

// Remove deletes the work directory and everything in it.
func (i Item) Remove() error {
	return os.RemoveAll(i.Dir)
}

// RemoveSource deletes an original source file or folder.
func RemoveSource(path string) error {
	if path == "" {
		return errors.New("remove source: empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("remove source: %w", err)
	}
	if info.IsDir() {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}

// IsWorkDir reports whether dir was created by Prepare.
func IsWorkDir(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, markerName))
	return err == nil
}

// Size returns the total size of the regular files under path.
func Size(path string) (int64, error) {
	return dirSize(path)
}
