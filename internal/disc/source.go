package disc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"spatialrip/internal/config"
	"spatialrip/internal/fileutil"
	"spatialrip/internal/services"
)

// Kind classifies a source.
type Kind int

const (
	KindOptical Kind = iota
	KindImage
	KindFolder
	KindTransportStream
	KindMatroska
)

func (k Kind) String() string {
	switch k {
	case KindOptical:
		return "optical"
	case KindImage:
		return "image"
	case KindFolder:
		return "folder"
	case KindTransportStream:
		return "transport_stream"
	case KindMatroska:
		return "matroska"
	default:
		return "unknown"
	}
}

// File extensions recognised as sources.
var (
	ImageExtensions           = []string{".iso", ".img", ".bin"}
	TransportStreamExtensions = []string{".mts", ".m2ts"}
	MatroskaExtensions        = []string{".mkv"}
)

// SourceExtensions lists every file extension the batch and watch modes pick up.
func SourceExtensions() []string {
	out := append([]string(nil), ImageExtensions...)
	out = append(out, TransportStreamExtensions...)
	return append(out, MatroskaExtensions...)
}

// Source is a classified input.
type Source struct {
	// Raw is the argument as given, e.g. "disc:0" or a path.
	Raw string
	// Path is the absolute filesystem path; empty for optical drives.
	Path string
	Kind Kind
}

// ParseSource classifies raw. Optical references use the disc:N or
// dev:/dev/srX forms; anything else must be an existing file or directory.
func ParseSource(raw string) (Source, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Source{}, services.Wrap(services.ErrValidation, "", "source", "empty source", nil)
	}
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "disc:"):
		if _, err := strconv.Atoi(raw[len("disc:"):]); err != nil {
			return Source{}, services.Wrap(services.ErrValidation, "", "source", fmt.Sprintf("invalid disc index in %q", raw), err)
		}
		return Source{Raw: raw, Kind: KindOptical}, nil
	case strings.HasPrefix(lower, "dev:"):
		if strings.TrimSpace(raw[len("dev:"):]) == "" {
			return Source{}, services.Wrap(services.ErrValidation, "", "source", "dev: requires a device path", nil)
		}
		return Source{Raw: raw, Kind: KindOptical}, nil
	}

	path, err := config.ExpandPath(raw)
	if err != nil {
		return Source{}, services.Wrap(services.ErrValidation, "", "source", "resolve path", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Source{}, services.Wrap(services.ErrValidation, "", "source", fmt.Sprintf("%s does not exist", path), nil)
		}
		return Source{}, services.Wrap(services.ErrValidation, "", "source", "stat source", err)
	}
	src := Source{Raw: raw, Path: path}
	switch {
	case info.IsDir():
		src.Kind = KindFolder
	case fileutil.HasExtension(path, ImageExtensions...):
		src.Kind = KindImage
	case fileutil.HasExtension(path, TransportStreamExtensions...):
		src.Kind = KindTransportStream
	case fileutil.HasExtension(path, MatroskaExtensions...):
		src.Kind = KindMatroska
	default:
		return Source{}, services.Wrap(services.ErrValidation, "", "source",
			fmt.Sprintf("unsupported source %s (expected disc:N, dev:, a folder, or %s)", path, strings.Join(SourceExtensions(), " ")), nil)
	}
	return src, nil
}

// IsFile reports whether the source is a container file copied rather than ripped.
func (s Source) IsFile() bool {
	return s.Kind == KindTransportStream || s.Kind == KindMatroska
}

// Removable reports whether the source may be deleted after a successful run.
func (s Source) Removable() bool {
	return s.Kind != KindOptical && s.Path != ""
}

// MakeMKVArg renders the source in the form makemkvcon expects.
func (s Source) MakeMKVArg() string {
	switch s.Kind {
	case KindOptical:
		return s.Raw
	case KindImage:
		return "iso:" + s.Path
	default:
		return "file:" + s.Path
	}
}

// NoScan reports whether makemkvcon should skip scanning attached drives.
func (s Source) NoScan() bool {
	return s.Kind != KindOptical
}

// String returns the human-facing identifier.
func (s Source) String() string {
	if s.Path != "" {
		return s.Path
	}
	return s.Raw
}

// Stem is the file or folder name without extension, used for naming file sources.
func (s Source) Stem() string {
	if s.Path == "" {
		return ""
	}
	base := filepath.Base(s.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsDiscFolder reports whether dir holds a Blu-ray folder structure.
func IsDiscFolder(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, "BDMV"))
	return err == nil && info.IsDir()
}
