package stereo

import (
	"runtime"
	"strconv"
	"strings"

	"spatialrip/internal/crop"
	"spatialrip/internal/disc"
)

const (
	hardwareEncoder = "hevc_videotoolbox"
	softwareEncoder = "libx265"
)

// EncoderSettings are the per-eye encode parameters shared by both eyes.
type EncoderSettings struct {
	Descriptor disc.Descriptor
	// BitrateMbps is the per-eye target bitrate.
	BitrateMbps int
	Software    bool
	Crop        *crop.Rect
}

// Codec returns the HEVC encoder to use. VideoToolbox only exists on macOS.
func (s EncoderSettings) Codec() string {
	if s.Software || runtime.GOOS != "darwin" {
		return softwareEncoder
	}
	return hardwareEncoder
}

// Filters returns the -vf chain, or "" when no filtering is needed.
func (s EncoderSettings) Filters() string {
	var filters []string
	if s.Crop != nil {
		filters = append(filters, s.Crop.Filter())
	}
	if s.Descriptor.Interlaced {
		filters = append(filters, "yadif")
	}
	return strings.Join(filters, ",")
}

// encoderArgs builds the ffmpeg arguments that read raw frames from fifo and
// write an HEVC movie tagged hvc1 to output.
func encoderArgs(s EncoderSettings, fifo, output string) []string {
	d := s.Descriptor
	bitrate := strconv.Itoa(s.BitrateMbps)
	bufsize := strconv.Itoa(s.BitrateMbps * 2)
	args := []string{
		"-y", "-hide_banner", "-nostdin",
		"-f", "rawvideo",
		"-pix_fmt", d.PixelFormat(),
		"-s", d.Resolution,
		"-r", d.FrameRate,
		"-i", fifo,
	}
	if vf := s.Filters(); vf != "" {
		args = append(args, "-vf", vf)
	}
	args = append(args,
		"-c:v", s.Codec(),
		"-b:v", bitrate+"M",
		"-bufsize", bufsize+"M",
		"-tag:v", "hvc1",
		"-profile:v", d.Profile(),
		"-r", d.FrameRate,
		output,
	)
	return args
}
