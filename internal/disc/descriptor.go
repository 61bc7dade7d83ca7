package disc

// Defaults used when the probe output omits a value.
const (
	DefaultName       = "Unknown"
	DefaultFrameRate  = "23.976"
	DefaultResolution = "1920x1080"
	DefaultColorDepth = 8
)

// Descriptor describes a probed source. It is a value: the override helpers
// return modified copies.
type Descriptor struct {
	Name       string
	FrameRate  string
	Resolution string
	ColorDepth int
	Interlaced bool
	// TitleIndex is the MakeMKV title carrying the MVC stream; zero for file sources.
	TitleIndex int
}

func defaultDescriptor() Descriptor {
	return Descriptor{
		Name:       DefaultName,
		FrameRate:  DefaultFrameRate,
		Resolution: DefaultResolution,
		ColorDepth: DefaultColorDepth,
	}
}

// WithOverrides applies operator-supplied frame rate and resolution, which
// win over anything probed. Empty values leave the probed value in place.
func (d Descriptor) WithOverrides(frameRate, resolution string) Descriptor {
	if frameRate != "" {
		d.FrameRate = frameRate
	}
	if resolution != "" {
		d.Resolution = resolution
	}
	return d
}

// WithColorDepth records the bit depth measured on the ripped container.
func (d Descriptor) WithColorDepth(depth int) Descriptor {
	if depth == 8 || depth == 10 {
		d.ColorDepth = depth
	}
	return d
}

// PixelFormat is the raw frame format the decoder emits for this depth.
func (d Descriptor) PixelFormat() string {
	if d.ColorDepth == 10 {
		return "yuv420p10le"
	}
	return "yuv420p"
}

// Profile is the HEVC profile matching the colour depth.
func (d Descriptor) Profile() string {
	if d.ColorDepth == 10 {
		return "main10"
	}
	return "main"
}
