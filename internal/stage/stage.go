package stage

import (
	"fmt"
	"strconv"
	"strings"
)

// Stage is an ordered pipeline milestone.
type Stage int

const (
	CreateContainer Stage = iota
	ExtractStreams
	ExtractSubtitles
	SplitStereo
	CombineStereo
	Upscale
	TranscodeAudio
	MuxFinal
	RelocateOutput
)

// First and Last bound the ordering.
const (
	First = CreateContainer
	Last  = RelocateOutput
)

var names = [...]string{
	CreateContainer:  "create_container",
	ExtractStreams:   "extract_streams",
	ExtractSubtitles: "extract_subtitles",
	SplitStereo:      "split_stereo",
	CombineStereo:    "combine_stereo",
	Upscale:          "upscale",
	TranscodeAudio:   "transcode_audio",
	MuxFinal:         "mux_final",
	RelocateOutput:   "relocate_output",
}

var descriptions = [...]string{
	CreateContainer:  "Rip or copy the source into an MKV container",
	ExtractStreams:   "Extract the MVC bitstream and PCM audio",
	ExtractSubtitles: "OCR image subtitles into SRT",
	SplitStereo:      "Decode MVC into left and right HEVC movies",
	CombineStereo:    "Merge both eyes into MV-HEVC",
	Upscale:          "Upscale each eye (optional)",
	TranscodeAudio:   "Transcode PCM audio to AAC (optional)",
	MuxFinal:         "Mux video, audio, and subtitles",
	RelocateOutput:   "Move the final file into the output root",
}

// All returns every stage in execution order.
func All() []Stage {
	out := make([]Stage, 0, len(names))
	for s := First; s <= Last; s++ {
		out = append(out, s)
	}
	return out
}

func (s Stage) String() string {
	if !s.Valid() {
		return "stage(" + strconv.Itoa(int(s)) + ")"
	}
	return names[s]
}

// Valid reports whether s is one of the declared stages.
func (s Stage) Valid() bool {
	return s >= First && s <= Last
}

// Number is the 1-based position shown to operators.
func (s Stage) Number() int {
	return int(s) + 1
}

// Description is a one-line summary of the stage.
func (s Stage) Description() string {
	if !s.Valid() {
		return ""
	}
	return descriptions[s]
}

// Optional reports whether the stage only runs when a feature flag enables it.
func (s Stage) Optional() bool {
	return s == Upscale || s == TranscodeAudio
}

// Parse accepts a stage name (case-insensitive, '-' or '_' separated) or its
// 1-based number.
func Parse(value string) (Stage, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return First, nil
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		s := Stage(n - 1)
		if !s.Valid() {
			return 0, fmt.Errorf("stage number %d out of range 1-%d", n, Last.Number())
		}
		return s, nil
	}
	key := strings.ToLower(strings.NewReplacer("-", "_", " ", "_").Replace(trimmed))
	for s := First; s <= Last; s++ {
		if names[s] == key {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", value)
}

// MarshalText implements encoding.TextMarshaler for config encoding.
func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid stage %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for config decoding.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
