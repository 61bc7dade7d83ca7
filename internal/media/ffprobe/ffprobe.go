package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"spatialrip/internal/procrun"
)

// Runner executes a command to completion.
type Runner interface {
	Run(ctx context.Context, cmd procrun.Command) (string, error)
}

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index         int               `json:"index"`
	CodecName     string            `json:"codec_name"`
	CodecType     string            `json:"codec_type"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	PixFmt        string            `json:"pix_fmt"`
	FieldOrder    string            `json:"field_order"`
	AvgFrameRate  string            `json:"avg_frame_rate"`
	Channels      int               `json:"channels"`
	ChannelLayout string            `json:"channel_layout"`
	Duration      string            `json:"duration"`
	Tags          map[string]string `json:"tags"`
	Disposition   Disposition       `json:"disposition"`
}

// Disposition carries the stream flags the muxer and subtitle stage read.
type Disposition struct {
	Default int `json:"default"`
	Forced  int `json:"forced"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against path and decodes the JSON response.
func Inspect(ctx context.Context, runner Runner, binary, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	output, err := runner.Run(ctx, procrun.Command{
		Binary: binary,
		Args:   []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path},
		Label:  "Inspecting media",
	})
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	return Parse([]byte(output))
}

// Parse decodes ffprobe JSON, skipping any diagnostics printed ahead of it.
func Parse(data []byte) (Result, error) {
	if idx := bytes.IndexByte(data, '{'); idx > 0 {
		data = data[idx:]
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// StreamsOfType returns the streams whose codec_type matches kind.
func (r Result) StreamsOfType(kind string) []Stream {
	var out []Stream
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			out = append(out, stream)
		}
	}
	return out
}

// FirstVideo returns the first video stream.
func (r Result) FirstVideo() (Stream, bool) {
	videos := r.StreamsOfType("video")
	if len(videos) == 0 {
		return Stream{}, false
	}
	return videos[0], true
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	cleaned := strings.TrimSpace(r.Format.Duration)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || parsed < 0 {
		return 0
	}
	return parsed
}

// Resolution renders the stream geometry as WxH, or "" when unknown.
func (s Stream) Resolution() string {
	if s.Width <= 0 || s.Height <= 0 {
		return ""
	}
	return strconv.Itoa(s.Width) + "x" + strconv.Itoa(s.Height)
}

// ColorDepth returns 10 for 10-bit pixel formats and 8 otherwise.
func (s Stream) ColorDepth() int {
	pix := strings.ToLower(s.PixFmt)
	if strings.Contains(pix, "10le") || strings.Contains(pix, "10be") {
		return 10
	}
	return 8
}

// Interlaced reports whether the stream is not flagged progressive.
func (s Stream) Interlaced() bool {
	return !strings.EqualFold(strings.TrimSpace(s.FieldOrder), "progressive")
}

// Language returns the stream language tag or "und".
func (s Stream) Language() string {
	for _, key := range []string{"language", "LANGUAGE"} {
		if value := strings.TrimSpace(s.Tags[key]); value != "" {
			return strings.ToLower(value)
		}
	}
	return "und"
}

// IsForced reports the forced disposition flag.
func (s Stream) IsForced() bool { return s.Disposition.Forced == 1 }

// IsDefault reports the default disposition flag.
func (s Stream) IsDefault() bool { return s.Disposition.Default == 1 }
