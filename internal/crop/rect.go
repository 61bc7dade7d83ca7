package crop

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Rect is a crop rectangle in pixels.
type Rect struct {
	Width  int
	Height int
	X      int
	Y      int
}

// ParseFilter reads "crop=W:H:X:Y" or "W:H:X:Y".
func ParseFilter(filter string) (Rect, bool) {
	s := strings.TrimSpace(filter)
	s = strings.TrimPrefix(s, "crop=")
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return Rect{}, false
	}
	var values [4]int
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v < 0 {
			return Rect{}, false
		}
		values[i] = v
	}
	r := Rect{Width: values[0], Height: values[1], X: values[2], Y: values[3]}
	if r.Width == 0 || r.Height == 0 {
		return Rect{}, false
	}
	return r, true
}

// Parse collects every crop=W:H:X:Y proposal in cropdetect output.
func Parse(output string) []Rect {
	var rects []Rect
	for _, line := range strings.Split(output, "\n") {
		_, after, ok := strings.Cut(line, "crop=")
		if !ok {
			continue
		}
		token, _, _ := strings.Cut(after, " ")
		if r, ok := ParseFilter(token); ok {
			rects = append(rects, r)
		}
	}
	return rects
}

// Aggregate returns the rectangle safe for every sample: the largest width
// and height with the smallest offsets. The result does not depend on order.
func Aggregate(samples []Rect) (Rect, bool) {
	if len(samples) == 0 {
		return Rect{}, false
	}
	out := samples[0]
	for _, r := range samples[1:] {
		out.Width = max(out.Width, r.Width)
		out.Height = max(out.Height, r.Height)
		out.X = min(out.X, r.X)
		out.Y = min(out.Y, r.Y)
	}
	return out, true
}

// String renders W:H:X:Y, the argument form of ffmpeg's crop filter.
func (r Rect) String() string {
	return fmt.Sprintf("%d:%d:%d:%d", r.Width, r.Height, r.X, r.Y)
}

// Filter renders the ffmpeg filter expression.
func (r Rect) Filter() string {
	return "crop=" + r.String()
}

// AspectRatio names the closest standard ratio of the cropped picture.
func (r Rect) AspectRatio() string {
	if r.Height == 0 {
		return ""
	}
	return MatchStandardRatio(float64(r.Width) / float64(r.Height))
}

// MatchStandardRatio returns a human-readable name for the closest standard
// aspect ratio within 2% tolerance, or a numeric label like "1.78:1".
func MatchStandardRatio(ratio float64) string {
	type standard struct {
		name  string
		value float64
	}
	standards := []standard{
		{"4:3", 4.0 / 3.0},
		{"16:9", 16.0 / 9.0},
		{"1.85:1", 1.85},
		{"2.00:1", 2.00},
		{"2.35:1", 2.35},
		{"2.39:1", 2.39},
		{"2.40:1", 2.40},
	}

	bestName := ""
	bestDist := math.MaxFloat64
	for _, s := range standards {
		dist := math.Abs(ratio - s.value)
		if dist < bestDist {
			bestDist = dist
			bestName = s.name
		}
	}
	if bestName != "" && bestDist/ratio <= 0.02 {
		return bestName
	}
	return fmt.Sprintf("%.2f:1", ratio)
}
