package disc

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"spatialrip/internal/textutil"
)

// Title is one MakeMKV title as seen in robot output.
type Title struct {
	Index      int
	Duration   int // seconds
	HasMVC     bool
	Resolution string
	FrameRate  string
}

// Robot-mode line patterns. Anything that does not match is ignored.
var (
	discNamePattern   = regexp.MustCompile(`^CINFO:2,0,"(.*?)"`)
	titleIndexPattern = regexp.MustCompile(`^TINFO:(\d+),`)
	durationPattern   = regexp.MustCompile(`^TINFO:\d+,9,0,"(\d+):(\d+):(\d+)"`)
	streamPattern     = regexp.MustCompile(`^SINFO:(\d+),`)
	resolutionPattern = regexp.MustCompile(`^SINFO:\d+,1,19,0,"(\d+x\d+)"`)
	frameRatePattern  = regexp.MustCompile(`^SINFO:\d+,1,21,0,"(.*?)"`)
)

var mvcMarkers = []string{"mvc-3d", "mpeg4-mvc", "mvc video", "mvc high", "mpeg4 mvc"}

// ParseRobotOutput extracts the disc name and per-title facts from a
// makemkvcon --robot info transcript. The name is sanitized; it is "" when the
// transcript carries no disc name.
func ParseRobotOutput(output string) (string, []Title) {
	var name string
	titles := make(map[int]*Title)
	current := -1

	get := func(idx int) *Title {
		t, ok := titles[idx]
		if !ok {
			t = &Title{Index: idx}
			titles[idx] = t
		}
		return t
	}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "CINFO:"):
			if m := discNamePattern.FindStringSubmatch(line); m != nil && name == "" {
				name = textutil.SanitizeTitle(m[1])
			}
		case strings.HasPrefix(line, "TINFO:"):
			m := titleIndexPattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			idx, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			current = idx
			title := get(idx)
			if d := durationPattern.FindStringSubmatch(line); d != nil {
				title.Duration = hms(d[1], d[2], d[3])
			}
		case strings.HasPrefix(line, "SINFO:"):
			idx := current
			if m := streamPattern.FindStringSubmatch(line); m != nil {
				if parsed, err := strconv.Atoi(m[1]); err == nil {
					idx = parsed
				}
			}
			if idx < 0 {
				continue
			}
			title := get(idx)
			lower := strings.ToLower(line)
			for _, marker := range mvcMarkers {
				if strings.Contains(lower, marker) {
					title.HasMVC = true
					break
				}
			}
			if m := resolutionPattern.FindStringSubmatch(line); m != nil {
				title.Resolution = m[1]
			}
			if m := frameRatePattern.FindStringSubmatch(line); m != nil {
				title.FrameRate = normalizeFrameRate(m[1])
			}
		}
	}

	out := make([]Title, 0, len(titles))
	for _, t := range titles {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return name, out
}

// SelectMVCTitle returns the longest title carrying an MVC stream, preferring
// the lowest index on equal durations.
func SelectMVCTitle(titles []Title) (Title, bool) {
	var (
		best  Title
		found bool
	)
	for _, t := range titles {
		if !t.HasMVC {
			continue
		}
		if !found || t.Duration > best.Duration || (t.Duration == best.Duration && t.Index < best.Index) {
			best, found = t, true
		}
	}
	return best, found
}

// normalizeFrameRate drops the trailing rational MakeMKV appends, so
// "23.976 (24000/1001)" becomes "23.976".
func normalizeFrameRate(value string) string {
	value = strings.TrimSpace(value)
	if strings.Contains(value, "/") {
		if head, _, ok := strings.Cut(value, " "); ok {
			return head
		}
	}
	return value
}

func hms(h, m, s string) int {
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	seconds, _ := strconv.Atoi(s)
	return hours*3600 + minutes*60 + seconds
}
