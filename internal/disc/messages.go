package disc

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"spatialrip/internal/logging"
)

var (
	titlesSavedPattern = regexp.MustCompile(`(\d+) titles? saved(?:, (\d+) failed)?`)
	expiredMarkers     = []string{
		"application version is too old",
		"evaluation period has expired",
		"shareware functionality is no longer available",
	}
)

// RipReport summarizes the messages MakeMKV printed while ripping.
type RipReport struct {
	// Counted is false when no "titles saved" summary line was seen.
	Counted    bool
	Saved      int
	Failed     int
	Expired    string
	ReadErrors map[string]int
}

// ScanRipOutput classifies MakeMKV rip output.
func ScanRipOutput(output string) RipReport {
	report := RipReport{ReadErrors: map[string]int{}}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		if m := titlesSavedPattern.FindStringSubmatch(lower); m != nil {
			report.Counted = true
			report.Saved, _ = strconv.Atoi(m[1])
			report.Failed, _ = strconv.Atoi(m[2])
			continue
		}
		if report.Expired == "" {
			for _, marker := range expiredMarkers {
				if strings.Contains(lower, marker) {
					report.Expired = line
					break
				}
			}
		}
		if class, ok := classifyReadError(lower); ok {
			report.ReadErrors[class]++
		}
	}
	return report
}

func classifyReadError(lower string) (string, bool) {
	if !strings.Contains(lower, "error") {
		return "", false
	}
	switch {
	case strings.Contains(lower, "tray open"):
		return "tray_open", true
	case strings.Contains(lower, "l-ec uncorrectable"):
		return "uncorrectable_read", true
	case strings.Contains(lower, "hardware error"):
		return "hardware_error", true
	case strings.Contains(lower, "medium error"):
		return "medium_error", true
	case strings.Contains(lower, "scsi error"), strings.Contains(lower, "read error"):
		return "read_error", true
	}
	return "", false
}

func (r RipReport) log(logger *slog.Logger) {
	for class, count := range r.ReadErrors {
		logging.WarnWithContext(logger, "makemkv read errors", "makemkv_read_error",
			logging.String("classification", class),
			logging.Int("count", count),
			logging.String(logging.FieldErrorHint, "disc may have physical damage or drive issue"),
			logging.String(logging.FieldImpact, "container may be corrupted or incomplete"),
		)
	}
	if r.Counted {
		logger.Info("makemkv rip result",
			logging.Int("titles_saved", r.Saved),
			logging.Int("titles_failed", r.Failed),
			logging.String(logging.FieldEventType, "makemkv_rip_result"),
		)
	}
}
