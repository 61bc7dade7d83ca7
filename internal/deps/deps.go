package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"spatialrip/internal/config"
)

// Requirement defines an external dependency the pipeline relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// File marks requirements that are a file path rather than an executable
	// on PATH, such as a Windows binary run under wine.
	File bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the tools cfg will invoke. Tools for disabled stages are
// reported as optional.
func Requirements(cfg config.Config) []Requirement {
	tools := cfg.Tools
	return []Requirement{
		{Name: "MakeMKV", Command: tools.MakeMKV, Description: "Disc probing and ripping"},
		{Name: "FFmpeg", Command: tools.FFmpeg, Description: "Stream extraction, eye encoding, crop detection, audio"},
		{Name: "FFprobe", Command: tools.FFprobe, Description: "Media inspection"},
		{Name: "Wine", Command: tools.Wine, Description: "Runs the MVC decoder"},
		{Name: "FRIMDecode", Command: tools.FRIMDecode, Description: "MVC to stereo decoder", File: true},
		{Name: "Spatial Media Kit", Command: tools.SpatialMediaKit, Description: "MV-HEVC merge"},
		{Name: "MP4Box", Command: tools.MP4Box, Description: "Final container mux"},
		{Name: "Subtitle OCR", Command: tools.SubtitleOCR, Description: "Image subtitle OCR", Optional: cfg.Subtitles.Skip},
		{Name: "fx-upscale", Command: tools.FXUpscale, Description: "AI upscaling", Optional: !cfg.Video.FXUpscale},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch {
		case cmd == "":
			status.Detail = "command not configured"
		case req.File:
			if info, err := os.Stat(cmd); err != nil || info.IsDir() {
				status.Detail = fmt.Sprintf("file %q not found", cmd)
			} else {
				status.Available = true
			}
		default:
			if _, err := exec.LookPath(cmd); err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", cmd)
			} else {
				status.Available = true
			}
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the unavailable required dependencies.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
