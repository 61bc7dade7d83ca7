package main

import (
	"strings"

	"github.com/fatih/color"

	"spatialrip/internal/history"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	infoColor = color.New(color.FgBlue)
)

// statusBadge renders status in upper case, coloured when color output is
// enabled. fatih/color disables itself when stdout is not a terminal.
func statusBadge(status history.Status) string {
	label := strings.ToUpper(string(status))
	if label == "" {
		label = "UNKNOWN"
	}
	switch status {
	case history.StatusCompleted:
		return okColor.Sprint(label)
	case history.StatusSkipped, history.StatusInterrupted:
		return warnColor.Sprint(label)
	case history.StatusFailed:
		return errColor.Sprint(label)
	default:
		return infoColor.Sprint(label)
	}
}

func availability(ok, optional bool) string {
	switch {
	case ok:
		return okColor.Sprint("OK")
	case optional:
		return warnColor.Sprint("MISSING (optional)")
	default:
		return errColor.Sprint("MISSING")
	}
}
