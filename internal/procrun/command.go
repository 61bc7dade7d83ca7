package procrun

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Command describes one external tool invocation.
type Command struct {
	Binary string
	Args   []string
	Dir    string
	// Stage names the pipeline stage for error and log context.
	Stage string
	// Marker classifies a non-zero exit; services.ErrExternalTool when nil.
	Marker error
	// Label is the spinner description; defaults to the binary name.
	Label string
}

// Name returns the base name of the binary.
func (c Command) Name() string {
	return filepath.Base(c.Binary)
}

// Argv returns the binary followed by its arguments.
func (c Command) Argv() []string {
	return append([]string{c.Binary}, c.Args...)
}

// String renders the command the way an operator would type it.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, part := range c.Argv() {
		if part == "" || strings.ContainsAny(part, " \t\"'$") {
			part = strconv.Quote(part)
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " ")
}

func (c Command) label() string {
	if strings.TrimSpace(c.Label) != "" {
		return c.Label
	}
	return c.Name()
}
