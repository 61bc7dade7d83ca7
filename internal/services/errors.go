package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSourceProbe         = errors.New("source probe failed")
	ErrContainerCreation   = errors.New("container creation failed")
	ErrSubtitleExtraction  = errors.New("subtitle extraction failed")
	ErrOutputExists        = errors.New("output already exists")
	ErrResolutionMismatch  = errors.New("eye resolution mismatch")
	ErrMergeFailure        = errors.New("stereo merge failed")
	ErrExternalTool        = errors.New("external tool error")
	ErrValidation          = errors.New("validation error")
	ErrConfiguration       = errors.New("configuration error")
	ErrCanceled            = errors.New("canceled")
	errUnclassifiedFailure = errors.New("pipeline failure")
)

// ErrRipDiagnostic marks a rip that finished but reported a known-fatal
// diagnostic. It matches ErrContainerCreation too; only this case can be
// resumed by ignoring rip errors.
var ErrRipDiagnostic = fmt.Errorf("%w: makemkv diagnostic", ErrContainerCreation)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = errUnclassifiedFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// ToolError records an external command that failed along with the diagnostic
// text it produced.
type ToolError struct {
	Marker  error
	Stage   string
	Command []string
	Output  string
	Err     error
}

// NewToolError tags a failed command invocation with marker.
func NewToolError(marker error, stage string, command []string, output string, err error) *ToolError {
	if marker == nil {
		marker = ErrExternalTool
	}
	return &ToolError{
		Marker:  marker,
		Stage:   stage,
		Command: append([]string(nil), command...),
		Output:  strings.TrimSpace(output),
		Err:     err,
	}
}

func (e *ToolError) Error() string {
	var b strings.Builder
	b.WriteString(e.Marker.Error())
	if e.Stage != "" {
		b.WriteString(": ")
		b.WriteString(e.Stage)
	}
	if len(e.Command) > 0 {
		b.WriteString(": ")
		b.WriteString(e.Command[0])
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.Output != "" {
		b.WriteString("\n")
		b.WriteString(e.Output)
	}
	return b.String()
}

// Unwrap exposes both the marker and the underlying error to errors.Is/As.
func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// CommandLine renders the failed command for display.
func (e *ToolError) CommandLine() string {
	return strings.Join(e.Command, " ")
}

// Recoverable reports whether the operator can resume after err by changing an
// option, as opposed to errors that end the work item.
func Recoverable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrCanceled):
		return false
	case errors.Is(err, ErrRipDiagnostic), errors.Is(err, ErrSubtitleExtraction), errors.Is(err, ErrOutputExists):
		return true
	default:
		return false
	}
}

// Kind returns a short stable name for the most specific marker err carries.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrSourceProbe):
		return "source_probe"
	case errors.Is(err, ErrContainerCreation):
		return "container_creation"
	case errors.Is(err, ErrSubtitleExtraction):
		return "subtitle_extraction"
	case errors.Is(err, ErrOutputExists):
		return "output_exists"
	case errors.Is(err, ErrResolutionMismatch):
		return "resolution_mismatch"
	case errors.Is(err, ErrMergeFailure):
		return "merge_failure"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "unknown"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
