package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

const consoleTimeLayout = "2006-01-02 15:04:05"

// consoleHandler prints one header line per record followed by indented
// key=value fields. Component, item, and stage move into the header.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Leveler
	addSource bool
	palette   *palette
	attrs     []field
	group     string
}

type field struct {
	key   string
	value slog.Value
}

type palette struct {
	debug, info, warn, err, dim *color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		debug: color.New(color.FgHiBlack),
		info:  color.New(color.FgCyan),
		warn:  color.New(color.FgYellow, color.Bold),
		err:   color.New(color.FgRed, color.Bold),
		dim:   color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.debug, p.info, p.warn, p.err, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource, colored bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, addSource: addSource, palette: newPalette(colored)}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	fields := append([]field(nil), h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, h.group, a)
		return true
	})

	var component, item, stage string
	rest := fields[:0]
	for _, f := range dedupe(fields) {
		switch f.key {
		case FieldComponent:
			component = f.value.String()
		case FieldItemID:
			item = f.value.String()
		case FieldStage:
			stage = f.value.String()
		default:
			rest = append(rest, f)
		}
	}

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := strings.TrimSpace(r.Message)
	if msg == "" {
		msg = "(no message)"
	}

	var buf bytes.Buffer
	buf.WriteString(h.palette.dim.Sprint(ts.Local().Format(consoleTimeLayout)))
	buf.WriteByte(' ')
	buf.WriteString(h.levelLabel(r.Level))
	if component != "" {
		fmt.Fprintf(&buf, " [%s]", component)
	}
	if subject := subject(item, stage); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	buf.WriteString(" – ")
	buf.WriteString(msg)
	if h.addSource && r.PC != 0 {
		if src := r.Source(); src != nil && src.File != "" {
			buf.WriteString(h.palette.dim.Sprintf(" (%s:%d)", filepath.Base(src.File), src.Line))
		}
	}
	buf.WriteByte('\n')
	for _, f := range rest {
		fmt.Fprintf(&buf, "    - %s: %s\n", f.key, renderValue(f.value))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]field(nil), h.attrs...)
	for _, a := range attrs {
		clone.attrs = appendAttr(clone.attrs, h.group, a)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = joinKey(h.group, name)
	return &clone
}

func (h *consoleHandler) levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return h.palette.err.Sprint("ERROR")
	case level >= slog.LevelWarn:
		return h.palette.warn.Sprint("WARN")
	case level >= slog.LevelInfo:
		return h.palette.info.Sprint("INFO")
	default:
		return h.palette.debug.Sprint("DEBUG")
	}
}

// subject renders "item (stage)", or whichever half is present.
func subject(item, stage string) string {
	item, stage = strings.TrimSpace(item), strings.TrimSpace(stage)
	switch {
	case item != "" && stage != "":
		return item + " (" + stage + ")"
	case item != "":
		return item
	default:
		return stage
	}
}

func appendAttr(dst []field, group string, a slog.Attr) []field {
	if a.Equal(slog.Attr{}) {
		return dst
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			dst = appendAttr(dst, joinKey(group, a.Key), child)
		}
		return dst
	}
	return append(dst, field{key: joinKey(group, a.Key), value: v})
}

func joinKey(group, key string) string {
	switch {
	case group == "":
		return key
	case key == "":
		return group
	default:
		return group + "." + key
	}
}

// dedupe keeps the first position of each key with the last value written.
func dedupe(fields []field) []field {
	seen := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if f.key == "" {
			continue
		}
		if i, ok := seen[f.key]; ok {
			out[i].value = f.value
			continue
		}
		seen[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func renderValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindString:
		s = v.String()
	case slog.KindTime:
		return v.Time().Local().Format(consoleTimeLayout)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		return v.String()
	}
	if s == "" || strings.ContainsAny(s, "\n\t\"") {
		return strconv.Quote(s)
	}
	return s
}
