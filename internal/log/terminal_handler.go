package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiDim    = "\033[2m"
	ansiBold   = "\033[1m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiCyan   = "\033[36m"
)

// componentKey is lifted out of the attribute list and printed before the
// message.
const componentKey = "component"

// terminalHandler writes coloured single-line records:
//
//	15:04:05.000 INF [sync] pipeline finished entity_type=crm.note records=3
type terminalHandler struct {
	writer    io.Writer
	level     slog.Leveler
	component string
	attrs     []slog.Attr
	groups    []string
	mu        *sync.Mutex
}

func newTerminalHandler(w io.Writer, opts *slog.HandlerOptions) *terminalHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &terminalHandler{writer: w, level: level, mu: &sync.Mutex{}}
}

func (h *terminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *terminalHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	buf.Grow(256)

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(ansiDim + ts.Format("15:04:05.000") + ansiReset + " ")

	color, label := levelStyle(r.Level)
	buf.WriteString(color + label + ansiReset + " ")

	component := h.component
	var rest []slog.Attr
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == componentKey && len(h.groups) == 0 {
			component = a.Value.String()
			return true
		}
		rest = append(rest, a)
		return true
	})
	if component != "" {
		buf.WriteString(ansiBlue + "[" + component + "]" + ansiReset + " ")
	}

	buf.WriteString(ansiBold + r.Message + ansiReset)

	for _, a := range h.attrs {
		appendAttr(&buf, a, nil)
	}
	for _, a := range rest {
		appendAttr(&buf, a, h.groups)
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *terminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(next.attrs, h.attrs)
	for _, a := range attrs {
		if a.Key == componentKey && len(h.groups) == 0 {
			next.component = a.Value.String()
			continue
		}
		if len(h.groups) > 0 {
			a = slog.Attr{Key: strings.Join(h.groups, "."), Value: slog.GroupValue(a)}
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *terminalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

func levelStyle(level slog.Level) (string, string) {
	switch {
	case level < slog.LevelInfo:
		return ansiCyan, "DBG"
	case level < slog.LevelWarn:
		return ansiGreen, "INF"
	case level < slog.LevelError:
		return ansiYellow, "WRN"
	default:
		return ansiRed, "ERR"
	}
}

func appendAttr(buf *bytes.Buffer, a slog.Attr, groups []string) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	if a.Value.Kind() == slog.KindGroup {
		prefix := groups
		if a.Key != "" {
			prefix = append(append([]string(nil), groups...), a.Key)
		}
		for _, ga := range a.Value.Group() {
			appendAttr(buf, ga, prefix)
		}
		return
	}

	buf.WriteString(" " + ansiDim)
	for _, g := range groups {
		buf.WriteString(g + ".")
	}
	buf.WriteString(a.Key + "=" + ansiReset)
	buf.WriteString(formatAttrValue(a.Value))
}

func formatAttrValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\n\"\\=") {
			return fmt.Sprintf("%q", s)
		}
		return s
	case slog.KindDuration:
		return v.Duration().Round(time.Microsecond).String()
	default:
		if err, ok := v.Any().(error); ok {
			return fmt.Sprintf("%q", err.Error())
		}
		return v.String()
	}
}
