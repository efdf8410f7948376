package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func plain(s string) string {
	for _, code := range []string{ansiReset, ansiDim, ansiBold, ansiRed, ansiGreen, ansiYellow, ansiBlue, ansiCyan} {
		s = strings.ReplaceAll(s, code, "")
	}
	return s
}

func TestTerminalHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	ts := time.Date(2026, 1, 15, 10, 30, 45, 123000000, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "pipeline finished", 0)
	r.AddAttrs(slog.String("entity_type", "crm.note"), slog.Int("records", 3))
	require.NoError(t, h.Handle(context.Background(), r))

	assert.Equal(t, "10:30:45.123 INF pipeline finished entity_type=crm.note records=3\n", plain(buf.String()))
}

func TestTerminalHandler_Levels(t *testing.T) {
	tests := map[slog.Level]string{
		slog.LevelDebug: "DBG",
		slog.LevelInfo:  "INF",
		slog.LevelWarn:  "WRN",
		slog.LevelError: "ERR",
	}
	for level, label := range tests {
		var buf bytes.Buffer
		logger := slog.New(newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
		logger.Log(context.Background(), level, "msg")
		assert.Contains(t, plain(buf.String()), " "+label+" ")
	}
}

func TestTerminalHandler_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	h := newTerminalHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))

	def := newTerminalHandler(&buf, nil)
	assert.True(t, def.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, def.Enabled(context.Background(), slog.LevelDebug))
}

func TestTerminalHandler_ComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTerminalHandler(&buf, nil)).With("component", "scheduler", "job", "crm-sync-notes")
	logger.Info("tick")

	out := plain(buf.String())
	assert.Contains(t, out, "INF [scheduler] tick job=crm-sync-notes")
	assert.NotContains(t, out, "component=")

	buf.Reset()
	slog.New(newTerminalHandler(&buf, nil)).Info("direct", "component", "worker")
	assert.Contains(t, plain(buf.String()), "[worker] direct")
}

func TestTerminalHandler_Groups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTerminalHandler(&buf, nil)).WithGroup("adapter").With("provider", "hubspot")
	logger.Info("fetched", "status", 200)

	out := plain(buf.String())
	assert.Contains(t, out, "adapter.provider=hubspot")
	assert.Contains(t, out, "adapter.status=200")

	buf.Reset()
	slog.New(newTerminalHandler(&buf, nil)).WithGroup("").Info("m", slog.Group("conn", "id", "c1"))
	assert.Contains(t, plain(buf.String()), "conn.id=c1")
}

func TestTerminalHandler_QuotesValues(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newTerminalHandler(&buf, nil))
	logger.Info("m", "msg", "hello world", "empty", "", "error", errors.New("no connection"))

	out := plain(buf.String())
	assert.Contains(t, out, `msg="hello world"`)
	assert.Contains(t, out, `empty=""`)
	assert.Contains(t, out, `error="no connection"`)
}
