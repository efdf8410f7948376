// Package log configures slog for syncd and carries correlation and sync run
// ids through contexts.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/unifiedsync/syncd/internal/config"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys read by the handler returned from New.
const (
	CorrelationIDKey ContextKey = "correlation_id"
	SyncRunIDKey     ContextKey = "sync_run_id"
)

// New builds a logger from configuration writing to stdout.
func New(cfg config.AppConfig) *slog.Logger {
	return NewWithWriter(os.Stdout, cfg.LogFormat(), cfg.LogLevel())
}

// NewWithWriter builds a logger writing to w.
func NewWithWriter(w io.Writer, format config.LogFormat, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var base slog.Handler
	switch format {
	case config.LogFormatJSON:
		base = slog.NewJSONHandler(w, opts)
	default:
		base = newTerminalHandler(w, opts)
	}
	return slog.New(contextHandler{Handler: base})
}

// Configure builds a logger and installs it as the slog default.
func Configure(cfg config.AppConfig) *slog.Logger {
	l := New(cfg)
	slog.SetDefault(l)
	return l
}

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// contextHandler adds the ids stored in the record's context as attributes.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id := CorrelationID(ctx); id != "" {
			r.AddAttrs(slog.String(string(CorrelationIDKey), id))
		}
		if id := SyncRunID(ctx); id != "" {
			r.AddAttrs(slog.String(string(SyncRunIDKey), id))
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{Handler: h.Handler.WithGroup(name)}
}

// WithCorrelationID adds a correlation ID to the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// CorrelationID extracts the correlation ID from context.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(CorrelationIDKey).(string)
	return id
}

// WithSyncRunID adds a sync run ID to the context.
func WithSyncRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SyncRunIDKey, id)
}

// SyncRunID extracts the sync run ID from context.
func SyncRunID(ctx context.Context) string {
	id, _ := ctx.Value(SyncRunIDKey).(string)
	return id
}

// StartSyncRun tags ctx with a fresh sync run id unless it already has one.
func StartSyncRun(ctx context.Context) (context.Context, string) {
	if id := SyncRunID(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithSyncRunID(ctx, id), id
}
