package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slogGormLogger routes GORM output through the default slog logger. SQL is
// logged at debug level with the caller's context, so sync run and
// correlation ids attached to the context appear on every statement.
type slogGormLogger struct{}

// LogMode is a no-op; slog decides what is emitted.
func (l slogGormLogger) LogMode(logger.LogLevel) logger.Interface { return l }

func (l slogGormLogger) Info(ctx context.Context, msg string, args ...any) {
	slog.InfoContext(ctx, fmt.Sprintf(msg, args...))
}

func (l slogGormLogger) Warn(ctx context.Context, msg string, args ...any) {
	slog.WarnContext(ctx, fmt.Sprintf(msg, args...))
}

func (l slogGormLogger) Error(ctx context.Context, msg string, args ...any) {
	slog.ErrorContext(ctx, fmt.Sprintf(msg, args...))
}

const maxSQLLength = 200

// truncateSQL keeps the head and tail of long statements.
func truncateSQL(sql string) string {
	if len(sql) <= maxSQLLength {
		return sql
	}
	half := (maxSQLLength - 3) / 2
	return sql[:half] + "..." + sql[len(sql)-half:]
}

// Trace is called by GORM after every statement. ErrRecordNotFound is the
// normal "no rows" result of Take/First and is logged like a success. Unique
// violations are expected from the task queue and record upserts when two
// writers race, so they are logged at warn level.
func (l slogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		sql, rows := fc()
		level := slog.LevelError
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "gorm query error",
			"sql", truncateSQL(sql),
			"rows", rows,
			"duration", elapsed,
			"error", err,
		)
		return
	}

	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}

	sql, rows := fc()
	slog.DebugContext(ctx, "gorm query",
		"sql", truncateSQL(sql),
		"rows", rows,
		"duration", elapsed,
	)
}
