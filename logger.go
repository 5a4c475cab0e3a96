package kvs

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/kvs/layout"
)

// Logger wraps slog.Logger with kvs-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithInstance adds the instance id to the logger.
func (l *Logger) WithInstance(id layout.InstanceID) *Logger {
	return &Logger{
		Logger: l.Logger.With("instance", uint32(id)),
	}
}

// WithKey adds a key field to the logger.
func (l *Logger) WithKey(key string) *Logger {
	return &Logger{
		Logger: l.Logger.With("key", key),
	}
}

// LogOpen logs the outcome of opening a store.
func (l *Logger) LogOpen(ctx context.Context, dir string, overrides, defaults int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"dir", dir,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "store opened",
			"dir", dir,
			"overrides", overrides,
			"defaults", defaults,
		)
	}
}

// LogFlush logs a flush.
func (l *Logger) LogFlush(ctx context.Context, keys, bytes int, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "flush failed",
			"keys", keys,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "flush completed",
			"keys", keys,
			"bytes", bytes,
			"duration", duration,
		)
	}
}

// LogRestore logs a snapshot restore.
func (l *Logger) LogRestore(ctx context.Context, snapshot layout.SnapshotID, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot restore failed",
			"snapshot", uint32(snapshot),
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot restored",
			"snapshot", uint32(snapshot),
		)
	}
}

// LogCorruption logs persisted state that was discarded because it failed
// verification or decoding.
func (l *Logger) LogCorruption(ctx context.Context, path string, err error) {
	l.WarnContext(ctx, "discarding unreadable store state",
		"path", path,
		"error", err,
	)
}
