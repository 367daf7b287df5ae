package segcore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/segcore/model"
	"github.com/hupe1980/segcore/schema"
)

// Logger wraps slog.Logger with segment-specific helpers.
// Field names are kept consistent across load, drop, search and delete paths.
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
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000),
	}))
}

// WithSegment tags every record with a segment id.
func (l *Logger) WithSegment(id model.SegmentID) *Logger {
	return &Logger{Logger: l.Logger.With("segment", int64(id))}
}

// LogLoad logs a field data, index or delta load.
func (l *Logger) LogLoad(ctx context.Context, what string, field schema.FieldID, rows int64, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "load failed",
			"what", what,
			"field", int64(field),
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "load completed",
		"what", what,
		"field", int64(field),
		"rows", rows,
		"took", took,
	)
}

// LogDrop logs the release of field data or an index.
func (l *Logger) LogDrop(ctx context.Context, what string, field schema.FieldID, err error) {
	if err != nil {
		l.ErrorContext(ctx, "drop failed",
			"what", what,
			"field", int64(field),
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "drop completed",
		"what", what,
		"field", int64(field),
	)
}

// LogSearch logs a vector search.
func (l *Logger) LogSearch(ctx context.Context, field schema.FieldID, k, queries int, path string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"field", int64(field),
			"k", k,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "search completed",
		"field", int64(field),
		"k", k,
		"queries", queries,
		"path", path,
	)
}

// LogDelete logs a batch of tombstones.
func (l *Logger) LogDelete(ctx context.Context, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"count", count,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "delete completed",
		"count", count,
	)
}
