// Package logger provides structured, context-aware logging on top of log/slog.
package logger

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Level represents the minimum log level.
type Level slog.Level

const (
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// LoggerInterface is the logging contract consumed by the rest of the application.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) LoggerInterface
}

// Logger implements LoggerInterface using slog with a text handler.
type Logger struct {
	sl *slog.Logger
}

// New creates a Logger writing to w at the given level. The service name is
// attached to every record; extra is an optional set of default attributes.
func New(w io.Writer, level Level, service string, extra []slog.Attr) *Logger {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.Level(level),
	})

	sl := slog.New(handler).With("service", service)
	for _, attr := range extra {
		sl = sl.With(attr)
	}

	return &Logger{sl: sl}
}

// Debug logs at debug level.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelDebug, msg, args...)
}

// Info logs at info level.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelInfo, msg, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelWarn, msg, args...)
}

// Error logs at error level.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.log(ctx, slog.LevelError, msg, args...)
}

// With returns a logger with the given attributes attached to every record.
func (l *Logger) With(args ...any) LoggerInterface {
	return &Logger{sl: l.sl.With(args...)}
}

// log enriches the record with the active trace ID when a span is recording.
func (l *Logger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		args = append(args, "trace_id", span.SpanContext().TraceID().String())
	}
	l.sl.Log(ctx, level, msg, args...)
}
