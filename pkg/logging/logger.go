package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "requestID"

// LevelTrace sits below DEBUG and is used for per-tick simulation output.
const LevelTrace = slog.LevelDebug - 4

var (
	logger *slog.Logger
	out    io.Writer = os.Stderr
)

func init() {
	// Compact handler for readable console output. stderr keeps stdout free
	// for CLI reports.
	logger = slog.New(NewCompactHandler(out, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// SetOutput redirects log output, keeping the compact format.
func SetOutput(w io.Writer, level slog.Level) {
	out = w
	SetLevel(level)
}

// SetLevel changes the logging level
func SetLevel(level slog.Level) {
	logger = slog.New(NewCompactHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
}

// SetJSONOutput switches to JSON format output
func SetJSONOutput(level slog.Level) {
	logger = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
}

// Enabled reports whether records at level are currently logged.
func Enabled(level slog.Level) bool {
	return logger.Enabled(context.Background(), level)
}

// LevelFromVerbosity maps the -v count and --verbosity name onto a level.
// An explicit name wins over the counter.
func LevelFromVerbosity(name string, count int) slog.Level {
	switch name {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	switch {
	case count >= 2:
		return LevelTrace
	case count == 1:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// With returns a logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return logger.With(args...)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func withRequestID(ctx context.Context, args []any) []any {
	requestID := GetRequestID(ctx)
	if requestID != "" {
		return append([]any{"requestID", requestID}, args...)
	}
	return args
}

// Trace logs at TRACE level (very verbose, debug-time only)
func Trace(msg string, args ...any) {
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// TraceContext logs at TRACE level with context
func TraceContext(ctx context.Context, msg string, args ...any) {
	logger.Log(ctx, LevelTrace, msg, withRequestID(ctx, args)...)
}

// Debug logs at DEBUG level (internal component behavior)
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// DebugContext logs at DEBUG level with context
func DebugContext(ctx context.Context, msg string, args ...any) {
	logger.DebugContext(ctx, msg, withRequestID(ctx, args)...)
}

// Info logs at INFO level (user-facing operations)
func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

// InfoContext logs at INFO level with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	logger.InfoContext(ctx, msg, withRequestID(ctx, args)...)
}

// Warn logs at WARN level (data-quality problems, degraded rendering)
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// WarnContext logs at WARN level with context
func WarnContext(ctx context.Context, msg string, args ...any) {
	logger.WarnContext(ctx, msg, withRequestID(ctx, args)...)
}

// Error logs at ERROR level
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}

// ErrorContext logs at ERROR level with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	logger.ErrorContext(ctx, msg, withRequestID(ctx, args)...)
}

// Fatal logs at ERROR level and exits
func Fatal(msg string, args ...any) {
	logger.Error(msg, args...)
	os.Exit(1)
}
