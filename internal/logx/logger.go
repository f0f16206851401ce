// Package logx configures the process-wide structured logger. Only the
// two command-line front-ends call into this package; the core library
// itself never logs (spec.md §7).
package logx

import (
	"context"
	"log/slog"
	"os"
)

type contextKey struct{}

// Setup installs the default slog.Logger for the process, selecting a
// JSON or text handler by format and filtering by level.
func Setup(level, format string) {
	handler := newHandler(format, parseLevel(level))
	slog.SetDefault(slog.New(handler))
}

func newHandler(format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "json":
		return slog.NewJSONHandler(os.Stdout, opts)
	default:
		return slog.NewTextHandler(os.Stdout, opts)
	}
}

// WithRequestID attaches a request id to ctx for FromContext to surface
// on every log line derived from it.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

// FromContext returns the default logger, enriched with the request id
// stashed by WithRequestID if present.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if requestID, ok := ctx.Value(contextKey{}).(string); ok {
		logger = logger.With("request_id", requestID)
	}
	return logger
}

// WithComponent returns the default logger tagged with a component name,
// e.g. "ingest" or "query".
func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
