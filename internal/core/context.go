package core

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	ctxKeyLogger contextKey = "ingest_logger"
	ctxKeyCaller contextKey = "ingest_caller"
)

// ContextWithLogger attaches a request-scoped logger that a pass started with ctx
// uses instead of the Ingestor's own logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, logger)
}

// ContextWithCaller records who started a pass (client IP or "cli").
func ContextWithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, ctxKeyCaller, caller)
}

// loggerFromContext returns the logger attached to ctx, or fallback.
func loggerFromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(ctxKeyLogger).(*slog.Logger); ok && l != nil {
		return l
	}
	return fallback
}

// CallerFromContext extracts the caller recorded by ContextWithCaller.
func CallerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyCaller).(string); ok {
		return v
	}
	return ""
}
