package infrastructure

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type runContextKey struct{}

// traceIDKey is the log attribute carrying the run id. Every run uses its
// id as trace id so log lines and spans join on the same value.
const traceIDKey = "trace_id"

// WithTraceID returns ctx carrying id
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runContextKey{}, id)
}

// GetTraceID returns the id stored by WithTraceID, or ""
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runContextKey{}).(string)
	return id
}

// ContextWithRunID starts a run: a fresh UUID becomes the trace id of ctx
func ContextWithRunID(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	return WithTraceID(ctx, id), id
}

// EnsureTraceID gives ctx a run id unless it already has one
func EnsureTraceID(ctx context.Context) context.Context {
	if GetTraceID(ctx) != "" {
		return ctx
	}
	ctx, _ = ContextWithRunID(ctx)
	return ctx
}

// WithComponent tags logger with the pipeline component it serves
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = GetLogger()
	}
	return logger.With("component", component)
}
