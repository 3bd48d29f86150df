package logger

import (
	"context"
	"log/slog"
	"time"
)

// ContextKey is the type for context keys read by ContextLogger.
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	OperationKey ContextKey = "operation"

	PlaceIDKey    ContextKey = "place.id"
	SyncRunIDKey  ContextKey = "sync.run_id"
	SyncModeKey   ContextKey = "sync.mode"
	EventIDKey    ContextKey = "change.event_id"
	QueryRouteKey ContextKey = "query.route"
)

// contextKeys is the emission order of context fields.
var contextKeys = []ContextKey{
	RequestIDKey,
	OperationKey,
	PlaceIDKey,
	SyncRunIDKey,
	SyncModeKey,
	EventIDKey,
	QueryRouteKey,
}

// GlobalContext is set by InitWithOTel.
var GlobalContext *ContextLogger

// ContextLogger decorates log entries with values stored in a context.
type ContextLogger struct {
	logger *slog.Logger
}

func NewContextLogger(logger *slog.Logger) *ContextLogger {
	return &ContextLogger{logger: logger}
}

// WithContext returns a logger carrying every known key present in ctx.
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return cl.logger
	}
	args := make([]any, 0, len(contextKeys)*2)
	for _, key := range contextKeys {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			args = append(args, string(key), v)
		}
	}
	if len(args) == 0 {
		return cl.logger
	}
	return cl.logger.With(args...)
}

func (cl *ContextLogger) LogDuration(ctx context.Context, operation string, d time.Duration) {
	cl.WithContext(ctx).Info("operation completed",
		"operation", operation,
		"duration_ms", d.Milliseconds(),
	)
}

func (cl *ContextLogger) LogError(ctx context.Context, operation string, err error) {
	cl.WithContext(ctx).Error("operation failed",
		"operation", operation,
		"error", err,
	)
}

// FromContext is shorthand for GlobalContext.WithContext(ctx).
func FromContext(ctx context.Context) *slog.Logger {
	return GlobalContext.WithContext(ctx)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, OperationKey, op)
}

func WithPlaceID(ctx context.Context, placeID string) context.Context {
	return context.WithValue(ctx, PlaceIDKey, placeID)
}

func WithSyncRun(ctx context.Context, runID, mode string) context.Context {
	ctx = context.WithValue(ctx, SyncRunIDKey, runID)
	return context.WithValue(ctx, SyncModeKey, mode)
}

func WithEventID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, EventIDKey, id)
}

func WithQueryRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, QueryRouteKey, route)
}
