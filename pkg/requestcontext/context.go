// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Values are set by middleware (or the batch runner) and consumed by services.
// Keeping this package free of net/http dependencies lets services import only
// what they need.
package requestcontext

import (
	"context"
	"time"

	"enrolld/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	correlationIDKey struct{}
	batchIDKey       struct{}
	requestTimeKey   struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyCorrelationID = correlationIDKey{}
	ContextKeyBatchID       = batchIDKey{}
	ContextKeyRequestTime   = requestTimeKey{}
)

// CorrelationID retrieves the request correlation ID from the context.
// Returns "" if not set.
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyCorrelationID).(string); ok {
		return id
	}
	return ""
}

// WithCorrelationID injects a correlation ID into the context.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationID, id)
}

// BatchID retrieves the migration batch ID from the context, when the request
// belongs to a batch run.
func BatchID(ctx context.Context) domain.BatchID {
	if id, ok := ctx.Value(ContextKeyBatchID).(domain.BatchID); ok {
		return id
	}
	return ""
}

// WithBatchID injects a batch ID into the context.
func WithBatchID(ctx context.Context, id domain.BatchID) context.Context {
	return context.WithValue(ctx, ContextKeyBatchID, id)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests and for batch runs that want a consistent timestamp.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
