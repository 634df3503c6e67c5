// Package middleware provides the gin middleware chain for the quotes API.
package middleware

import (
	"context"

	"github.com/jsamuelsen/quotes-service/internal/domain"
)

// ctxKey is typed per value so lookups cannot collide with foreign keys.
type ctxKey[T any] struct{ name string }

var (
	requestIDKey     = ctxKey[string]{"request_id"}
	correlationIDKey = ctxKey[string]{"correlation_id"}
	visitorKey       = ctxKey[domain.Visitor]{"visitor"}
)

func (k ctxKey[T]) put(ctx context.Context, v T) context.Context {
	return context.WithValue(ctx, k, v)
}

func (k ctxKey[T]) get(ctx context.Context) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}

	v, ok := ctx.Value(k).(T)

	return v, ok
}

// RequestIDFromContext returns the ID stored by RequestID, or "". Client
// adapters forward it downstream.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := requestIDKey.get(ctx)
	return id
}

func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := correlationIDKey.get(ctx)
	return id
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return requestIDKey.put(ctx, id)
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return correlationIDKey.put(ctx, id)
}

func ContextWithVisitor(ctx context.Context, v domain.Visitor) context.Context {
	return visitorKey.put(ctx, v)
}

// VisitorFromContext falls back to the loopback visitor when Visitor did not
// run, which keeps handlers usable in isolation.
func VisitorFromContext(ctx context.Context) domain.Visitor {
	if v, ok := visitorKey.get(ctx); ok {
		return v
	}

	return domain.Visitor{ID: domain.DefaultVisitorID}
}
