package logging

import (
	"context"
	"log/slog"
)

// Attribute keys shared by the request-scoped loggers.
const (
	KeyRequestID     = "request_id"
	KeyCorrelationID = "correlation_id"
	KeyVisitor       = "visitor"
)

type ctxKey struct{}

// FromContext returns the logger stored in ctx, or slog.Default() when there
// is none. A nil ctx is allowed.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
			return logger
		}
	}

	return slog.Default()
}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// With enriches the context logger with args and stores the result.
func With(ctx context.Context, args ...any) context.Context {
	return WithContext(ctx, FromContext(ctx).With(args...))
}

// WithRequestID tags the context logger with the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return With(ctx, slog.String(KeyRequestID, requestID))
}

// WithCorrelationID tags the context logger with the correlation ID.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return With(ctx, slog.String(KeyCorrelationID, correlationID))
}

// WithVisitor tags the context logger with the resolved visitor.
func WithVisitor(ctx context.Context, visitorID string) context.Context {
	return With(ctx, slog.String(KeyVisitor, visitorID))
}
