package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer returns the service tracer. It resolves through the global provider,
// so it is a noop until New installs a real one.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartDBSpan opens a client span for one store operation.
func StartDBSpan(ctx context.Context, operation, table string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "postgres."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.sql.table", table),
		),
	)
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}
