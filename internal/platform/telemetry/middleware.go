package telemetry

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jsamuelsen/quotes-service/telemetry"

// HeaderTraceID echoes the active trace to the caller.
const HeaderTraceID = "X-Trace-ID"

// probePrefix marks the liveness, readiness and metrics routes.
const probePrefix = "/-/"

// Tracing starts a server span per request. Probe routes are not traced.
func Tracing(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
		return !strings.HasPrefix(r.URL.Path, probePrefix)
	}))
}

type serverInstruments struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
	active   metric.Int64UpDownCounter
}

func newServerInstruments(meter metric.Meter) (*serverInstruments, error) {
	var (
		in  serverInstruments
		err error
	)

	if in.duration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if in.total, err = meter.Int64Counter("http.server.request.total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, err
	}

	if in.active, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Number of in-flight HTTP requests"),
	); err != nil {
		return nil, err
	}

	return &in, nil
}

// Metrics records OTel request metrics and sets X-Trace-ID. Register it after
// Tracing so the span already exists.
func Metrics() gin.HandlerFunc {
	in, err := newServerInstruments(otel.Meter(instrumentationName))
	if err != nil {
		otel.Handle(err)
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			c.Header(HeaderTraceID, sc.TraceID().String())
		}

		if in == nil {
			c.Next()
			return
		}

		route := attribute.String("http.route", c.FullPath())
		method := attribute.String("http.method", c.Request.Method)

		in.active.Add(ctx, 1, metric.WithAttributes(method, route))
		defer in.active.Add(ctx, -1, metric.WithAttributes(method, route))

		start := time.Now()

		c.Next()

		done := metric.WithAttributes(method, route, attribute.Int("http.status_code", c.Writer.Status()))
		in.duration.Record(ctx, time.Since(start).Seconds(), done)
		in.total.Add(ctx, 1, done)
	}
}
