package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotes-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/quotes-service/internal/platform/config"
	"github.com/jsamuelsen/quotes-service/internal/platform/logging"
)

const instrumentationName = "github.com/jsamuelsen/quotes-service/internal/adapters/clients"

// Fallbacks for zero config values.
const (
	defaultTimeout = 30 * time.Second

	transportMaxIdleConns        = 100
	transportMaxIdleConnsPerHost = 10
	transportIdleConnTimeout     = 90 * time.Second
)

// Config configures a Client.
type Config struct {
	// BaseURL prefixes every request path, e.g. "https://api.quotable.io".
	BaseURL string

	// ServiceName identifies the upstream in logs, spans and metrics. Required.
	ServiceName string

	// Timeout bounds a single attempt. Retries and backoff come on top.
	Timeout time.Duration

	Retry     config.RetryConfig
	Circuit   config.CircuitBreakerConfig
	Transport config.TransportConfig

	// AuthFunc, if set, decorates every attempt, so refreshed credentials
	// are picked up on retry.
	AuthFunc func(*http.Request)

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client is an HTTP client for one upstream. Each call is guarded by a
// circuit breaker, retried with exponential backoff, traced and counted.
type Client struct {
	http        *http.Client
	baseURL     string
	serviceName string
	retry       config.RetryConfig
	authFunc    func(*http.Request)
	logger      *slog.Logger
	breaker     *Breaker

	tracer   trace.Tracer
	duration metric.Float64Histogram
	requests metric.Int64Counter
}

// New builds a Client. ServiceName is required.
func New(cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}

	if cfg.ServiceName == "" {
		return nil, errors.New("service name is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With(
		slog.String("component", "clients.Client"),
		slog.String("downstream", cfg.ServiceName),
	)

	meter := otel.Meter(instrumentationName)

	duration, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("Duration of HTTP client requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration metric: %w", err)
	}

	requests, err := meter.Int64Counter(
		"http.client.request.total",
		metric.WithDescription("Total number of HTTP client requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request counter: %w", err)
	}

	breaker := NewBreaker(cfg.Circuit, func(from, to State) {
		logger.Warn("circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: newTransport(cfg.Transport),
		},
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		serviceName: cfg.ServiceName,
		retry:       cfg.Retry,
		authFunc:    cfg.AuthFunc,
		logger:      logger,
		breaker:     breaker,
		tracer:      otel.Tracer(instrumentationName),
		duration:    duration,
		requests:    requests,
	}, nil
}

func newTransport(cfg config.TransportConfig) *http.Transport {
	t := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        transportMaxIdleConns,
		MaxIdleConnsPerHost: transportMaxIdleConnsPerHost,
		IdleConnTimeout:     transportIdleConnTimeout,
	}

	if cfg.MaxIdleConns > 0 {
		t.MaxIdleConns = cfg.MaxIdleConns
	}

	if cfg.MaxIdleConnsPerHost > 0 {
		t.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}

	if cfg.IdleConnTimeout > 0 {
		t.IdleConnTimeout = cfg.IdleConnTimeout
	}

	return t
}

// Get issues a GET for path with an optional query string.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	target := c.buildURL(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	return c.Do(ctx, req)
}

// Do sends req through the breaker and retry loop. Responses below 500 are
// returned as-is, including 4xx; the caller owns the body.
//
// Retries replay req unchanged, so a request with a body must set GetBody.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := time.Now()
	logger := logging.FromContext(ctx).With(
		slog.String("downstream", c.serviceName),
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
	)

	if err := c.breaker.Allow(); err != nil {
		c.observe(ctx, req.Method, 0, start, "circuit_open")
		logger.Warn("request blocked by circuit breaker")

		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("HTTP %s %s", req.Method, c.serviceName),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.String("peer.service", c.serviceName),
		),
	)
	defer span.End()

	propagateIDs(ctx, req)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	attempts := 0
	resp, err := backoff.Retry(ctx, func() (*http.Response, error) {
		attempts++
		return c.attempt(ctx, req)
	}, c.retryOptions(logger)...)

	span.SetAttributes(attribute.Int("http.attempts", attempts))

	if err != nil {
		return nil, c.fail(ctx, req, err, attempts, span, logger, start)
	}

	c.breaker.Success()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	c.observe(ctx, req.Method, resp.StatusCode, start, fmt.Sprintf("%dxx", resp.StatusCode/100))
	logger.Debug("request completed",
		slog.Int("status", resp.StatusCode),
		slog.Int("attempts", attempts),
		slog.Duration("duration", time.Since(start)),
	)

	return resp, nil
}

// attempt performs one round trip. Errors that cannot succeed on replay are
// marked permanent so the retry loop stops.
func (c *Client) attempt(ctx context.Context, req *http.Request) (*http.Response, error) {
	if c.authFunc != nil {
		c.authFunc(req)
	}

	resp, err := c.http.Do(req.WithContext(ctx))
	if err != nil {
		if isRetryable(err) {
			return nil, err
		}

		return nil, backoff.Permanent(err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		return nil, fmt.Errorf("%w: %d", errServerStatus, resp.StatusCode)
	}

	return resp, nil
}

func (c *Client) retryOptions(logger *slog.Logger) []backoff.RetryOption {
	policy := backoff.NewExponentialBackOff()
	policy.RandomizationFactor = c.retry.JitterFactor

	if c.retry.InitialInterval > 0 {
		policy.InitialInterval = c.retry.InitialInterval
	}

	if c.retry.MaxInterval > 0 {
		policy.MaxInterval = c.retry.MaxInterval
	}

	if c.retry.Multiplier >= 1 {
		policy.Multiplier = c.retry.Multiplier
	}

	tries := uint(1)
	if c.retry.MaxAttempts > 1 {
		tries = uint(c.retry.MaxAttempts)
	}

	return []backoff.RetryOption{
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			logger.Debug("retrying request",
				slog.Duration("backoff", wait),
				slog.Any("error", err),
			)
		}),
	}
}

// fail settles the breaker and telemetry for a request that produced no
// usable response. A caller that gave up does not count against the upstream.
func (c *Client) fail(
	ctx context.Context,
	req *http.Request,
	err error,
	attempts int,
	span trace.Span,
	logger *slog.Logger,
	start time.Time,
) error {
	if ctx.Err() != nil {
		c.breaker.Release()
		c.observe(ctx, req.Method, 0, start, "context_canceled")
		span.SetStatus(codes.Error, ctx.Err().Error())

		return fmt.Errorf("%s request abandoned: %w", c.serviceName, err)
	}

	c.breaker.Failure()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.observe(ctx, req.Method, 0, start, "error")
	logger.Error("request failed",
		slog.Int("attempts", attempts),
		slog.Duration("duration", time.Since(start)),
		slog.Any("error", err),
	)

	return fmt.Errorf("%w after %d attempt(s): %w", ErrMaxRetriesExceeded, attempts, err)
}

// CircuitState reports the breaker position.
func (c *Client) CircuitState() State {
	return c.breaker.State()
}

// propagateIDs forwards the inbound request and correlation IDs.
func propagateIDs(ctx context.Context, req *http.Request) {
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderRequestID, id)
	}

	if id := middleware.CorrelationIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderCorrelationID, id)
	}
}

func (c *Client) buildURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

func (c *Client) observe(ctx context.Context, method string, status int, start time.Time, result string) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("peer.service", c.serviceName),
		attribute.String("result", result),
	}

	if status > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", status))
	}

	opt := metric.WithAttributes(attrs...)
	c.duration.Record(ctx, time.Since(start).Seconds(), opt)
	c.requests.Add(ctx, 1, opt)
}

// isRetryable accepts network timeouts and connection-level failures. The
// caller's own cancellation is final.
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr)
}
