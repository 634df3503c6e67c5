// Package clients provides the instrumented HTTP client used to reach
// upstream providers. Failures here are infrastructure errors; adapters in
// the acl package translate them into domain errors.
package clients

import "errors"

var (
	// ErrCircuitOpen means the breaker rejected the request without sending it.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last attempt's error once every retry
	// has been spent.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// errServerStatus marks a 5xx response as a retryable attempt failure.
	errServerStatus = errors.New("server error")
)
