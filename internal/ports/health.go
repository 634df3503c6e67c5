package ports

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// ErrDuplicateChecker is returned by Register for a name already in use.
var ErrDuplicateChecker = errors.New("duplicate health checker")

// HealthChecker is a dependency that can report its health. The Postgres
// pool, the Redis ranking cache and the upstream quote provider implement it.
type HealthChecker interface {
	// Name identifies the check in responses. It must be unique.
	Name() string

	// Check returns nil when healthy. It must honour ctx.
	Check(ctx context.Context) error
}

// OptionalChecker marks a dependency whose failure degrades the service
// without making it unready. The ranking cache is optional because every
// read falls through to Postgres.
type OptionalChecker interface {
	HealthChecker
	Optional() bool
}

// HealthRegistry collects checkers at startup and runs them on demand.
type HealthRegistry interface {
	Register(checker HealthChecker) error

	// CheckAll runs every check concurrently under ctx.
	CheckAll(ctx context.Context) *HealthResult
}

// HealthStatus is the outcome of one check or of the whole registry.
type HealthStatus string

// Statuses, from best to worst.
const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

var severity = []HealthStatus{HealthStatusHealthy, HealthStatusDegraded, HealthStatusUnhealthy}

// Ready reports whether the status allows serving traffic.
func (s HealthStatus) Ready() bool {
	return s != HealthStatusUnhealthy
}

func (s HealthStatus) worse(other HealthStatus) HealthStatus {
	if slices.Index(severity, other) > slices.Index(severity, s) {
		return other
	}

	return s
}

// HealthResult is the registry-wide report.
type HealthResult struct {
	Status    HealthStatus            `json:"status"`
	Checks    map[string]*CheckResult `json:"checks"`
	Timestamp time.Time               `json:"timestamp"`
}

// CheckResult is the report of a single checker. Message holds the error
// text on failure.
type CheckResult struct {
	Status   HealthStatus  `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
}

// DefaultHealthRegistry is the in-process HealthRegistry. It is safe for
// concurrent use.
type DefaultHealthRegistry struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
}

// NewHealthRegistry returns an empty registry.
func NewHealthRegistry() *DefaultHealthRegistry {
	return &DefaultHealthRegistry{checkers: make(map[string]HealthChecker)}
}

// Register adds checker. Names must be unique.
func (r *DefaultHealthRegistry) Register(checker HealthChecker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := checker.Name()
	if _, exists := r.checkers[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateChecker, name)
	}

	r.checkers[name] = checker

	return nil
}

// CheckAll runs all checks concurrently and folds them into one status: a
// failing required check makes the result unhealthy, a failing optional one
// degraded.
func (r *DefaultHealthRegistry) CheckAll(ctx context.Context) *HealthResult {
	r.mu.RLock()
	checkers := make(map[string]HealthChecker, len(r.checkers))
	for name, c := range r.checkers {
		checkers[name] = c
	}
	r.mu.RUnlock()

	results := make(map[string]*CheckResult, len(checkers))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for name, c := range checkers {
		wg.Go(func() {
			res := run(ctx, c)

			mu.Lock()
			results[name] = res
			mu.Unlock()
		})
	}

	wg.Wait()

	overall := HealthStatusHealthy
	for _, res := range results {
		overall = overall.worse(res.Status)
	}

	return &HealthResult{Status: overall, Checks: results, Timestamp: time.Now()}
}

func run(ctx context.Context, c HealthChecker) *CheckResult {
	start := time.Now()
	err := c.Check(ctx)
	res := &CheckResult{Status: HealthStatusHealthy, Duration: time.Since(start)}

	if err != nil {
		res.Status = HealthStatusUnhealthy
		if o, ok := c.(OptionalChecker); ok && o.Optional() {
			res.Status = HealthStatusDegraded
		}

		res.Message = err.Error()
	}

	return res
}
