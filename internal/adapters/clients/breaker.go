package clients

import (
	"sync"
	"time"

	"github.com/jsamuelsen/quotes-service/internal/platform/config"
)

// State is the breaker position.
type State int

const (
	// StateClosed lets every request through.
	StateClosed State = iota

	// StateOpen rejects requests until the cool-down passes.
	StateOpen

	// StateHalfOpen admits a bounded number of probe requests.
	StateHalfOpen
)

var stateNames = [...]string{
	StateClosed:   "closed",
	StateOpen:     "open",
	StateHalfOpen: "half-open",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}

	return stateNames[s]
}

// Breaker fallbacks for zero config values.
const (
	defaultBreakerFailures = 5
	defaultBreakerCooldown = 30 * time.Second
	defaultBreakerProbes   = 1
)

// Breaker trips after MaxFailures consecutive failures, waits Timeout, then
// lets up to HalfOpenLimit probes through. That many probe successes close it
// again; any probe failure reopens it.
type Breaker struct {
	maxFailures int
	cooldown    time.Duration
	probeLimit  int
	onChange    func(from, to State)
	now         func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	inFlight  int
	openedAt  time.Time
}

// NewBreaker builds a closed breaker. onChange may be nil; it runs outside
// the breaker lock.
func NewBreaker(cfg config.CircuitBreakerConfig, onChange func(from, to State)) *Breaker {
	b := &Breaker{
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Timeout,
		probeLimit:  cfg.HalfOpenLimit,
		onChange:    onChange,
		now:         time.Now,
	}

	if b.maxFailures <= 0 {
		b.maxFailures = defaultBreakerFailures
	}

	if b.cooldown <= 0 {
		b.cooldown = defaultBreakerCooldown
	}

	if b.probeLimit <= 0 {
		b.probeLimit = defaultBreakerProbes
	}

	return b
}

// Allow reserves a slot for one request or returns ErrCircuitOpen. Every nil
// return must be paired with Success, Failure or Release.
func (b *Breaker) Allow() error {
	b.mu.Lock()

	from := b.state
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		b.set(StateHalfOpen)
	}

	allowed := true

	switch b.state {
	case StateOpen:
		allowed = false
	case StateHalfOpen:
		if b.inFlight >= b.probeLimit {
			allowed = false
		} else {
			b.inFlight++
		}
	}

	to := b.state
	b.mu.Unlock()

	b.notify(from, to)

	if !allowed {
		return ErrCircuitOpen
	}

	return nil
}

// Success records a healthy response.
func (b *Breaker) Success() {
	b.mu.Lock()

	from := b.state

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.inFlight--
		b.successes++

		if b.successes >= b.probeLimit {
			b.set(StateClosed)
		}
	}

	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

// Failure records an upstream failure.
func (b *Breaker) Failure() {
	b.mu.Lock()

	from := b.state

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.maxFailures {
			b.set(StateOpen)
		}
	case StateHalfOpen:
		b.inFlight--
		b.set(StateOpen)
	case StateOpen:
		b.openedAt = b.now()
	}

	to := b.state
	b.mu.Unlock()

	b.notify(from, to)
}

// Release frees a probe slot without judging the upstream. Used when the
// caller gave up before an answer arrived.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen && b.inFlight > 0 {
		b.inFlight--
	}
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// set moves to next and resets the counters that belong to the old state.
// Callers hold mu.
func (b *Breaker) set(next State) {
	b.state = next
	b.failures = 0
	b.successes = 0
	b.inFlight = 0

	if next == StateOpen {
		b.openedAt = b.now()
	}
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.onChange != nil {
		b.onChange(from, to)
	}
}
