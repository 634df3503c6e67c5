package clients

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotes-service/internal/platform/config"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

type transitions struct {
	mu  sync.Mutex
	got []string
}

func (tr *transitions) record(from, to State) {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.got = append(tr.got, from.String()+"->"+to.String())
}

func newTestBreaker(failures, probes int) (*Breaker, *clock, *transitions) {
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	tr := &transitions{}

	b := NewBreaker(config.CircuitBreakerConfig{
		MaxFailures:   failures,
		Timeout:       10 * time.Second,
		HalfOpenLimit: probes,
	}, tr.record)
	b.now = clk.now

	return b, clk, tr
}

func trip(t *testing.T, b *Breaker, n int) {
	t.Helper()

	for range n {
		require.NoError(t, b.Allow())
		b.Failure()
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
	assert.Equal(t, "unknown", State(-1).String())
}

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker(config.CircuitBreakerConfig{}, nil)

	assert.Equal(t, defaultBreakerFailures, b.maxFailures)
	assert.Equal(t, defaultBreakerCooldown, b.cooldown)
	assert.Equal(t, defaultBreakerProbes, b.probeLimit)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _, tr := newTestBreaker(3, 1)

	trip(t, b, 2)
	require.NoError(t, b.Allow())
	b.Success()
	trip(t, b, 2)
	assert.Equal(t, StateClosed, b.State(), "a success resets the streak")

	trip(t, b, 1)

	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)
	assert.Equal(t, []string{"closed->open"}, tr.got)
}

func TestBreaker_HalfOpenProbes(t *testing.T) {
	tests := []struct {
		name      string
		probes    int
		outcomes  []bool
		wantState State
	}{
		{name: "single probe closes", probes: 1, outcomes: []bool{true}, wantState: StateClosed},
		{name: "probe failure reopens", probes: 1, outcomes: []bool{false}, wantState: StateOpen},
		{name: "needs every probe", probes: 2, outcomes: []bool{true}, wantState: StateHalfOpen},
		{name: "two probes close", probes: 2, outcomes: []bool{true, true}, wantState: StateClosed},
		{name: "late failure reopens", probes: 2, outcomes: []bool{true, false}, wantState: StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, clk, _ := newTestBreaker(1, tt.probes)
			trip(t, b, 1)

			clk.advance(10 * time.Second)

			for _, ok := range tt.outcomes {
				require.NoError(t, b.Allow())

				if ok {
					b.Success()
				} else {
					b.Failure()
				}
			}

			assert.Equal(t, tt.wantState, b.State())
		})
	}
}

func TestBreaker_StaysOpenDuringCooldown(t *testing.T) {
	b, clk, _ := newTestBreaker(1, 1)
	trip(t, b, 1)

	clk.advance(9 * time.Second)

	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_LimitsConcurrentProbes(t *testing.T) {
	b, clk, _ := newTestBreaker(1, 2)
	trip(t, b, 1)
	clk.advance(time.Minute)

	require.NoError(t, b.Allow())
	require.NoError(t, b.Allow())
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)

	b.Release()
	require.NoError(t, b.Allow(), "a released slot can be reused")
}

func TestBreaker_ReleaseInClosedStateIsHarmless(t *testing.T) {
	b, _, _ := newTestBreaker(2, 1)

	require.NoError(t, b.Allow())
	b.Release()

	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_Transitions(t *testing.T) {
	b, clk, tr := newTestBreaker(1, 1)

	trip(t, b, 1)
	clk.advance(10 * time.Second)
	require.NoError(t, b.Allow())
	b.Success()

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, tr.got)
}

func TestBreaker_ConcurrentUse(t *testing.T) {
	b := NewBreaker(config.CircuitBreakerConfig{MaxFailures: 1000, Timeout: time.Second, HalfOpenLimit: 1}, nil)

	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if b.Allow() != nil {
				return
			}

			if i%2 == 0 {
				b.Success()
			} else {
				b.Failure()
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, StateClosed, b.State())
}
