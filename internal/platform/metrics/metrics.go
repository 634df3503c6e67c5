// Package metrics exposes domain counters in Prometheus format.
// HTTP request metrics stay in the telemetry package on OpenTelemetry; these
// track what the catalog does with those requests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quotes"

// Recorder holds the catalog counters. A nil *Recorder is valid and records nothing.
type Recorder struct {
	likes         *prometheus.CounterVec
	likesReset    prometheus.Counter
	ledgerCleared prometheus.Counter
	cacheLookups  *prometheus.CounterVec
	imported      prometheus.Counter
	quotesWritten *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		likes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "likes_total",
			Help:      "Like attempts by outcome.",
		}, []string{"outcome"}),
		likesReset: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "likes_reset_total",
			Help:      "Number of reset-likes operations.",
		}),
		ledgerCleared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "likes_cleared_total",
			Help:      "Ledger entries removed by reset-likes.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_cache_lookups_total",
			Help:      "Ranking cache lookups by result.",
		}, []string{"result"}),
		imported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "imported_total",
			Help:      "Quotes imported from the upstream provider.",
		}),
		quotesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Admin writes by operation.",
		}, []string{"operation"}),
	}

	collectors := []prometheus.Collector{
		r.likes, r.likesReset, r.ledgerCleared, r.cacheLookups, r.imported, r.quotesWritten,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Like outcomes.
const (
	OutcomeLiked        = "liked"
	OutcomeAlreadyLiked = "already_liked"
	OutcomeNotFound     = "not_found"
	OutcomeError        = "error"
)

// LikeAttempt counts one like by outcome.
func (r *Recorder) LikeAttempt(outcome string) {
	if r == nil {
		return
	}

	r.likes.WithLabelValues(outcome).Inc()
}

// LikesReset counts a reset and the ledger rows it removed.
func (r *Recorder) LikesReset(removed int64) {
	if r == nil {
		return
	}

	r.likesReset.Inc()
	r.ledgerCleared.Add(float64(removed))
}

// CacheLookup counts a ranking cache hit or miss.
func (r *Recorder) CacheLookup(hit bool) {
	if r == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}

	r.cacheLookups.WithLabelValues(result).Inc()
}

// Imported counts quotes stored by an import.
func (r *Recorder) Imported(n int) {
	if r == nil {
		return
	}

	r.imported.Add(float64(n))
}

// QuoteWrite counts an admin create, update or delete.
func (r *Recorder) QuoteWrite(operation string) {
	if r == nil {
		return
	}

	r.quotesWritten.WithLabelValues(operation).Inc()
}
