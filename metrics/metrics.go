// Package metrics exposes prometheus collectors for mock resolution.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution outcomes
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics records how requests were resolved. A nil *Metrics records nothing.
type Metrics struct {
	resolutions *prometheus.CounterVec
	duration    prometheus.Histogram
	candidates  prometheus.Histogram
}

// New registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "filegnock",
			Name:      "resolutions_total",
			Help:      "Requests resolved against the mock files, by outcome",
		}, []string{"outcome"}),

		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "filegnock",
			Name:      "resolution_duration_seconds",
			Help:      "Time spent finding and evaluating a mock file",
			Buckets:   prometheus.DefBuckets,
		}),

		candidates: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "filegnock",
			Name:      "candidates",
			Help:      "Candidate files generated per request",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

// Observe records one resolution
func (m *Metrics) Observe(outcome string, candidates int, took time.Duration) {
	if m == nil {
		return
	}

	m.resolutions.WithLabelValues(outcome).Inc()
	m.duration.Observe(took.Seconds())
	m.candidates.Observe(float64(candidates))
}
