package update

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Check outcomes, used as the "outcome" label.
const (
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
	OutcomeEmpty   = "empty"
	OutcomeIgnored = "ignored"
	OutcomeUpdate  = "update"
	OutcomeCurrent = "current"
)

// Metrics counts update checks. A nil *Metrics records nothing.
type Metrics struct {
	checks        *prometheus.CounterVec
	fetchDuration prometheus.Histogram
}

// NewMetrics registers the update metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lastautoindex",
			Subsystem: "update",
			Name:      "checks_total",
			Help:      "Update checks by outcome",
		}, []string{"outcome"}),
		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lastautoindex",
			Subsystem: "update",
			Name:      "feed_fetch_duration_seconds",
			Help:      "Release feed fetch duration in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.checks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
}
