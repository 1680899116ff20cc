package mutation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zetareticula/forumsync/internal/invalidation"
)

const (
	resultCommitted  = "committed"
	resultRolledBack = "rolled_back"
	resultRejected   = "rejected"
	resultPartial    = "partial"
)

// Metrics tracks mutation outcomes. A nil *Metrics records nothing.
type Metrics struct {
	results  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

// NewMetrics creates the mutation metrics and registers them on reg when reg
// is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forumsync", Subsystem: "mutation",
			Name: "results_total",
			Help: "Mutations by kind and outcome",
		}, []string{"kind", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "forumsync", Subsystem: "mutation",
			Name:    "duration_seconds",
			Help:    "Time from optimistic apply to commit or rollback",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
		}, []string{"kind"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forumsync", Subsystem: "mutation",
			Name: "in_flight",
			Help: "Mutations awaiting their remote write",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.results, m.latency, m.inFlight)
	}
	return m
}

func (m *Metrics) start(kind invalidation.Kind) func(result string) {
	if m == nil {
		return func(string) {}
	}
	begin := time.Now()
	m.inFlight.Inc()
	return func(result string) {
		m.inFlight.Dec()
		m.latency.WithLabelValues(string(kind)).Observe(time.Since(begin).Seconds())
		m.results.WithLabelValues(string(kind), result).Inc()
	}
}
