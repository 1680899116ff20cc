package forum

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zetareticula/forumsync/internal/cache"
)

const (
	fetchOK         = "ok"
	fetchFailed     = "error"
	fetchSuperseded = "superseded"
)

// ClientMetrics tracks remote reads and refresher state. A nil *ClientMetrics
// records nothing.
type ClientMetrics struct {
	fetches        *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	refreshPending prometheus.Gauge
	entries        *prometheus.GaugeVec
}

// NewClientMetrics initializes metrics and registers them on reg when reg is
// not nil.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forumsync", Subsystem: "client",
			Name: "fetches_total",
			Help: "Remote reads by entity kind and outcome",
		}, []string{"kind", "result"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "forumsync", Subsystem: "client",
			Name:    "fetch_duration_seconds",
			Help:    "Remote read latency",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16),
		}, []string{"kind"}),
		refreshPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forumsync", Subsystem: "client",
			Name: "refresh_pending",
			Help: "Keys scheduled for refetch",
		}),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "forumsync", Subsystem: "client",
			Name: "cache_entries",
			Help: "Cached keys by status, sampled by the statistics collector",
		}, []string{"status"}),
	}
	if reg != nil {
		reg.MustRegister(m.fetches, m.fetchLatency, m.refreshPending, m.entries)
	}
	return m
}

func (m *ClientMetrics) fetch(kind string) func(result string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	return func(result string) {
		m.fetchLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		m.fetches.WithLabelValues(kind, result).Inc()
	}
}

func (m *ClientMetrics) pending(n int) {
	if m != nil {
		m.refreshPending.Set(float64(n))
	}
}

func (m *ClientMetrics) sample(counts map[cache.Status]int) {
	if m == nil {
		return
	}
	for _, s := range []cache.Status{cache.StatusEmpty, cache.StatusFetching, cache.StatusFresh, cache.StatusStale, cache.StatusError} {
		m.entries.WithLabelValues(s.String()).Set(float64(counts[s]))
	}
}
