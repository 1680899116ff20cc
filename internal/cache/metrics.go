package cache

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts store activity. A nil *Metrics records nothing.
type Metrics struct {
	hits          prometheus.Counter
	misses        prometheus.Counter
	superseded    prometheus.Counter
	invalidations prometheus.Counter
	restores      prometheus.Counter
}

// NewMetrics creates the store metrics and registers them on reg when reg is
// not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forumsync", Subsystem: "cache",
			Name: "hits_total",
			Help: "Reads answered from a fresh entry",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forumsync", Subsystem: "cache",
			Name: "misses_total",
			Help: "Reads of empty, stale or failed entries",
		}),
		superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forumsync", Subsystem: "cache",
			Name: "superseded_fetches_total",
			Help: "Fetch results discarded because a newer fetch was started",
		}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forumsync", Subsystem: "cache",
			Name: "invalidations_total",
			Help: "Entries moved from fresh to stale",
		}),
		restores: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "forumsync", Subsystem: "cache",
			Name: "restores_total",
			Help: "Snapshots written back after a failed mutation",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.superseded, m.invalidations, m.restores)
	}
	return m
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) supersede() {
	if m != nil {
		m.superseded.Inc()
	}
}

func (m *Metrics) invalidate() {
	if m != nil {
		m.invalidations.Inc()
	}
}

func (m *Metrics) restore() {
	if m != nil {
		m.restores.Inc()
	}
}
