package controller

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultReady       = "ready"
	resultInvalid     = "invalid"
	resultUnavailable = "unavailable"
	resultDeleted     = "deleted"
)

// Metrics counts reconcile outcomes and managed clients. A nil *Metrics
// records nothing.
type Metrics struct {
	reconciles *prometheus.CounterVec
	clients    prometheus.Gauge
}

// NewMetrics initializes metrics and registers them on reg when reg is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "forumsync", Subsystem: "controller",
			Name: "reconciles_total",
			Help: "ForumSync reconciles by outcome",
		}, []string{"result"}),
		clients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "forumsync", Subsystem: "controller",
			Name: "managed_clients",
			Help: "Sync clients held by the controller",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.reconciles, m.clients)
	}
	return m
}

func (m *Metrics) reconciled(result string) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(result).Inc()
}

func (m *Metrics) managed(n int) {
	if m == nil {
		return
	}
	m.clients.Set(float64(n))
}
