package proxy

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the proxy's Prometheus instruments. Register against a
// dedicated registry so tests never collide on the global one.
type Metrics struct {
	// Invocations counts tool calls by classification and outcome.
	Invocations *prometheus.CounterVec

	// PendingTasks tracks approvals currently awaiting a decision.
	PendingTasks prometheus.Gauge

	// ApprovalWait observes how long deferred actions waited for a
	// terminal approval outcome, in seconds.
	ApprovalWait prometheus.Histogram
}

// NewMetrics creates and registers the proxy instruments.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cosmos",
			Subsystem: "proxy",
			Name:      "invocations_total",
			Help:      "Tool invocations by classification and outcome.",
		}, []string{"classification", "outcome"}),
		PendingTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "cosmos",
			Subsystem: "proxy",
			Name:      "pending_tasks",
			Help:      "Deferred tasks currently awaiting approval.",
		}),
		ApprovalWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "cosmos",
			Subsystem: "proxy",
			Name:      "approval_wait_seconds",
			Help:      "Time deferred actions spent waiting for an approval outcome.",
			Buckets:   []float64{1, 2, 4, 8, 15, 30, 60},
		}),
	}
	reg.MustRegister(m.Invocations, m.PendingTasks, m.ApprovalWait)
	return m
}
