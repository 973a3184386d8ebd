package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AlertsCreated    *prometheus.CounterVec
	AlertsSuppressed *prometheus.CounterVec
	AlertsResolved   *prometheus.CounterVec
	AlertsRolledOver *prometheus.CounterVec
}

// New creates the alert metrics and registers them with reg. A nil reg
// leaves them unregistered, which tests rely on.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AlertsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftguard_alerts_created_total",
			Help: "Total number of alerts persisted",
		}, []string{"type", "severity"}),
		AlertsSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftguard_alerts_suppressed_total",
			Help: "Total number of alert candidates suppressed by deduplication",
		}, []string{"type", "reason"}),
		AlertsResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftguard_alerts_resolved_total",
			Help: "Total number of alerts resolved by an operator",
		}, []string{"type"}),
		AlertsRolledOver: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftguard_alerts_rolled_over_total",
			Help: "Total number of stale daily alerts resolved by the next day's alert",
		}, []string{"type"}),
	}
}

func (m *Metrics) IncrementCreated(alertType, severity string) {
	m.AlertsCreated.WithLabelValues(alertType, severity).Inc()
}

func (m *Metrics) IncrementSuppressed(alertType, reason string) {
	m.AlertsSuppressed.WithLabelValues(alertType, reason).Inc()
}

func (m *Metrics) IncrementResolved(alertType string) {
	m.AlertsResolved.WithLabelValues(alertType).Inc()
}

func (m *Metrics) AddRolledOver(alertType string, n int) {
	m.AlertsRolledOver.WithLabelValues(alertType).Add(float64(n))
}
