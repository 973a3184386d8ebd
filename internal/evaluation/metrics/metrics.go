package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	PassDuration       prometheus.Histogram
	PassesSkipped      prometheus.Counter
	UsersEvaluated     prometheus.Counter
	EvaluationFailures *prometheus.CounterVec
	ChecksSkipped      *prometheus.CounterVec
	ForcedTransitions  prometheus.Counter
	DispatchDropped    prometheus.Counter
}

// New creates the evaluation metrics and registers them with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PassDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "shiftguard_evaluation_pass_duration_seconds",
			Help:    "Duration of a tenant evaluation pass",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		PassesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "shiftguard_evaluation_passes_skipped_total",
			Help: "Tenant passes skipped because another pass held the lock",
		}),
		UsersEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Name: "shiftguard_evaluation_users_total",
			Help: "Total number of user evaluations attempted",
		}),
		EvaluationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftguard_evaluation_failures_total",
			Help: "Failed user or tenant evaluations by error code",
		}, []string{"code"}),
		ChecksSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftguard_evaluation_checks_skipped_total",
			Help: "Checks that could not run, by check and reason",
		}, []string{"check", "reason"}),
		ForcedTransitions: factory.NewCounter(prometheus.CounterOpts{
			Name: "shiftguard_attendance_forced_transitions_total",
			Help: "Attendance events applied although they did not match the session state",
		}),
		DispatchDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "shiftguard_evaluation_dispatch_dropped_total",
			Help: "Created alerts that could not be queued for delivery",
		}),
	}
}

func (m *Metrics) ObservePassDuration(start time.Time) {
	m.PassDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementPassesSkipped() {
	m.PassesSkipped.Inc()
}

func (m *Metrics) IncrementUsersEvaluated() {
	m.UsersEvaluated.Inc()
}

func (m *Metrics) IncrementFailure(code string) {
	m.EvaluationFailures.WithLabelValues(code).Inc()
}

func (m *Metrics) IncrementCheckSkipped(check, reason string) {
	m.ChecksSkipped.WithLabelValues(check, reason).Inc()
}

func (m *Metrics) AddForcedTransitions(n int) {
	m.ForcedTransitions.Add(float64(n))
}

func (m *Metrics) IncrementDispatchDropped() {
	m.DispatchDropped.Inc()
}
