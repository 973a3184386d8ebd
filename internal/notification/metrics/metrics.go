package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Deliveries        *prometheus.CounterVec
	DeliveryDuration  *prometheus.HistogramVec
	RecipientsSkipped prometheus.Counter
	QueueDropped      prometheus.Counter
	QueueDepth        prometheus.Gauge
	BreakerOpen       *prometheus.GaugeVec
}

// New creates the notification metrics and registers them with reg. A nil
// reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "shiftguard_notification_deliveries_total",
			Help: "Total number of delivery attempts by channel and outcome",
		}, []string{"channel", "status"}),
		DeliveryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shiftguard_notification_delivery_duration_seconds",
			Help:    "Time spent handing a delivery to its transport",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"channel"}),
		RecipientsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "shiftguard_notification_recipients_skipped_total",
			Help: "Recipients with no enabled channel for the alert category",
		}),
		QueueDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "shiftguard_notification_queue_dropped_total",
			Help: "Alerts dropped because the dispatch queue was full",
		}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "shiftguard_notification_queue_depth",
			Help: "Alerts waiting in the dispatch queue",
		}),
		BreakerOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "shiftguard_notification_breaker_open",
			Help: "1 while the transport circuit breaker for a channel is open",
		}, []string{"channel"}),
	}
}

func (m *Metrics) ObserveDelivery(channel, status string, start time.Time) {
	m.Deliveries.WithLabelValues(channel, status).Inc()
	m.DeliveryDuration.WithLabelValues(channel).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementRecipientsSkipped() {
	m.RecipientsSkipped.Inc()
}

func (m *Metrics) IncrementQueueDropped() {
	m.QueueDropped.Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	m.QueueDepth.Set(float64(n))
}

func (m *Metrics) SetBreakerOpen(channel string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.BreakerOpen.WithLabelValues(channel).Set(v)
}
