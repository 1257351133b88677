package reminders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Suppression reasons reported on fires that do not notify.
const (
	SuppressMissing  = "item_missing"
	SuppressInactive = "item_inactive"
	SuppressDone     = "done_today"
)

// Metrics holds Prometheus metrics for the reminder engine.
type Metrics struct {
	// Registrations is the current number of live trigger registrations.
	Registrations prometheus.Gauge

	// FiresTotal counts trigger fires by target kind and outcome
	// (sent / suppressed / failed).
	FiresTotal *prometheus.CounterVec

	// SuppressedTotal counts suppressed fires by reason.
	SuppressedTotal *prometheus.CounterVec

	// SendDuration is the time to deliver one notification.
	SendDuration prometheus.Histogram

	// SendRetries counts retry attempts against the outbound channel.
	SendRetries prometheus.Counter
}

// NewMetrics creates and registers reminder metrics under the namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Registrations: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "reminder_registrations",
				Help:      "Current number of live trigger registrations",
			},
		),

		FiresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminder_fires_total",
				Help:      "Trigger fires by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),

		SuppressedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminder_suppressed_total",
				Help:      "Suppressed fires by reason",
			},
			[]string{"reason"},
		),

		SendDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reminder_send_duration_seconds",
				Help:      "Time to deliver one notification",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5},
			},
		),

		SendRetries: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminder_send_retries_total",
				Help:      "Retry attempts against the outbound channel",
			},
		),
	}
}

// IncFire records a fire outcome for a target kind.
func (m *Metrics) IncFire(kind TargetKind, outcome string) {
	if m == nil {
		return
	}
	m.FiresTotal.WithLabelValues(string(kind), outcome).Inc()
}

// IncSuppressed records a suppressed fire.
func (m *Metrics) IncSuppressed(reason string) {
	if m == nil {
		return
	}
	m.SuppressedTotal.WithLabelValues(reason).Inc()
}

// AddRegistrations moves the live registration gauge by delta.
func (m *Metrics) AddRegistrations(delta int) {
	if m == nil {
		return
	}
	m.Registrations.Add(float64(delta))
}

// ObserveSendDuration records the time taken to send one notification.
func (m *Metrics) ObserveSendDuration(seconds float64) {
	if m == nil {
		return
	}
	m.SendDuration.Observe(seconds)
}

// IncRetries counts one send retry.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.SendRetries.Inc()
}
