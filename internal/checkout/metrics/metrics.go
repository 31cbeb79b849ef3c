package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the checkout gatekeeper.
type Metrics struct {
	// Attempts by terminal state
	Attempts *prometheus.CounterVec

	// Rejections by reason
	Rejections *prometheus.CounterVec

	// Full evaluation latency including the registry call
	EvaluateLatency prometheus.Histogram
}

// New registers the checkout metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Attempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "euvat_checkout_attempts_total",
			Help: "Checkout attempts by terminal state",
		}, []string{"state"}),

		Rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "euvat_checkout_rejections_total",
			Help: "Checkout rejections by reason",
		}, []string{"reason"}),

		EvaluateLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "euvat_checkout_evaluate_duration_seconds",
			Help:    "Duration of checkout evaluation including VAT number validation",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// IncrementAttempt records a terminal state.
func (m *Metrics) IncrementAttempt(state string) {
	if m != nil {
		m.Attempts.WithLabelValues(state).Inc()
	}
}

// IncrementRejection records a rejection reason.
func (m *Metrics) IncrementRejection(reason string) {
	if m != nil {
		m.Rejections.WithLabelValues(reason).Inc()
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}
