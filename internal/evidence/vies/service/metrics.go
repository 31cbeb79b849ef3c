package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for registry traffic. All methods are nil-safe.
type Metrics struct {
	outcomes    *prometheus.CounterVec
	latency     prometheus.Histogram
	memoHits    prometheus.Counter
	memoMisses  prometheus.Counter
	circuitOpen prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "euvat_vies_validations_total",
			Help: "VAT number validations by outcome and source",
		}, []string{"outcome", "source"}),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "euvat_vies_request_duration_seconds",
			Help:    "Latency of VIES registry calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		memoHits: f.NewCounter(prometheus.CounterOpts{
			Name: "euvat_vies_memo_hits_total",
			Help: "Validations answered from the session memo",
		}),
		memoMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "euvat_vies_memo_misses_total",
			Help: "Validations that needed the registry",
		}),
		circuitOpen: f.NewGauge(prometheus.GaugeOpts{
			Name: "euvat_vies_circuit_open",
			Help: "1 while the registry circuit breaker is open",
		}),
	}
}

func (m *Metrics) IncOutcome(outcome, source string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(outcome, source).Inc()
}

func (m *Metrics) ObserveLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.latency.Observe(d.Seconds())
}

func (m *Metrics) IncMemoHit() {
	if m == nil {
		return
	}
	m.memoHits.Inc()
}

func (m *Metrics) IncMemoMiss() {
	if m == nil {
		return
	}
	m.memoMisses.Inc()
}

func (m *Metrics) SetCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.circuitOpen.Set(1)
		return
	}
	m.circuitOpen.Set(0)
}
