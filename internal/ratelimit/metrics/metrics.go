package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Checks   *prometheus.CounterVec
	Refusals prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Checks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "euvat_ratelimit_checks_total",
			Help: "Rate limit checks by outcome",
		}, []string{"outcome"}),
		Refusals: f.NewCounter(prometheus.CounterOpts{
			Name: "euvat_ratelimit_refusals_total",
			Help: "Requests refused by the per-IP rate limit",
		}),
	}
}

func (m *Metrics) ObserveCheck(allowed bool) {
	if m == nil {
		return
	}
	if allowed {
		m.Checks.WithLabelValues("allowed").Inc()
		return
	}
	m.Checks.WithLabelValues("refused").Inc()
	m.Refusals.Inc()
}
