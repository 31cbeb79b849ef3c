package location

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	verdicts *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		verdicts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "euvat_location_evidence_total",
			Help: "Location evidence verdicts by sufficiency",
		}, []string{"sufficient"}),
	}
}

func (m *Metrics) ObserveVerdict(sufficient bool) {
	if m == nil {
		return
	}
	label := "false"
	if sufficient {
		label = "true"
	}
	m.verdicts.WithLabelValues(label).Inc()
}
