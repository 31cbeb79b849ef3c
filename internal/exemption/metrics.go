package exemption

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for exemption decisions. All methods are nil-safe.
type Metrics struct {
	decisions  *prometheus.CounterVec
	violations prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "euvat_exemption_decisions_total",
			Help: "Exemption decisions by validation state and exemption",
		}, []string{"validation_state", "exempt"}),
		violations: f.NewCounter(prometheus.CounterOpts{
			Name: "euvat_exemption_invariant_violations_total",
			Help: "Exemptions revoked because the number was not valid",
		}),
	}
}

func (m *Metrics) ObserveDecision(v Verdict) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(v.ValidationState), strconv.FormatBool(v.Exempt)).Inc()
}

func (m *Metrics) IncInvariantViolation() {
	if m == nil {
		return
	}
	m.violations.Inc()
}
