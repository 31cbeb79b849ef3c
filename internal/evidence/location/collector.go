package location

import (
	"log/slog"
	"strings"
)

// MinMatchingEvidence is how many pieces of evidence must agree on a country.
const MinMatchingEvidence = 2

// Collector counts location evidence. It holds no per-request state and is
// safe for concurrent use.
type Collector struct {
	filters []CountriesFilter
	logger  *slog.Logger
	metrics *Metrics
}

type Option func(*Collector)

// WithCountriesFilter appends a filter; filters run in registration order.
func WithCountriesFilter(f CountriesFilter) Option {
	return func(c *Collector) {
		if f != nil {
			c.filters = append(c.filters, f)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) {
		c.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Collector) {
		c.metrics = m
	}
}

func NewCollector(opts ...Option) *Collector {
	c := &Collector{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Countries lists the evidence countries for a claim, billing first, then IP,
// then shipping when it counts as evidence. Blank entries are kept here and
// dropped when counting so filters see every slot.
func (c *Collector) Countries(claim Claim, shippingAsEvidence bool) []string {
	countries := []string{normalize(claim.BillingCountry), normalize(claim.IPCountry)}
	if shippingAsEvidence {
		countries = append(countries, normalize(claim.EffectiveShippingCountry()))
	}
	for _, f := range c.filters {
		countries = f(countries)
	}
	return countries
}

// Collect returns the evidence verdict for a claim.
func (c *Collector) Collect(claim Claim, shippingAsEvidence bool) Verdict {
	v := Tally(c.Countries(claim, shippingAsEvidence), normalize(claim.BillingCountry))
	c.metrics.ObserveVerdict(v.Sufficient)
	if c.logger != nil {
		c.logger.Debug("location evidence collected",
			"billing_country", claim.BillingCountry,
			"ip_country", claim.IPCountry,
			"shipping_country", claim.EffectiveShippingCountry(),
			"shipping_as_evidence", shippingAsEvidence,
			"sufficient", v.Sufficient,
			"supporting_country", v.SupportingCountry,
		)
	}
	return v
}

// Tally counts non-blank countries. The most frequent country wins; on a tie
// the preferred country wins, then the one seen first.
func Tally(countries []string, preferred string) Verdict {
	counts := make(map[string]int, len(countries))
	var order []string
	for _, raw := range countries {
		country := normalize(raw)
		if country == "" {
			continue
		}
		if counts[country] == 0 {
			order = append(order, country)
		}
		counts[country]++
	}

	best, bestCount := "", 0
	for _, country := range order {
		n := counts[country]
		if n > bestCount || (n == bestCount && country == preferred) {
			best, bestCount = country, n
		}
	}

	if bestCount < MinMatchingEvidence {
		return Verdict{}
	}
	return Verdict{Sufficient: true, SupportingCountry: best}
}

func normalize(country string) string {
	return strings.ToUpper(strings.TrimSpace(country))
}
