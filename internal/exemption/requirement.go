package exemption

import (
	"strings"

	"euvat/internal/platform/config"
	"euvat/pkg/domain"
)

// RequirementPolicy decides whether a customer must enter a valid VAT number.
type RequirementPolicy struct {
	engine  *Engine
	filters []RequirementFilter
}

// NewRequirementPolicy shares the engine's settings and EU country list.
func NewRequirementPolicy(engine *Engine, filters ...RequirementFilter) *RequirementPolicy {
	return &RequirementPolicy{engine: engine, filters: filters}
}

// Required reports whether a VAT number is mandatory for a customer in
// country who entered company as their company name. The field is never
// required for the shop's own country when it is hidden there.
func (p *RequirementPolicy) Required(country, company string) bool {
	s := p.engine.settings
	country = strings.ToUpper(strings.TrimSpace(country))
	hasCompany := strings.TrimSpace(company) != ""

	required := false
	if s.ShowVATFieldForBaseCountry || domain.CountryCode(country) != s.ShopBaseCountry {
		isEU := p.engine.IsEUCountry(country)
		switch s.FieldRequirement {
		case config.FieldRequired:
			required = true
		case config.FieldRequiredIfCompany:
			required = hasCompany
		case config.FieldRequiredIfCompanyEU:
			required = hasCompany && isEU
		case config.FieldRequiredEUOnly:
			required = isEU
		}
	}

	for _, f := range p.filters {
		required = f(required, country)
	}
	return required
}
