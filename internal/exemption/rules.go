package exemption

import (
	"euvat/internal/evidence/vies"
	"euvat/internal/platform/config"
	"euvat/pkg/domain"
)

// classification is the outcome of the pure rule chain before filters run.
type classification struct {
	verdict      Verdict
	askRegistry  bool
	shortCircuit string
}

// classify applies the rules that do not need the registry.
// Rule priority (fail-fast):
//  1. Hidden VAT field: nobody can be exempt.
//  2. Missing country or number.
//  3. Country outside the EU VAT area.
func classify(settings config.VAT, eu domain.CountrySet, country, vatNumber string) classification {
	noNumber := Verdict{ValidationState: StateNoNumber, Result: ResultOK}

	if settings.FieldRequirement == config.FieldHidden {
		return classification{verdict: noNumber, shortCircuit: "vat_field_hidden"}
	}
	if country == "" || vatNumber == "" {
		return classification{verdict: noNumber, shortCircuit: "missing_country_or_number"}
	}

	v := Verdict{Country: country, VATNumber: vatNumber, Result: ResultOK}
	if !eu.Contains(domain.CountryCode(country)) {
		v.ValidationState = StateNonEU
		return classification{verdict: v, shortCircuit: "non_eu_country"}
	}
	return classification{verdict: v, askRegistry: true}
}

// applyRegistry maps the adapter's answer onto the verdict. Only a valid
// answer can produce VALID.
func applyRegistry(settings config.VAT, v Verdict, registry vies.Result) Verdict {
	v.Registry = registry
	switch registry.Outcome {
	case vies.OutcomeValid:
		v.ValidationState = StateValid
		v.Result = ResultOK
		v.Exempt = domain.CountryCode(v.Country) != settings.ShopBaseCountry || settings.RemoveVATIfBaseCountry
	case vies.OutcomeInvalid:
		v.ValidationState = StateNotValid
		v.Result = ResultInvalidVATNumber
	default:
		v.ValidationState = StateCouldNotValidate
		v.Result = ResultCouldNotValidate
	}
	return v
}
