package exemption

import (
	"euvat/internal/evidence/vies"
)

// ValidationState classifies the VAT number attached to an order.
type ValidationState string

const (
	StateNoNumber         ValidationState = "NO_NUMBER"
	StateValid            ValidationState = "VALID"
	StateNotValid         ValidationState = "NOT_VALID"
	StateNonEU            ValidationState = "NON_EU"
	StateCouldNotValidate ValidationState = "COULD_NOT_VALIDATE"
	StateEnteredManually  ValidationState = "ENTERED_MANUALLY_NOT_VALIDATED"
)

// IsValid reports whether s is one of the known states.
func (s ValidationState) IsValid() bool {
	switch s {
	case StateNoNumber, StateValid, StateNotValid, StateNonEU, StateCouldNotValidate, StateEnteredManually:
		return true
	}
	return false
}

// ResultCode is the engine's answer to the checkout gatekeeper.
type ResultCode string

const (
	ResultOK               ResultCode = "OK"
	ResultInvalidVATNumber ResultCode = "ERR_INVALID_EU_VAT_NUMBER"
	ResultCouldNotValidate ResultCode = "ERR_COULD_NOT_VALIDATE_VAT_NUMBER"
)

// Verdict is computed once per attempt and never mutated afterwards.
// Country and VATNumber are set only when both were supplied and the VAT
// field is not hidden.
type Verdict struct {
	Exempt          bool            `json:"exempt"`
	ValidationState ValidationState `json:"validation_state"`
	Result          ResultCode      `json:"result"`
	Country         string          `json:"vat_country"`
	VATNumber       string          `json:"vat_number"`
	// Registry is the adapter's answer; zero when the registry was not asked.
	Registry vies.Result `json:"-"`
}

// ExemptionFilter may change the final exempt flag. It receives the flag
// computed so far, the verdict it belongs to and the registry answer.
type ExemptionFilter func(exempt bool, verdict Verdict, registry vies.Result) bool

// RequirementFilter may change whether a VAT number is required.
type RequirementFilter func(required bool, country string) bool

// CountriesFilter adjusts the EU VAT country list once at construction.
type CountriesFilter func(countries []string) []string
