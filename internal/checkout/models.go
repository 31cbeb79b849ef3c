// Package checkout is the gatekeeper that accepts or rejects a checkout
// attempt based on the exemption verdict, the VAT number requirement and the
// customer's location evidence.
package checkout

import (
	"fmt"

	"euvat/internal/evidence/location"
	"euvat/internal/exemption"
)

// Submission is the data posted with one checkout attempt.
type Submission struct {
	OrderID                string
	CustomerID             string
	BillingCountry         string
	ShippingCountry        string
	ShipToDifferentAddress bool
	IPCountry              string
	Company                string
	VATNumber              string
	SelfCertified          bool
	Currency               string
}

func (s Submission) claim() location.Claim {
	return location.Claim{
		BillingCountry:         s.BillingCountry,
		ShippingCountry:        s.ShippingCountry,
		ShipToDifferentAddress: s.ShipToDifferentAddress,
		IPCountry:              s.IPCountry,
	}
}

// Rejection identifies why an attempt was refused.
type Rejection string

const (
	RejectVATNumberRequired Rejection = "vat_number_required"
	RejectVATNumberInvalid  Rejection = "vat_number_invalid"
	RejectLocationEvidence  Rejection = "location_not_confirmed"
)

// Message is the customer-facing text for a rejection.
func (r Rejection) Message(vatNumber string) string {
	switch r {
	case RejectVATNumberRequired:
		return "You must enter a valid EU VAT number to complete the purchase."
	case RejectVATNumberInvalid:
		return fmt.Sprintf(`VAT number "%s" is not valid for your country.`, vatNumber)
	case RejectLocationEvidence:
		return "Unfortunately, we could not collect sufficient information to confirm your location. " +
			"To proceed with the order, please tick the box below the billing details to confirm " +
			"that you will be using the product(s) in country you selected."
	}
	return string(r)
}

// State is the terminal state of one attempt. A rejected attempt can be
// resubmitted; each submission starts over.
type State string

const (
	StateAccepted State = "accepted"
	StateRejected State = "rejected"
)

// Outcome is the gatekeeper's answer for one attempt.
type Outcome struct {
	Allowed         bool                      `json:"allowed"`
	State           State                     `json:"state"`
	Errors          []string                  `json:"errors"`
	Reasons         []Rejection               `json:"reasons,omitempty"`
	Exempt          bool                      `json:"exempt"`
	Country         string                    `json:"vat_country"`
	VATNumber       string                    `json:"vat_number"`
	ValidationState exemption.ValidationState `json:"validation_state"`
	SelfCertified   bool                      `json:"self_certified"`
	VATRequired     bool                      `json:"vat_number_required"`
	Evidence        location.Verdict          `json:"evidence"`
	Recorded        bool                      `json:"recorded"`
}

func (o *Outcome) reject(r Rejection, vatNumber string) {
	o.Allowed = false
	o.State = StateRejected
	o.Reasons = append(o.Reasons, r)
	o.Errors = append(o.Errors, r.Message(vatNumber))
}

// ReviewInput is the data available while the customer reviews the order.
type ReviewInput struct {
	BillingCountry         string
	ShippingCountry        string
	ShipToDifferentAddress bool
	IPCountry              string
	Company                string
	VATNumber              string
}

// ReviewResult is advisory: it drives what the storefront shows and never
// blocks the customer.
type ReviewResult struct {
	Skipped               bool              `json:"skipped"`
	TaxCountry            string            `json:"tax_country,omitempty"`
	Verdict               exemption.Verdict `json:"verdict"`
	VATRequired           bool              `json:"vat_number_required"`
	Evidence              location.Verdict  `json:"evidence"`
	ShowSelfCertification bool              `json:"show_self_certification"`
}
