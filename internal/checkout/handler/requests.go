package handler

import (
	"strings"

	"euvat/internal/checkout"
	dErrors "euvat/pkg/domain-errors"
)

const maxFieldLength = 64

// SubmitRequest is the HTTP request body for POST /checkout/submit.
type SubmitRequest struct {
	OrderID                string `json:"order_id"`
	CustomerID             string `json:"customer_id"`
	BillingCountry         string `json:"billing_country"`
	ShippingCountry        string `json:"shipping_country"`
	ShipToDifferentAddress bool   `json:"ship_to_different_address"`
	Company                string `json:"billing_company"`
	VATNumber              string `json:"vat_number"`
	SelfCertified          bool   `json:"customer_location_self_certified"`
	Currency               string `json:"currency"`
}

func (r *SubmitRequest) Normalize() {
	r.OrderID = strings.TrimSpace(r.OrderID)
	r.CustomerID = strings.TrimSpace(r.CustomerID)
	r.BillingCountry = strings.ToUpper(strings.TrimSpace(r.BillingCountry))
	r.ShippingCountry = strings.ToUpper(strings.TrimSpace(r.ShippingCountry))
	r.Company = strings.TrimSpace(r.Company)
	r.VATNumber = strings.TrimSpace(r.VATNumber)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
}

// Validate only bounds sizes. Missing data is for the gatekeeper to judge.
func (r *SubmitRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	for name, v := range map[string]string{
		"order_id":        r.OrderID,
		"customer_id":     r.CustomerID,
		"billing_country": r.BillingCountry,
		"billing_company": r.Company,
		"vat_number":      r.VATNumber,
	} {
		if len(v) > maxFieldLength {
			return dErrors.New(dErrors.CodeInvalidInput, name+" is too long")
		}
	}
	return nil
}

// Submission converts the request, adding the server-side IP country.
func (r *SubmitRequest) Submission(ipCountry string) checkout.Submission {
	return checkout.Submission{
		OrderID:                r.OrderID,
		CustomerID:             r.CustomerID,
		BillingCountry:         r.BillingCountry,
		ShippingCountry:        r.ShippingCountry,
		ShipToDifferentAddress: r.ShipToDifferentAddress,
		IPCountry:              ipCountry,
		Company:                r.Company,
		VATNumber:              r.VATNumber,
		SelfCertified:          r.SelfCertified,
		Currency:               r.Currency,
	}
}

// ReviewRequest is the HTTP request body for POST /checkout/review.
type ReviewRequest struct {
	BillingCountry         string `json:"billing_country"`
	ShippingCountry        string `json:"shipping_country"`
	ShipToDifferentAddress bool   `json:"ship_to_different_address"`
	Company                string `json:"billing_company"`
	VATNumber              string `json:"vat_number"`
}

func (r *ReviewRequest) Normalize() {
	r.BillingCountry = strings.ToUpper(strings.TrimSpace(r.BillingCountry))
	r.ShippingCountry = strings.ToUpper(strings.TrimSpace(r.ShippingCountry))
	r.Company = strings.TrimSpace(r.Company)
	r.VATNumber = strings.TrimSpace(r.VATNumber)
}

func (r *ReviewRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.VATNumber) > maxFieldLength || len(r.Company) > maxFieldLength {
		return dErrors.New(dErrors.CodeInvalidInput, "field is too long")
	}
	return nil
}

// EvidenceRequest is the HTTP request body for POST /evidence/check.
type EvidenceRequest struct {
	BillingCountry         string `json:"billing_country"`
	ShippingCountry        string `json:"shipping_country"`
	ShipToDifferentAddress bool   `json:"ship_to_different_address"`
}

func (r *EvidenceRequest) Normalize() {
	r.BillingCountry = strings.ToUpper(strings.TrimSpace(r.BillingCountry))
	r.ShippingCountry = strings.ToUpper(strings.TrimSpace(r.ShippingCountry))
}

func (r *EvidenceRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}
