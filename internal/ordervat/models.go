// Package ordervat persists the VAT decision and location evidence against
// orders and customers.
package ordervat

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"euvat/internal/exemption"
)

// Meta keys stored against orders. The unprefixed vat_number is also stored
// against customers.
const (
	MetaVATNumber       = "vat_number"
	MetaVATCountry      = "_vat_country"
	MetaValidationState = "_vat_number_validated"
	MetaSelfCertified   = "_customer_location_self_certified"
	MetaEvidence        = "_eu_vat_evidence"
	MetaExchangeRate    = "vat_currency_exchange_rate"
	MetaBillingCountry  = "_billing_country"
	MetaOrderCurrency   = "_order_currency"
)

const (
	Yes = "yes"
	No  = "no"
)

// MetaStore is generic keyed persistence for orders and customers. A Set call
// replaces the whole key set of its order or customer; an empty set removes it.
type MetaStore interface {
	SetOrderMeta(ctx context.Context, orderID string, meta map[string]string) error
	OrderMeta(ctx context.Context, orderID string) (map[string]string, error)
	SetCustomerMeta(ctx context.Context, customerID string, meta map[string]string) error
	CustomerMeta(ctx context.Context, customerID string) (map[string]string, error)
}

// Store is a MetaStore with a transactional boundary. Writes made through the
// store handed to fn commit together, or not at all when fn fails.
type Store interface {
	MetaStore
	RunInTx(ctx context.Context, fn func(store MetaStore) error) error
}

// UserAgent is the parsed browser summary kept with the evidence.
type UserAgent struct {
	Raw            string `json:"raw,omitempty"`
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
	OS             string `json:"os,omitempty"`
	Mobile         bool   `json:"mobile"`
	Bot            bool   `json:"bot"`
}

// Evidence is the location snapshot stored under MetaEvidence.
type Evidence struct {
	BillingCountry  string    `json:"billing_country"`
	ShippingCountry string    `json:"shipping_country"`
	IPAddress       string    `json:"ip_address"`
	IPCountry       string    `json:"ip_country"`
	SelfCertified   bool      `json:"self_certified"`
	UserAgent       UserAgent `json:"user_agent"`
	CollectedAt     time.Time `json:"collected_at"`
}

// Bundle is the finished checkout decision handed over for persistence.
type Bundle struct {
	OrderID         string
	CustomerID      string
	Country         string
	VATNumber       string
	ValidationState exemption.ValidationState
	SelfCertified   bool
	BillingCountry  string
	Currency        string
	Evidence        *Evidence
}

// OrderVAT is the stored VAT information of one order.
type OrderVAT struct {
	OrderID         string                    `json:"order_id"`
	VATNumber       string                    `json:"vat_number"`
	Country         string                    `json:"vat_country"`
	ValidationState exemption.ValidationState `json:"validation_state"`
	SelfCertified   bool                      `json:"self_certified"`
	ExchangeRate    *decimal.Decimal          `json:"vat_currency_exchange_rate,omitempty"`
	Evidence        *Evidence                 `json:"evidence,omitempty"`
}

// RenewalFilter may adjust the meta copied from an original order to its
// renewal. Filters run in registration order.
type RenewalFilter func(meta map[string]string) map[string]string

// RateSource converts between the order currency and the VAT currency.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
	VATCurrency() string
}
