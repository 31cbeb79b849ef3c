// Package store keeps the per-session "last validated number" memo so an
// unchanged VAT number is not sent to the registry again during checkout.
package store

import (
	"time"

	"euvat/internal/evidence/vies"
)

// Memo is the last definitive registry answer seen by one checkout session.
type Memo struct {
	Country   string      `json:"country"`
	VATNumber string      `json:"vat_number"`
	Result    vies.Result `json:"result"`
	CheckedAt time.Time   `json:"checked_at"`
}

// Matches reports whether the memo answers for this country and number.
func (m Memo) Matches(country, vatNumber string) bool {
	return m.Country == country && m.VATNumber == vatNumber
}
