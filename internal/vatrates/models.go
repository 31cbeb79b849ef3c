// Package vatrates fetches and normalizes the published EU VAT rate table.
package vatrates

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Rates holds one country's rates. A nil rate is not applied in that country.
type Rates struct {
	Country          string           `json:"country"`
	StandardRate     *decimal.Decimal `json:"standard_rate"`
	ReducedRate      *decimal.Decimal `json:"reduced_rate"`
	ReducedRateAlt   *decimal.Decimal `json:"reduced_rate_alt"`
	SuperReducedRate *decimal.Decimal `json:"super_reduced_rate"`
	ParkingRate      *decimal.Decimal `json:"parking_rate"`
}

// Table is the normalized feed keyed by ISO country code.
type Table struct {
	LastUpdated string           `json:"last_updated,omitempty"`
	Disclaimer  string           `json:"disclaimer,omitempty"`
	Rates       map[string]Rates `json:"rates"`
}

// Valid reports whether every country has a standard rate.
func (t Table) Valid() bool {
	if len(t.Rates) == 0 {
		return false
	}
	for _, r := range t.Rates {
		if r.StandardRate == nil {
			return false
		}
	}
	return true
}

// rawRates mirrors the feed, where a missing rate is published as false.
type rawRates struct {
	Country          string          `json:"country"`
	StandardRate     json.RawMessage `json:"standard_rate"`
	ReducedRate      json.RawMessage `json:"reduced_rate"`
	ReducedRateAlt   json.RawMessage `json:"reduced_rate_alt"`
	SuperReducedRate json.RawMessage `json:"super_reduced_rate"`
	ParkingRate      json.RawMessage `json:"parking_rate"`
}

type rawTable struct {
	LastUpdated string              `json:"last_updated"`
	Disclaimer  string              `json:"disclaimer"`
	Rates       map[string]rawRates `json:"rates"`
}

func (r rawRates) parse() Rates {
	return Rates{
		Country:          r.Country,
		StandardRate:     parseRate(r.StandardRate),
		ReducedRate:      parseRate(r.ReducedRate),
		ReducedRateAlt:   parseRate(r.ReducedRateAlt),
		SuperReducedRate: parseRate(r.SuperReducedRate),
		ParkingRate:      parseRate(r.ParkingRate),
	}
}

// parseRate accepts a JSON number or numeric string.
func parseRate(raw json.RawMessage) *decimal.Decimal {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
	} else {
		s = string(raw)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}
