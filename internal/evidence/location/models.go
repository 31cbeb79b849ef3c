package location

// Claim is the set of countries asserted or derived for one checkout attempt.
type Claim struct {
	BillingCountry  string `json:"billing_country"`
	ShippingCountry string `json:"shipping_country"`
	// ShipToDifferentAddress is set when the customer ticked "ship to a
	// different address". Otherwise the shipping country is the billing one.
	ShipToDifferentAddress bool   `json:"ship_to_different_address"`
	IPCountry              string `json:"ip_country"`
}

// EffectiveShippingCountry is the country goods are shipped to.
func (c Claim) EffectiveShippingCountry() string {
	if c.ShipToDifferentAddress {
		return c.ShippingCountry
	}
	return c.BillingCountry
}

// Verdict reports whether at least two independent pieces of evidence agree
// on a country.
type Verdict struct {
	Sufficient        bool   `json:"sufficient"`
	SupportingCountry string `json:"supporting_country,omitempty"`
}

// CountriesFilter adjusts the evidence countries before they are counted.
// Filters receive and return the full list and must not retain it.
type CountriesFilter func(countries []string) []string
