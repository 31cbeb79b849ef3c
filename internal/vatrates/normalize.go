package vatrates

// Territories that apply another country's VAT, and feed codes that are VAT
// prefixes rather than ISO codes.
var (
	borrowedRates = []struct{ code, from, name string }{
		{"MC", "FR", "Monaco"},
		{"IM", "UK", "Isle of Man"},
	}
	renamedCodes = map[string]string{
		"EL": "GR",
		"UK": "GB",
	}
)

// normalize turns the raw feed into a Table keyed by ISO code.
func normalize(raw rawTable) Table {
	rates := make(map[string]Rates, len(raw.Rates)+len(borrowedRates))
	for code, r := range raw.Rates {
		rates[code] = r.parse()
	}

	for _, b := range borrowedRates {
		if src, ok := rates[b.from]; ok {
			src.Country = b.name
			rates[b.code] = src
		}
	}
	for from, to := range renamedCodes {
		if r, ok := rates[from]; ok {
			rates[to] = r
			delete(rates, from)
		}
	}
	for code, r := range rates {
		if r.ReducedRate == nil {
			r.ReducedRate = r.StandardRate
			rates[code] = r
		}
	}

	return Table{
		LastUpdated: raw.LastUpdated,
		Disclaimer:  raw.Disclaimer,
		Rates:       rates,
	}
}
