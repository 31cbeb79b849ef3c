package domain

import (
	"sort"
	"strings"
)

// CountryCode is an ISO 3166-1 alpha-2 country code, always upper case.
// The zero value means "no country".
type CountryCode string

// ParseCountryCode normalizes raw input into a CountryCode. Input that is not
// exactly two ASCII letters after trimming yields the zero value.
func ParseCountryCode(raw string) CountryCode {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if len(s) != 2 || !isUpperAlpha(s[0]) || !isUpperAlpha(s[1]) {
		return ""
	}
	return CountryCode(s)
}

func (c CountryCode) String() string { return string(c) }

func (c CountryCode) IsZero() bool { return c == "" }

// Monaco and the Isle of Man are not EU members but EU VAT rules apply to
// them: Monaco uses French VAT, the Isle of Man uses UK VAT.
const (
	CountryMonaco    CountryCode = "MC"
	CountryIsleOfMan CountryCode = "IM"
	CountryGreece    CountryCode = "GR"
	CountryFrance    CountryCode = "FR"
	CountryUK        CountryCode = "GB"
)

// DefaultEUVATCountries lists the countries to which EU VAT rules apply when no
// explicit list is configured: the EU-28 member states plus MC and IM.
var DefaultEUVATCountries = []string{
	"AT", "BE", "BG", "CY", "CZ", "DE", "DK", "EE", "ES", "FI",
	"FR", "GB", "GR", "HR", "HU", "IE", "IT", "LT", "LU", "LV",
	"MT", "NL", "PL", "PT", "RO", "SE", "SI", "SK",
	string(CountryMonaco), string(CountryIsleOfMan),
}

// CountrySet is an immutable set of country codes.
type CountrySet struct {
	members map[CountryCode]struct{}
}

// NewCountrySet builds a set from raw codes, skipping anything that does not
// parse as a country code.
func NewCountrySet(codes ...string) CountrySet {
	members := make(map[CountryCode]struct{}, len(codes))
	for _, raw := range codes {
		if c := ParseCountryCode(raw); !c.IsZero() {
			members[c] = struct{}{}
		}
	}
	return CountrySet{members: members}
}

// Contains reports whether the set holds the country. The zero country is
// never a member.
func (s CountrySet) Contains(c CountryCode) bool {
	if c.IsZero() {
		return false
	}
	_, ok := s.members[c]
	return ok
}

func (s CountrySet) Len() int { return len(s.members) }

// Codes returns the members in ascending order.
func (s CountrySet) Codes() []string {
	out := make([]string, 0, len(s.members))
	for c := range s.members {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}

func isUpperAlpha(b byte) bool {
	return b >= 'A' && b <= 'Z'
}
