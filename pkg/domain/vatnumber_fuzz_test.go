//go:build go1.18

package domain

import (
	"testing"
)

// FuzzParseVATNumber tests that parsing never panics on arbitrary input and
// that accepted numbers are stable under re-parsing.
//
// Justification: VAT numbers are free-text checkout input and go straight to
// an external registry and to stored order meta.
func FuzzParseVATNumber(f *testing.F) {
	f.Add("")
	f.Add("IE1234567X")
	f.Add("el 123 456 789")
	f.Add("ATU12345678")
	f.Add("'; DROP TABLE orders;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		n, err := ParseVATNumber(input)
		if err != nil {
			return
		}
		if len(n) < minVATNumberLength || len(n) > maxVATNumberLength {
			t.Errorf("accepted number %q has invalid length", n)
		}
		for i := 0; i < len(n); i++ {
			c := n[i]
			if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
				t.Errorf("accepted number %q contains %q", n, c)
			}
		}
	})
}
