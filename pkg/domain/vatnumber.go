package domain

import (
	"fmt"
	"strings"

	dErrors "euvat/pkg/domain-errors"
)

const (
	minVATNumberLength = 2
	maxVATNumberLength = 14
)

// ParseVATNumber normalizes a customer-entered VAT number: separators are
// removed, letters upper-cased and a leading two-letter country prefix is
// stripped. The result is the bare national part, e.g. "IE 123.456-7X" gives
// "1234567X".
func ParseVATNumber(raw string) (string, error) {
	_, number, err := splitVATNumber(raw)
	return number, err
}

// ParseVATNumberFor is ParseVATNumber for a number entered against country c.
// A two-letter prefix must be the VAT prefix of c or its ISO code.
func ParseVATNumberFor(c CountryCode, raw string) (string, error) {
	prefix, number, err := splitVATNumber(raw)
	if err != nil {
		return "", err
	}
	if prefix != "" && prefix != VATPrefix(c) && prefix != string(c) {
		return "", dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("vat number prefix %s does not match country %s", prefix, c))
	}
	return number, nil
}

func splitVATNumber(raw string) (prefix, number string, err error) {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '.', r == '-', r == '_', r == '/', r == '\t':
		default:
			return "", "", dErrors.New(dErrors.CodeInvalidInput, "vat number contains invalid characters")
		}
	}
	number = b.String()
	if len(number) > 2 && isUpperAlpha(number[0]) && isUpperAlpha(number[1]) {
		prefix, number = number[:2], number[2:]
	}
	if len(number) < minVATNumberLength || len(number) > maxVATNumberLength {
		return "", "", dErrors.New(dErrors.CodeInvalidInput, "vat number has invalid length")
	}
	if !strings.ContainsAny(number, "0123456789") {
		return "", "", dErrors.New(dErrors.CodeInvalidInput, "vat number must contain digits")
	}
	return prefix, number, nil
}

// VATPrefix returns the prefix used on VAT numbers issued for a country. It
// matches the ISO code except for Greece (EL) and the territories that borrow
// another country's VAT system.
func VATPrefix(c CountryCode) string {
	switch c {
	case CountryGreece:
		return "EL"
	case CountryMonaco:
		return string(CountryFrance)
	case CountryIsleOfMan:
		return string(CountryUK)
	default:
		return string(c)
	}
}

// FullVATNumber returns the prefixed form stored against orders, e.g.
// FullVATNumber("GR", "el 123") gives "EL123".
func FullVATNumber(c CountryCode, raw string) (string, error) {
	if c.IsZero() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "country is required")
	}
	number, err := ParseVATNumberFor(c, raw)
	if err != nil {
		return "", err
	}
	return VATPrefix(c) + number, nil
}
