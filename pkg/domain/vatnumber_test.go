package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "euvat/pkg/domain-errors"
)

func TestParseVATNumber(t *testing.T) {
	t.Run("strips separators and prefix", func(t *testing.T) {
		n, err := ParseVATNumber("IE 123.456-7X")
		require.NoError(t, err)
		assert.Equal(t, "1234567X", n)
	})

	t.Run("keeps single leading letter", func(t *testing.T) {
		n, err := ParseVATNumber("atu12345678")
		require.NoError(t, err)
		assert.Equal(t, "U12345678", n)
	})

	t.Run("bare number is unchanged", func(t *testing.T) {
		n, err := ParseVATNumber("123456789")
		require.NoError(t, err)
		assert.Equal(t, "123456789", n)
	})

	t.Run("rejects punctuation outside separators", func(t *testing.T) {
		_, err := ParseVATNumber("IE1234;DROP")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects empty and letter-only input", func(t *testing.T) {
		for _, raw := range []string{"", "  ", "IE", "ABCDEF"} {
			_, err := ParseVATNumber(raw)
			assert.Error(t, err, raw)
		}
	})

	t.Run("rejects overlong input", func(t *testing.T) {
		_, err := ParseVATNumber("DE1234567890123456")
		assert.Error(t, err)
	})
}

func TestFullVATNumber(t *testing.T) {
	cases := []struct {
		country CountryCode
		raw     string
		want    string
	}{
		{"IE", "1234567X", "IE1234567X"},
		{"IE", "IE1234567X", "IE1234567X"},
		{"GR", "123456789", "EL123456789"},
		{"GR", "EL123456789", "EL123456789"},
		{CountryMonaco, "12345678901", "FR12345678901"},
		{CountryIsleOfMan, "123456789", "GB123456789"},
	}
	for _, tc := range cases {
		t.Run(string(tc.country)+"/"+tc.raw, func(t *testing.T) {
			got, err := FullVATNumber(tc.country, tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("requires a country", func(t *testing.T) {
		_, err := FullVATNumber("", "123456789")
		assert.Error(t, err)
	})

	t.Run("refuses another country's prefix", func(t *testing.T) {
		_, err := FullVATNumber("DE", "FR12345678901")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParseVATNumberFor(t *testing.T) {
	cases := []struct {
		country CountryCode
		raw     string
		want    string
		wantErr bool
	}{
		{country: "FR", raw: "FR12345678901", want: "12345678901"},
		{country: "FR", raw: "12345678901", want: "12345678901"},
		{country: "GR", raw: "EL123456789", want: "123456789"},
		{country: "GR", raw: "GR123456789", want: "123456789"},
		{country: CountryMonaco, raw: "FR12345678901", want: "12345678901"},
		{country: "DE", raw: "FR12345678901", wantErr: true},
		{country: "IE", raw: "GB123456789", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(string(tc.country)+"/"+tc.raw, func(t *testing.T) {
			got, err := ParseVATNumberFor(tc.country, tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "does not match country")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
