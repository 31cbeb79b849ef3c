package config

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"euvat/pkg/domain"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("SHOP_BASE_COUNTRY", "gb")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, FieldOptional, cfg.VAT.FieldRequirement)
	assert.Equal(t, SelfCertConflictOnly, cfg.VAT.SelfCertification)
	assert.True(t, cfg.VAT.AcceptWhenServerBusy, "busy registry is accepted by default")
	assert.Equal(t, domain.CountryCode("GB"), cfg.VAT.ShopBaseCountry)
	assert.Equal(t, domain.DefaultEUVATCountries, cfg.VAT.EUCountries)
	assert.Equal(t, 5*time.Second, cfg.VIES.Timeout)
	assert.Equal(t, 2*time.Hour, cfg.RatesFeed.CacheTTL)
	assert.Equal(t, 30, cfg.RateLimit.ValidateLimit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, int32(3), cfg.Kafka.TopicPartitions)
	assert.True(t, cfg.StrictInvariants, "strict invariants outside production")
	assert.Empty(t, cfg.Server.TrustedProxies, "no proxy is trusted by default")
}

func TestFromEnv_TrustedProxies(t *testing.T) {
	t.Setenv("SHOP_BASE_COUNTRY", "gb")

	t.Run("cidrs and bare addresses", func(t *testing.T) {
		t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1")
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, []netip.Prefix{
			netip.MustParsePrefix("10.0.0.0/8"),
			netip.MustParsePrefix("192.0.2.1/32"),
		}, cfg.Server.TrustedProxies)
	})

	t.Run("malformed entry fails loading", func(t *testing.T) {
		t.Setenv("TRUSTED_PROXIES", "10.0.0.0/99")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "TRUSTED_PROXIES")
	})
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("VAT_FIELD_REQUIREMENT", "required_eu_only")
	t.Setenv("VAT_ACCEPT_WHEN_SERVER_BUSY", "false")
	t.Setenv("VAT_EU_COUNTRIES", "ie, fr ,IE")
	t.Setenv("EXCHANGE_RATES", "EUR:1, gbp:0.85")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("RATELIMIT_VALIDATE_PER_WINDOW", "0")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, FieldRequiredEUOnly, cfg.VAT.FieldRequirement)
	assert.False(t, cfg.VAT.AcceptWhenServerBusy)
	assert.Equal(t, []string{"IE", "FR"}, cfg.VAT.EUCountries)
	assert.True(t, decimal.RequireFromString("0.85").Equal(cfg.Currency.ExchangeRates["GBP"]))
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Zero(t, cfg.RateLimit.ValidateLimit, "zero disables the lookup limit")
}

func TestFromEnv_Invalid(t *testing.T) {
	t.Run("unknown field requirement", func(t *testing.T) {
		t.Setenv("VAT_FIELD_REQUIREMENT", "sometimes")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("malformed exchange rate", func(t *testing.T) {
		t.Setenv("EXCHANGE_RATES", "EUR=1")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("production requires a signing key", func(t *testing.T) {
		t.Setenv("EUVAT_ENV", "production")
		_, err := FromEnv()
		require.Error(t, err)
	})
}

func TestLoad_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("VAT_SHIPPING_AS_EVIDENCE=true\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("VAT_SHIPPING_AS_EVIDENCE") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.VAT.ShippingAsEvidence)
}
