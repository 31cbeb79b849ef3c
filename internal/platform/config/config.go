package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"euvat/pkg/domain"
	platformstrings "euvat/pkg/platform/strings"
)

// Config is the typed settings snapshot read once at startup.
type Config struct {
	Server           Server
	Logging          Logging
	VAT              VAT
	VIES             VIES
	Redis            RedisConfig
	Postgres         Postgres
	Kafka            Kafka
	GeoIP            GeoIP
	Currency         Currency
	RatesFeed        RatesFeed
	RateLimit        RateLimit
	StrictInvariants bool
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	AdminSigningKey string
	ShutdownTimeout time.Duration
	Environment     string
	// TrustedProxies may set X-Forwarded-For. Empty trusts no one.
	TrustedProxies []netip.Prefix
}

// IsProduction reports whether the server runs with production defaults.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

type Logging struct {
	Level  string
	Format string
}

// FieldRequirement controls when the VAT number field must be filled in.
type FieldRequirement string

const (
	FieldOptional            FieldRequirement = "optional"
	FieldHidden              FieldRequirement = "hidden"
	FieldRequired            FieldRequirement = "required"
	FieldRequiredIfCompany   FieldRequirement = "required_if_company"
	FieldRequiredIfCompanyEU FieldRequirement = "required_if_company_eu"
	FieldRequiredEUOnly      FieldRequirement = "required_eu_only"
)

func (f FieldRequirement) IsValid() bool {
	switch f {
	case FieldOptional, FieldHidden, FieldRequired, FieldRequiredIfCompany, FieldRequiredIfCompanyEU, FieldRequiredEUOnly:
		return true
	}
	return false
}

// SelfCertification controls when customers are offered the location
// self-certification checkbox.
type SelfCertification string

const (
	SelfCertNo           SelfCertification = "no"
	SelfCertYes          SelfCertification = "yes"
	SelfCertConflictOnly SelfCertification = "conflict_only"
)

func (s SelfCertification) IsValid() bool {
	switch s {
	case SelfCertNo, SelfCertYes, SelfCertConflictOnly:
		return true
	}
	return false
}

// TaxBasedOn names the address used to pick the tax country during review.
type TaxBasedOn string

const (
	TaxBasedOnBilling  TaxBasedOn = "billing"
	TaxBasedOnShipping TaxBasedOn = "shipping"
	TaxBasedOnBase     TaxBasedOn = "base"
)

// VAT is the shop's EU VAT policy.
type VAT struct {
	FieldRequirement           FieldRequirement
	SelfCertification          SelfCertification
	SelfCertRequiredOnConflict bool
	HideSelfCertWhenVATValid   bool
	ShippingAsEvidence         bool
	AcceptWhenServerBusy       bool
	RemoveVATIfBaseCountry     bool
	ShowVATFieldForBaseCountry bool
	StoreInvalidNumbers        bool
	ShopBaseCountry            domain.CountryCode
	EUCountries                []string
	TaxBasedOn                 TaxBasedOn
	CollectVATForManualOrders  bool
	DebugMode                  bool
}

// VIES configures the registry client and its session memo.
type VIES struct {
	BaseURL                 string
	Timeout                 time.Duration
	MemoTTL                 time.Duration
	BreakerFailureThreshold int
	BreakerSuccessThreshold int
}

// RedisConfig configures the optional redis backend. An empty URL keeps
// the session memo and rates cache in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Postgres configures order meta and audit persistence. An empty DSN keeps
// both in memory.
type Postgres struct {
	DSN      string
	MaxConns int32
}

// Kafka configures the optional audit sink.
type Kafka struct {
	Brokers          []string
	AuditTopic       string
	TopicPartitions  int32
	TopicReplication int16
}

// GeoIP configures IP to country resolution.
type GeoIP struct {
	DatabasePath  string
	CountryHeader string
}

// Currency configures conversion to the VAT reporting currency.
type Currency struct {
	VATCurrency   string
	Decimals      int32
	ExchangeRates map[string]decimal.Decimal
}

// RatesFeed configures the EU VAT rates download.
type RatesFeed struct {
	URL      string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// RateLimit bounds public lookups per client IP. A zero limit disables it.
type RateLimit struct {
	ValidateLimit int
	Window        time.Duration
}

// Load preloads a .env file when present and reads the environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", f, err)
			}
		}
	}
	return FromEnv()
}

// FromEnv builds the Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	env := getEnv("EUVAT_ENV", "development")
	cfg := Config{
		Server: Server{
			Addr:            getEnv("EUVAT_ADDR", ":8080"),
			AdminSigningKey: getEnv("ADMIN_SIGNING_KEY", "dev-secret-key-change-in-production"),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			Environment:     env,
		},
		Logging: Logging{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		VAT: VAT{
			FieldRequirement:           FieldRequirement(getEnv("VAT_FIELD_REQUIREMENT", string(FieldOptional))),
			SelfCertification:          SelfCertification(getEnv("VAT_SELF_CERTIFICATION", string(SelfCertConflictOnly))),
			SelfCertRequiredOnConflict: getBool("VAT_SELF_CERT_REQUIRED_ON_CONFLICT", true),
			HideSelfCertWhenVATValid:   getBool("VAT_HIDE_SELF_CERT_WHEN_VALID", true),
			ShippingAsEvidence:         getBool("VAT_SHIPPING_AS_EVIDENCE", false),
			AcceptWhenServerBusy:       getBool("VAT_ACCEPT_WHEN_SERVER_BUSY", true),
			RemoveVATIfBaseCountry:     getBool("VAT_REMOVE_IF_BASE_COUNTRY", false),
			ShowVATFieldForBaseCountry: getBool("VAT_SHOW_FIELD_FOR_BASE_COUNTRY", true),
			StoreInvalidNumbers:        getBool("VAT_STORE_INVALID_NUMBERS", false),
			ShopBaseCountry:            domain.ParseCountryCode(getEnv("SHOP_BASE_COUNTRY", "")),
			EUCountries:                getCodes("VAT_EU_COUNTRIES", domain.DefaultEUVATCountries),
			TaxBasedOn:                 TaxBasedOn(getEnv("VAT_TAX_BASED_ON", string(TaxBasedOnBilling))),
			CollectVATForManualOrders:  getBool("VAT_COLLECT_FOR_MANUAL_ORDERS", false),
			DebugMode:                  getBool("VAT_DEBUG_MODE", false),
		},
		VIES: VIES{
			BaseURL:                 getEnv("VIES_BASE_URL", "https://ec.europa.eu/taxation_customs/vies/rest-api"),
			Timeout:                 getDuration("VIES_TIMEOUT", 5*time.Second),
			MemoTTL:                 getDuration("VIES_MEMO_TTL", 30*time.Minute),
			BreakerFailureThreshold: getInt("VIES_BREAKER_FAILURES", 5),
			BreakerSuccessThreshold: getInt("VIES_BREAKER_SUCCESSES", 3),
		},
		Redis: RedisConfig{
			URL:          getEnv("REDIS_URL", ""),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: Postgres{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: int32(getInt("DATABASE_MAX_CONNS", 10)),
		},
		Kafka: Kafka{
			Brokers:          getList("KAFKA_BROKERS", nil),
			AuditTopic:       getEnv("KAFKA_AUDIT_TOPIC", "euvat.audit"),
			TopicPartitions:  int32(getInt("KAFKA_AUDIT_TOPIC_PARTITIONS", 3)),
			TopicReplication: int16(getInt("KAFKA_AUDIT_TOPIC_REPLICATION", 1)),
		},
		GeoIP: GeoIP{
			DatabasePath:  getEnv("GEOIP_DB_PATH", ""),
			CountryHeader: getEnv("GEOIP_COUNTRY_HEADER", "CF-IPCountry"),
		},
		Currency: Currency{
			VATCurrency: strings.ToUpper(getEnv("VAT_CURRENCY", "EUR")),
			Decimals:    int32(getInt("PRICE_DECIMALS", 2)),
		},
		RatesFeed: RatesFeed{
			URL:      getEnv("VAT_RATES_URL", "https://euvatrates.com/rates.json"),
			Timeout:  getDuration("VAT_RATES_TIMEOUT", 5*time.Second),
			CacheTTL: getDuration("VAT_RATES_CACHE_TTL", 2*time.Hour),
		},
		RateLimit: RateLimit{
			ValidateLimit: getInt("RATELIMIT_VALIDATE_PER_WINDOW", 30),
			Window:        getDuration("RATELIMIT_WINDOW", time.Minute),
		},
		StrictInvariants: getBool("VAT_STRICT_INVARIANTS", env != "production"),
	}

	rates, err := parseExchangeRates(os.Getenv("EXCHANGE_RATES"))
	if err != nil {
		return Config{}, err
	}
	cfg.Currency.ExchangeRates = rates

	proxies, err := parseTrustedProxies(getList("TRUSTED_PROXIES", nil))
	if err != nil {
		return Config{}, err
	}
	cfg.Server.TrustedProxies = proxies

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot act on.
func (c Config) Validate() error {
	if !c.VAT.FieldRequirement.IsValid() {
		return fmt.Errorf("invalid VAT_FIELD_REQUIREMENT %q", c.VAT.FieldRequirement)
	}
	if !c.VAT.SelfCertification.IsValid() {
		return fmt.Errorf("invalid VAT_SELF_CERTIFICATION %q", c.VAT.SelfCertification)
	}
	switch c.VAT.TaxBasedOn {
	case TaxBasedOnBilling, TaxBasedOnShipping, TaxBasedOnBase:
	default:
		return fmt.Errorf("invalid VAT_TAX_BASED_ON %q", c.VAT.TaxBasedOn)
	}
	if c.VIES.Timeout <= 0 {
		return fmt.Errorf("VIES_TIMEOUT must be positive")
	}
	if c.Server.IsProduction() && c.Server.AdminSigningKey == "dev-secret-key-change-in-production" {
		return fmt.Errorf("ADMIN_SIGNING_KEY must be set in production")
	}
	return nil
}

// parseExchangeRates reads "EUR:1,GBP:0.85" pairs. Rates are relative to a
// common base currency.
func parseExchangeRates(raw string) (map[string]decimal.Decimal, error) {
	rates := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		code, value, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("invalid EXCHANGE_RATES entry %q", pair)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid EXCHANGE_RATES rate for %s: %w", code, err)
		}
		rates[strings.ToUpper(strings.TrimSpace(code))] = rate
	}
	return rates, nil
}

// parseTrustedProxies accepts CIDRs and bare addresses.
func parseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, entry := range entries {
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", entry, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q: %w", entry, err)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	return platformstrings.DedupeAndTrim(strings.Split(raw, ","))
}

func getCodes(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	return platformstrings.UpperCodes(strings.Split(raw, ","))
}
