package location

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/oschwald/geoip2-golang"

	"euvat/pkg/domain"
	"euvat/pkg/requestcontext"
)

// Resolver derives the customer's country from the request. An empty code
// means the country could not be determined.
type Resolver interface {
	Resolve(ctx context.Context, r *http.Request) domain.CountryCode
}

// HeaderResolver trusts a country header set by the CDN or load balancer,
// for example CF-IPCountry.
type HeaderResolver struct {
	Header string
}

func (h HeaderResolver) Resolve(_ context.Context, r *http.Request) domain.CountryCode {
	if h.Header == "" {
		return ""
	}
	return domain.ParseCountryCode(r.Header.Get(h.Header))
}

type countryReader interface {
	Country(ip net.IP) (*geoip2.Country, error)
}

// MaxMindResolver looks up the client IP in a GeoLite2/GeoIP2 country database.
type MaxMindResolver struct {
	reader countryReader
	closer func() error
	logger *slog.Logger
}

// OpenMaxMind opens the database at path.
func OpenMaxMind(path string, logger *slog.Logger) (*MaxMindResolver, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &MaxMindResolver{reader: reader, closer: reader.Close, logger: logger}, nil
}

func (m *MaxMindResolver) Resolve(ctx context.Context, r *http.Request) domain.CountryCode {
	raw := requestcontext.ClientIP(ctx)
	ip := net.ParseIP(raw)
	if ip == nil {
		return ""
	}
	record, err := m.reader.Country(ip)
	if err != nil {
		if m.logger != nil {
			m.logger.WarnContext(ctx, "geoip lookup failed", "ip", raw, "error", err)
		}
		return ""
	}
	return domain.ParseCountryCode(record.Country.IsoCode)
}

func (m *MaxMindResolver) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer()
}

// ChainResolver returns the first non-empty answer.
type ChainResolver []Resolver

func (c ChainResolver) Resolve(ctx context.Context, r *http.Request) domain.CountryCode {
	for _, res := range c {
		if res == nil {
			continue
		}
		if code := res.Resolve(ctx, r); code != "" {
			return code
		}
	}
	return ""
}
