package vatrates

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	dErrors "euvat/pkg/domain-errors"
	"euvat/pkg/platform/sentinel"
)

// Fetcher downloads a fresh table.
type Fetcher interface {
	Fetch(ctx context.Context) (Table, error)
}

// Cache keeps the last valid table.
type Cache interface {
	Get(ctx context.Context) (Table, error)
	Set(ctx context.Context, table Table, ttl time.Duration) error
}

// Service serves the rates table, fetching at most once per cache lifetime.
type Service struct {
	fetcher Fetcher
	cache   Cache
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(fetcher Fetcher, cache Cache, ttl time.Duration, opts ...Option) (*Service, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if cache == nil {
		return nil, errors.New("cache is required")
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	s := &Service{fetcher: fetcher, cache: cache, ttl: ttl, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Rates returns the cached table or fetches a new one.
func (s *Service) Rates(ctx context.Context) (Table, error) {
	table, err := s.cache.Get(ctx)
	if err == nil {
		return table, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "rates cache read failed", "error", err)
	}

	v, err, _ := s.group.Do("rates", func() (any, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return Table{}, err
	}
	return v.(Table), nil
}

func (s *Service) refresh(ctx context.Context) (Table, error) {
	table, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "could not fetch EU VAT rates", "error", err)
		return Table{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "EU VAT rates are unavailable")
	}
	if !table.Valid() {
		s.logger.WarnContext(ctx, "EU VAT rates failed validation, not caching", "countries", len(table.Rates))
		return table, nil
	}
	if err := s.cache.Set(ctx, table, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "rates cache write failed", "error", err)
	}
	return table, nil
}
