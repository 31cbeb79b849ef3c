//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"euvat/internal/vatrates"
	"euvat/internal/vatrates/store"
	"euvat/pkg/platform/sentinel"
	"euvat/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	cache *store.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.cache = store.NewRedisCache(containers.StartRedis(s.T()))
}

func (s *RedisCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	_, err := s.cache.Get(ctx)
	s.ErrorIs(err, sentinel.ErrNotFound)

	rate := decimal.RequireFromString("25.5")
	table := vatrates.Table{LastUpdated: "2024-01-01", Rates: map[string]vatrates.Rates{
		"FI": {Country: "Finland", StandardRate: &rate},
	}}
	s.Require().NoError(s.cache.Set(ctx, table, time.Minute))

	got, err := s.cache.Get(ctx)
	s.Require().NoError(err)
	s.Equal("2024-01-01", got.LastUpdated)
	s.True(rate.Equal(*got.Rates["FI"].StandardRate))
	s.Nil(got.Rates["FI"].ParkingRate)
}
