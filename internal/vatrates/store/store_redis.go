package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"euvat/internal/vatrates"
	"euvat/pkg/platform/sentinel"
)

const ratesKey = "euvat:vatrates:table"

// RedisCache shares the table between instances.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context) (vatrates.Table, error) {
	raw, err := c.client.Get(ctx, ratesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return vatrates.Table{}, sentinel.ErrNotFound
	}
	if err != nil {
		return vatrates.Table{}, fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	var table vatrates.Table
	if err := json.Unmarshal(raw, &table); err != nil {
		return vatrates.Table{}, fmt.Errorf("%w: %v", sentinel.ErrBadData, err)
	}
	return table, nil
}

func (c *RedisCache) Set(ctx context.Context, table vatrates.Table, ttl time.Duration) error {
	payload, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("marshal rates: %w", err)
	}
	return c.client.Set(ctx, ratesKey, payload, ttl).Err()
}
