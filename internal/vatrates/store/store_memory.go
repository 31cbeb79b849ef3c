// Package store caches the normalized rates table.
package store

import (
	"context"
	"sync"
	"time"

	"euvat/internal/vatrates"
	"euvat/pkg/platform/sentinel"
)

// InMemoryCache holds the table for a single instance.
type InMemoryCache struct {
	mu        sync.RWMutex
	table     vatrates.Table
	expiresAt time.Time
	now       func() time.Time
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{now: time.Now}
}

func (c *InMemoryCache) Get(_ context.Context) (vatrates.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.table.Rates == nil || !c.now().Before(c.expiresAt) {
		return vatrates.Table{}, sentinel.ErrNotFound
	}
	return c.table, nil
}

func (c *InMemoryCache) Set(_ context.Context, table vatrates.Table, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table = table
	c.expiresAt = c.now().Add(ttl)
	return nil
}
