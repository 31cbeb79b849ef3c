package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"euvat/internal/vatrates"
	"euvat/pkg/platform/sentinel"
)

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewInMemoryCache()
	c.now = func() time.Time { return now }

	_, err := c.Get(ctx)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	table := vatrates.Table{Rates: map[string]vatrates.Rates{"AT": {Country: "Austria"}}}
	require.NoError(t, c.Set(ctx, table, 2*time.Hour))

	got, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Austria", got.Rates["AT"].Country)

	now = now.Add(2 * time.Hour)
	_, err = c.Get(ctx)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
