package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpgpos/internal/domain"
)

func newTestCache(t *testing.T) (*RedisProductCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	c := NewRedisProductCache(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisProductCacheRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Ping(ctx))

	_, ok, err := c.Get(ctx, "main-store", "bulk-lpg")
	require.NoError(t, err)
	assert.False(t, ok)

	upTo := 49.0
	product := domain.Product{
		ID:             "bulk-lpg",
		Name:           "Bulk LPG",
		Category:       domain.CategoryBulkLPG,
		BasePriceCents: 95000,
		Active:         true,
		PricingTiers:   []domain.PricingTier{{MinQuantity: 1, MaxQuantity: &upTo, PricePerUnitCents: 95000}},
	}
	require.NoError(t, c.Set(ctx, "main-store", product, time.Minute))
	assert.True(t, mr.Exists("lpgpos:product:main-store:bulk-lpg"))

	got, ok, err := c.Get(ctx, "main-store", "bulk-lpg")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, product, *got)

	_, ok, err = c.Get(ctx, "other-store", "bulk-lpg")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisProductCacheExpiryAndInvalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "s", domain.Product{ID: "acc-hose"}, time.Minute))
	mr.FastForward(2 * time.Minute)
	_, ok, err := c.Get(ctx, "s", "acc-hose")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "s", domain.Product{ID: "acc-hose"}, time.Minute))
	require.NoError(t, c.Invalidate(ctx, "s", "acc-hose"))
	_, ok, err = c.Get(ctx, "s", "acc-hose")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisProductCacheCorruptEntry(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set("lpgpos:product:s:x", "{not json"))

	_, _, err := c.Get(context.Background(), "s", "x")
	assert.Error(t, err)
}
