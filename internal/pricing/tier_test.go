package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpgpos/internal/domain"
)

func TestSelectTierPicksGreatestQualifyingMinimum(t *testing.T) {
	product := bulkLPG()

	cases := []struct {
		quantity float64
		want     int64
	}{
		{quantity: 1, want: 95000},
		{quantity: 49.999, want: 95000},
		{quantity: 50, want: 92000},
		{quantity: 75, want: 92000},
		{quantity: 199, want: 90000},
		{quantity: 200, want: 88000},
		{quantity: 10000, want: 85000},
	}
	for _, tc := range cases {
		tier, ok := SelectTier(product.PricingTiers, tc.quantity)
		require.True(t, ok, "quantity %v", tc.quantity)
		assert.Equal(t, tc.want, tier.PricePerUnitCents, "quantity %v", tc.quantity)
		assert.LessOrEqual(t, tier.MinQuantity, tc.quantity)
	}
}

func TestSelectTierFallsBackToBasePrice(t *testing.T) {
	product := bulkLPG()
	product.BasePriceCents = 99000

	_, ok := SelectTier(product.PricingTiers, 0.5)
	assert.False(t, ok)
	assert.Equal(t, int64(99000), UnitPriceCents(product, 0.5))
	assert.Equal(t, int64(99000), UnitPriceCents(product, math.NaN()))

	product.PricingTiers = nil
	assert.Equal(t, int64(99000), UnitPriceCents(product, 300))
}

func TestSelectTierDuplicateMinimumLastWins(t *testing.T) {
	tiers := []domain.PricingTier{
		{MinQuantity: 1, PricePerUnitCents: 100},
		{MinQuantity: 10, PricePerUnitCents: 90},
		{MinQuantity: 10, PricePerUnitCents: 80},
	}

	for i := 0; i < 3; i++ {
		tier, ok := SelectTier(tiers, 12)
		require.True(t, ok)
		assert.Equal(t, int64(80), tier.PricePerUnitCents)
	}
}

func TestSelectTierToleratesUnsortedTable(t *testing.T) {
	tiers := []domain.PricingTier{
		{MinQuantity: 100, PricePerUnitCents: 70},
		{MinQuantity: 1, PricePerUnitCents: 100},
		{MinQuantity: 50, PricePerUnitCents: 85},
	}

	tier, ok := SelectTier(tiers, 60)
	require.True(t, ok)
	assert.Equal(t, int64(85), tier.PricePerUnitCents)
}
