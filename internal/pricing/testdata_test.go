package pricing

import "lpgpos/internal/domain"

func floatPtr(v float64) *float64 { return &v }

// bulkLPG mirrors the shop's bulk product: five volume bands priced per kg.
func bulkLPG() domain.Product {
	return domain.Product{
		ID:               "bulk-lpg",
		Name:             "Bulk LPG",
		Category:         domain.CategoryBulkLPG,
		BasePriceCents:   95000,
		Unit:             "kg",
		RequiresWeighing: true,
		Active:           true,
		PricingTiers: []domain.PricingTier{
			{MinQuantity: 1, MaxQuantity: floatPtr(49), PricePerUnitCents: 95000},
			{MinQuantity: 50, MaxQuantity: floatPtr(99), PricePerUnitCents: 92000},
			{MinQuantity: 100, MaxQuantity: floatPtr(199), PricePerUnitCents: 90000},
			{MinQuantity: 200, MaxQuantity: floatPtr(499), PricePerUnitCents: 88000},
			{MinQuantity: 500, PricePerUnitCents: 85000},
		},
	}
}
