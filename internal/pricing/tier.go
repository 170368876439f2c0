package pricing

import "lpgpos/internal/domain"

// SelectTier returns the tier with the greatest MinQuantity not above
// quantity. Ties on MinQuantity resolve to the later tier in table order.
func SelectTier(tiers []domain.PricingTier, quantity float64) (domain.PricingTier, bool) {
	var (
		selected domain.PricingTier
		found    bool
	)
	for _, tier := range tiers {
		if tier.MinQuantity > quantity {
			continue
		}
		if !found || tier.MinQuantity >= selected.MinQuantity {
			selected = tier
			found = true
		}
	}
	return selected, found
}

// UnitPriceCents is the per-unit price of product at quantity, falling back to
// the base price when no tier qualifies.
func UnitPriceCents(product domain.Product, quantity float64) int64 {
	if tier, ok := SelectTier(product.PricingTiers, quantity); ok {
		return tier.PricePerUnitCents
	}
	return product.BasePriceCents
}
