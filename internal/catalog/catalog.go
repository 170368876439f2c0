// Package catalog loads the product list and tariff the till prices from.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"

	"lpgpos/internal/domain"
	"lpgpos/internal/pricing"
)

var (
	// ErrTierOverlap means two tiers cover the same quantity.
	ErrTierOverlap = errors.New("pricing tiers overlap")
	// ErrTierPriceIncrease means a larger tier is priced above a smaller one.
	ErrTierPriceIncrease = errors.New("pricing tier price increases with quantity")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrDuplicateProduct  = errors.New("duplicate product id")
	ErrUnknownCylinder   = errors.New("cylinder size missing from tariff")
)

type Catalog struct {
	Products []domain.Product
	Tariff   pricing.Tariff
}

// Product looks up an entry by id.
func (c Catalog) Product(id string) (domain.Product, bool) {
	for _, product := range c.Products {
		if product.ID == id {
			return product, true
		}
	}
	return domain.Product{}, false
}

type tariffFile struct {
	ExchangeFeeCents            int64            `toml:"exchange_fee_cents"`
	RefillPricePerKgCents       int64            `toml:"refill_price_per_kg_cents"`
	CustomWeightPricePerKgCents int64            `toml:"custom_weight_price_per_kg_cents"`
	CustomWeightMaxGrams        int64            `toml:"custom_weight_max_grams"`
	BulkMinimumCents            map[string]int64 `toml:"bulk_minimum_cents"`
	ConditionMultiplierBps      map[string]int64 `toml:"condition_multiplier_bps"`
	ContainerFeesCents          map[string]int64 `toml:"container_fees_cents"`
}

type catalogFile struct {
	Tariff    tariffFile             `toml:"tariff"`
	Cylinders []pricing.CylinderSpec `toml:"cylinders"`
	Products  []domain.Product       `toml:"products"`
}

// Load reads a TOML catalog. Tariff values the file leaves out keep their
// defaults; a non-empty product list replaces the default products.
func Load(path string) (Catalog, error) {
	var raw catalogFile
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog %s: %w", path, err)
	}

	base := Default()
	cat := Catalog{
		Tariff:   mergeTariff(base.Tariff, raw),
		Products: base.Products,
	}
	if len(raw.Products) > 0 {
		cat.Products = raw.Products
	}
	if err := Normalize(&cat); err != nil {
		return Catalog{}, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

func mergeTariff(t pricing.Tariff, raw catalogFile) pricing.Tariff {
	if raw.Tariff.ExchangeFeeCents > 0 {
		t.ExchangeFeeCents = raw.Tariff.ExchangeFeeCents
	}
	if raw.Tariff.RefillPricePerKgCents > 0 {
		t.RefillPricePerKgCents = raw.Tariff.RefillPricePerKgCents
	}
	if raw.Tariff.CustomWeightPricePerKgCents > 0 {
		t.CustomWeightPricePerKgCents = raw.Tariff.CustomWeightPricePerKgCents
	}
	if raw.Tariff.CustomWeightMaxGrams > 0 {
		t.CustomWeightMaxGrams = raw.Tariff.CustomWeightMaxGrams
	}
	for container, minimum := range raw.Tariff.BulkMinimumCents {
		t.BulkMinimumCents[domain.ContainerType(container)] = minimum
	}
	for condition, bps := range raw.Tariff.ConditionMultiplierBps {
		t.ConditionMultiplierBps[domain.ExchangeCondition(condition)] = bps
	}
	for option, fee := range raw.Tariff.ContainerFeesCents {
		t.ContainerFeesCents[option] = fee
	}
	for _, spec := range raw.Cylinders {
		t.Cylinders[spec.Size] = spec
	}
	return t
}

// Normalize sorts every tier table and validates the catalog in place.
func Normalize(cat *Catalog) error {
	seen := make(map[string]struct{}, len(cat.Products))
	for i := range cat.Products {
		product := &cat.Products[i]
		if product.ID == "" || product.Name == "" || !product.Category.Valid() || product.BasePriceCents < 0 {
			return fmt.Errorf("%w: %q", ErrInvalidProduct, product.ID)
		}
		if _, dup := seen[product.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateProduct, product.ID)
		}
		seen[product.ID] = struct{}{}

		if product.CylinderSize != "" {
			if _, ok := cat.Tariff.Cylinder(product.CylinderSize); !ok {
				return fmt.Errorf("%w: %s (%s)", ErrUnknownCylinder, product.CylinderSize, product.ID)
			}
		}

		SortTiers(product.PricingTiers)
		if err := ValidateTiers(product.PricingTiers); err != nil {
			return fmt.Errorf("product %s: %w", product.ID, err)
		}
	}
	return nil
}

// SortTiers orders tiers by MinQuantity, keeping table order for equal keys.
func SortTiers(tiers []domain.PricingTier) {
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].MinQuantity < tiers[j].MinQuantity
	})
}

// ValidateTiers expects tiers sorted by MinQuantity.
func ValidateTiers(tiers []domain.PricingTier) error {
	for i, tier := range tiers {
		if tier.MinQuantity < 0 || tier.PricePerUnitCents <= 0 {
			return fmt.Errorf("tier %d: min %v price %d: %w", i, tier.MinQuantity, tier.PricePerUnitCents, ErrInvalidProduct)
		}
		if tier.MaxQuantity != nil && *tier.MaxQuantity < tier.MinQuantity {
			return fmt.Errorf("tier %d: max below min: %w", i, ErrTierOverlap)
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if tier.MinQuantity == prev.MinQuantity {
			return fmt.Errorf("tier %d: duplicate min %v: %w", i, tier.MinQuantity, ErrTierOverlap)
		}
		if prev.MaxQuantity != nil && tier.MinQuantity <= *prev.MaxQuantity {
			return fmt.Errorf("tier %d: starts at %v inside previous tier: %w", i, tier.MinQuantity, ErrTierOverlap)
		}
		if tier.PricePerUnitCents > prev.PricePerUnitCents {
			return fmt.Errorf("tier %d: %w", i, ErrTierPriceIncrease)
		}
	}
	return nil
}
