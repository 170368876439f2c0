package catalog

import (
	"sort"

	"lpgpos/internal/domain"
	"lpgpos/internal/pricing"
)

const BulkLPGProductID = "bulk-lpg"

// CylinderProductID is the catalog id of the refilled cylinder of a size.
func CylinderProductID(size string) string {
	return "cyl-" + size
}

func maxQty(v float64) *float64 { return &v }

// Default is the built-in catalog used when no catalog file is configured.
func Default() Catalog {
	tariff := pricing.DefaultTariff()

	sizes := make([]pricing.CylinderSpec, 0, len(tariff.Cylinders))
	for _, spec := range tariff.Cylinders {
		sizes = append(sizes, spec)
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i].CapacityGrams < sizes[j].CapacityGrams })

	products := make([]domain.Product, 0, len(sizes)+6)
	for _, spec := range sizes {
		products = append(products, domain.Product{
			ID:               CylinderProductID(spec.Size),
			Name:             "LPG cylinder " + spec.Size,
			Category:         domain.CategoryCylinder,
			BasePriceCents:   spec.PriceCents,
			Unit:             "cylinder",
			StockLevel:       40,
			ReorderThreshold: 10,
			AllowsExchange:   true,
			CylinderSize:     spec.Size,
			Active:           true,
		})
	}

	products = append(products,
		domain.Product{
			ID:               BulkLPGProductID,
			Name:             "Bulk LPG",
			Category:         domain.CategoryBulkLPG,
			BasePriceCents:   95000,
			Unit:             "kg",
			StockLevel:       20000,
			ReorderThreshold: 2000,
			RequiresWeighing: true,
			Active:           true,
			PricingTiers: []domain.PricingTier{
				{MinQuantity: 1, MaxQuantity: maxQty(49), PricePerUnitCents: 95000},
				{MinQuantity: 50, MaxQuantity: maxQty(99), PricePerUnitCents: 92000},
				{MinQuantity: 100, MaxQuantity: maxQty(199), PricePerUnitCents: 90000},
				{MinQuantity: 200, MaxQuantity: maxQty(499), PricePerUnitCents: 88000},
				{MinQuantity: 500, PricePerUnitCents: 85000},
			},
		},
		domain.Product{
			ID:               "acc-regulator",
			Name:             "Low pressure regulator",
			Category:         domain.CategoryAccessory,
			BasePriceCents:   45000,
			Unit:             "pcs",
			StockLevel:       25,
			ReorderThreshold: 5,
			Active:           true,
			PricingTiers: []domain.PricingTier{
				{MinQuantity: 1, MaxQuantity: maxQty(4), PricePerUnitCents: 45000},
				{MinQuantity: 5, PricePerUnitCents: 40000},
			},
		},
		domain.Product{ID: "acc-hose", Name: "Gas hose 1.5m", Category: domain.CategoryAccessory, BasePriceCents: 12000, Unit: "pcs", StockLevel: 60, ReorderThreshold: 10, Active: true},
		domain.Product{ID: "safe-detector", Name: "Gas leak detector", Category: domain.CategorySafetyItem, BasePriceCents: 185000, Unit: "pcs", StockLevel: 8, ReorderThreshold: 3, Active: true},
		domain.Product{ID: "safe-extinguisher", Name: "Fire extinguisher 2kg", Category: domain.CategorySafetyItem, BasePriceCents: 320000, Unit: "pcs", StockLevel: 6, ReorderThreshold: 2, Active: true},
		domain.Product{ID: "svc-inspection", Name: "Cylinder inspection", Category: domain.CategoryService, BasePriceCents: 25000, Unit: "service", Active: true},
	)

	return Catalog{Products: products, Tariff: tariff}
}
