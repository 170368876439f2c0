package pricing

import "lpgpos/internal/domain"

// CylinderSpec is the catalog reference for one cylinder size.
type CylinderSpec struct {
	Size          string `json:"size" toml:"size"`
	PriceCents    int64  `json:"price_cents" toml:"price_cents"`
	CapacityGrams int64  `json:"capacity_grams" toml:"capacity_grams"`
}

// Tariff holds the fixed constants the sale modes are priced with.
type Tariff struct {
	Cylinders                   map[string]CylinderSpec
	BulkMinimumCents            map[domain.ContainerType]int64
	ConditionMultiplierBps      map[domain.ExchangeCondition]int64
	ExchangeFeeCents            int64
	RefillPricePerKgCents       int64
	CustomWeightPricePerKgCents int64
	CustomWeightMaxGrams        int64
	ContainerFeesCents          map[string]int64
}

const (
	ContainerCustomerSupplied = "customer_supplied"

	bpsScale = 10000
)

func DefaultTariff() Tariff {
	return Tariff{
		Cylinders: map[string]CylinderSpec{
			"3kg":    {Size: "3kg", PriceCents: 350000, CapacityGrams: 3000},
			"5kg":    {Size: "5kg", PriceCents: 550000, CapacityGrams: 5000},
			"6.25kg": {Size: "6.25kg", PriceCents: 680000, CapacityGrams: 6250},
			"12.5kg": {Size: "12.5kg", PriceCents: 1250000, CapacityGrams: 12500},
			"25kg":   {Size: "25kg", PriceCents: 2400000, CapacityGrams: 25000},
			"50kg":   {Size: "50kg", PriceCents: 4600000, CapacityGrams: 50000},
		},
		BulkMinimumCents: map[domain.ContainerType]int64{
			domain.ContainerCustomerTank: 500000,
			domain.ContainerTruck:        5000000,
			domain.ContainerCylinderBulk: 200000,
		},
		ConditionMultiplierBps: map[domain.ExchangeCondition]int64{
			domain.ConditionEmpty:   10000,
			domain.ConditionPartial: 8000,
			domain.ConditionDamaged: 6000,
		},
		ExchangeFeeCents:            50000,
		RefillPricePerKgCents:       80000,
		CustomWeightPricePerKgCents: 95000,
		CustomWeightMaxGrams:        50000,
		ContainerFeesCents: map[string]int64{
			ContainerCustomerSupplied: 0,
			"new_3kg_cylinder":        850000,
			"new_6kg_cylinder":        1500000,
			"new_12kg_cylinder":       2500000,
		},
	}
}

func (t Tariff) Cylinder(size string) (CylinderSpec, bool) {
	spec, ok := t.Cylinders[size]
	return spec, ok
}

func (t Tariff) BulkMinimum(container domain.ContainerType) (int64, bool) {
	minimum, ok := t.BulkMinimumCents[container]
	return minimum, ok
}

func (t Tariff) ContainerFee(option string) (int64, bool) {
	fee, ok := t.ContainerFeesCents[option]
	return fee, ok
}
