package pricing

import "lpgpos/internal/domain"

// QuoteBulk prices a weighed bulk LPG sale. The container minimum is a floor
// on the total; MinimumApplied is only set when the floor actually raised it.
func QuoteBulk(product domain.Product, tariff Tariff, container domain.ContainerType, netGrams int64) domain.BulkSaleDetails {
	netGrams = maxInt64(0, netGrams)
	pricePerKg := UnitPriceCents(product, GramsToKilograms(netGrams))
	subtotal := PerKilogram(netGrams, pricePerKg)
	minimum, _ := tariff.BulkMinimum(container)

	return domain.BulkSaleDetails{
		ContainerType:      container,
		NetWeightGrams:     netGrams,
		PricePerKgCents:    pricePerKg,
		MinimumChargeCents: minimum,
		SubtotalCents:      subtotal,
		TotalCents:         maxInt64(subtotal, minimum),
		MinimumApplied:     minimum > subtotal,
	}
}

// CheckBulk reports why a bulk quote cannot be committed.
func CheckBulk(tariff Tariff, details domain.BulkSaleDetails) error {
	if _, ok := tariff.BulkMinimum(details.ContainerType); !ok {
		return domain.ErrUnknownContainer
	}
	if details.NetWeightGrams <= 0 {
		return domain.ErrZeroNetWeight
	}
	return nil
}
