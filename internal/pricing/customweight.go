package pricing

import "lpgpos/internal/domain"

func QuoteCustomWeight(tariff Tariff, weightGrams int64, containerOption string) domain.CustomWeightDetails {
	weightGrams = maxInt64(0, weightGrams)
	lpgCost := PerKilogram(weightGrams, tariff.CustomWeightPricePerKgCents)
	containerCost, _ := tariff.ContainerFee(containerOption)

	return domain.CustomWeightDetails{
		WeightGrams:        weightGrams,
		PricePerKgCents:    tariff.CustomWeightPricePerKgCents,
		LPGCostCents:       lpgCost,
		ContainerOption:    containerOption,
		ContainerCostCents: containerCost,
		TotalPriceCents:    lpgCost + containerCost,
	}
}

// CheckCustomWeight enforces 0 < weight <= ceiling and a known container.
func CheckCustomWeight(tariff Tariff, details domain.CustomWeightDetails) error {
	if details.WeightGrams <= 0 || details.WeightGrams > tariff.CustomWeightMaxGrams {
		return domain.ErrCustomWeightRange
	}
	if details.ContainerOption == "" {
		return domain.ErrContainerRequired
	}
	if _, ok := tariff.ContainerFee(details.ContainerOption); !ok {
		return domain.ErrUnknownContainer
	}
	return nil
}
