package pricing

import "lpgpos/internal/domain"

// RefillChecks are the attendant's pre-fill inspections.
type RefillChecks struct {
	Safety bool `json:"safety_check"`
	Valve  bool `json:"valve_check"`
	Leak   bool `json:"leak_test"`
}

func (c RefillChecks) Passed() bool {
	return c.Safety && c.Valve && c.Leak
}

// QuoteRefill prices a refill at the flat per-kilogram rate. The quote is
// produced even when CheckRefill would refuse it so the till can display it.
func QuoteRefill(tariff Tariff, cylinderType string, condition domain.CylinderCondition, emptyGrams, filledGrams int64, checks RefillChecks) domain.RefillDetails {
	spec, _ := tariff.Cylinder(cylinderType)
	gas := maxInt64(0, filledGrams-emptyGrams)

	return domain.RefillDetails{
		CylinderType:          cylinderType,
		CylinderCapacityGrams: spec.CapacityGrams,
		CylinderCondition:     condition,
		EmptyWeightGrams:      emptyGrams,
		FilledWeightGrams:     filledGrams,
		GasWeightGrams:        gas,
		PricePerKgCents:       tariff.RefillPricePerKgCents,
		TotalPriceCents:       PerKilogram(gas, tariff.RefillPricePerKgCents),
		SafetyCheck:           checks.Safety,
		ValveCheck:            checks.Valve,
		LeakTest:              checks.Leak,
	}
}

// CheckRefill returns the first gate the refill fails. Overfilling is checked
// before the inspections so it is reported whatever their state.
func CheckRefill(tariff Tariff, details domain.RefillDetails) error {
	if _, ok := tariff.Cylinder(details.CylinderType); !ok {
		return domain.ErrUnknownCylinderSize
	}
	if details.GasWeightGrams > details.CylinderCapacityGrams {
		return domain.ErrRefillOverCapacity
	}
	switch details.CylinderCondition {
	case domain.CylinderNeedsInspection:
		return domain.ErrNeedsInspection
	case domain.CylinderGood, domain.CylinderFair:
	default:
		return domain.ErrUnknownCondition
	}
	checks := RefillChecks{Safety: details.SafetyCheck, Valve: details.ValveCheck, Leak: details.LeakTest}
	if !checks.Passed() {
		return domain.ErrRefillSafetyCheck
	}
	if details.GasWeightGrams <= 0 {
		return domain.ErrRefillNoGas
	}
	return nil
}
