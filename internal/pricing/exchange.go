package pricing

import "lpgpos/internal/domain"

// QuoteExchange prices swapping one returned cylinder for quantity new ones.
// Unknown sizes and conditions are worth zero, and so are new cylinders when
// quantity is outside 1..domain.MaxLineQuantity; CheckExchange rejects all of
// them.
func QuoteExchange(tariff Tariff, returnedSize string, condition domain.ExchangeCondition, newSize string, quantity int) domain.ExchangeDetails {
	if quantity < 0 {
		quantity = 0
	}
	returned, _ := tariff.Cylinder(returnedSize)
	replacement, _ := tariff.Cylinder(newSize)
	multiplier := tariff.ConditionMultiplierBps[condition]

	priced := int64(quantity)
	if quantity > domain.MaxLineQuantity {
		priced = 0
	}
	credit := ApplyBps(returned.PriceCents, multiplier)
	newCost := replacement.PriceCents * priced
	fee := tariff.ExchangeFeeCents

	additional := maxInt64(0, newCost-credit+fee)
	refund := maxInt64(0, credit-newCost-fee)

	return domain.ExchangeDetails{
		ReturnedSize:           returnedSize,
		ReturnedCondition:      condition,
		NewSize:                newSize,
		Quantity:               quantity,
		ExchangeCreditCents:    credit,
		NewCylindersCostCents:  newCost,
		ExchangeFeeCents:       fee,
		AdditionalPaymentCents: additional,
		RefundCents:            refund,
		NetAmountCents:         additional - refund,
	}
}

func CheckExchange(tariff Tariff, details domain.ExchangeDetails) error {
	if _, ok := tariff.Cylinder(details.ReturnedSize); !ok {
		return domain.ErrUnknownCylinderSize
	}
	if _, ok := tariff.Cylinder(details.NewSize); !ok {
		return domain.ErrUnknownCylinderSize
	}
	if _, ok := tariff.ConditionMultiplierBps[details.ReturnedCondition]; !ok {
		return domain.ErrUnknownCondition
	}
	if details.Quantity < 1 || details.Quantity > domain.MaxLineQuantity {
		return domain.ErrInvalidQuantity
	}
	return nil
}
