package pos

import (
	"lpgpos/internal/domain"
	"lpgpos/internal/pricing"
)

// Forms carry weights exactly as typed (kilograms, free text). Unreadable
// values count as zero; gates decide whether the result is sellable.

type BulkSaleForm struct {
	ProductID     string               `json:"product_id"`
	ContainerType domain.ContainerType `json:"container_type" validate:"required"`
	Mode          pricing.WeighMode    `json:"mode" validate:"required,oneof=weighing direct"`
	TareWeight    string               `json:"tare_weight"`
	GrossWeight   string               `json:"gross_weight"`
	NetWeight     string               `json:"net_weight"`
}

type ExchangeForm struct {
	ReturnedSize      string                   `json:"returned_size" validate:"required"`
	ReturnedCondition domain.ExchangeCondition `json:"returned_condition" validate:"required"`
	NewSize           string                   `json:"new_size" validate:"required"`
	Quantity          int                      `json:"quantity" validate:"gte=1,lte=9999"`
}

type RefillForm struct {
	CylinderType      string                   `json:"cylinder_type" validate:"required"`
	CylinderCondition domain.CylinderCondition `json:"cylinder_condition" validate:"required"`
	EmptyWeight       string                   `json:"empty_weight"`
	FilledWeight      string                   `json:"filled_weight"`
	SafetyCheck       bool                     `json:"safety_check"`
	ValveCheck        bool                     `json:"valve_check"`
	LeakTest          bool                     `json:"leak_test"`
}

type CustomWeightForm struct {
	Weight          string `json:"weight"`
	ContainerOption string `json:"container_option"`
}

// QuoteBulk prices a bulk form without committing it.
func QuoteBulk(product domain.Product, tariff pricing.Tariff, form BulkSaleForm) domain.BulkSaleDetails {
	net := pricing.ResolveNetWeight(form.Mode, form.TareWeight, form.GrossWeight, form.NetWeight)
	details := pricing.QuoteBulk(product, tariff, form.ContainerType, net)
	if form.Mode == pricing.WeighModeWeighing {
		tare := pricing.ParseGrams(form.TareWeight)
		gross := pricing.ParseGrams(form.GrossWeight)
		details.TareWeightGrams = &tare
		details.GrossWeightGrams = &gross
	}
	return details
}

func QuoteExchange(tariff pricing.Tariff, form ExchangeForm) domain.ExchangeDetails {
	return pricing.QuoteExchange(tariff, form.ReturnedSize, form.ReturnedCondition, form.NewSize, form.Quantity)
}

func QuoteRefill(tariff pricing.Tariff, form RefillForm) domain.RefillDetails {
	return pricing.QuoteRefill(
		tariff,
		form.CylinderType,
		form.CylinderCondition,
		pricing.ParseGrams(form.EmptyWeight),
		pricing.ParseGrams(form.FilledWeight),
		pricing.RefillChecks{Safety: form.SafetyCheck, Valve: form.ValveCheck, Leak: form.LeakTest},
	)
}

func QuoteCustomWeight(tariff pricing.Tariff, form CustomWeightForm) domain.CustomWeightDetails {
	return pricing.QuoteCustomWeight(tariff, pricing.ParseGrams(form.Weight), form.ContainerOption)
}

func checkBulkSale(product domain.Product, tariff pricing.Tariff, details domain.BulkSaleDetails) error {
	if !product.Active || product.Category != domain.CategoryBulkLPG {
		return domain.ErrProductNotSellable
	}
	return pricing.CheckBulk(tariff, details)
}
