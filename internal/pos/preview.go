package pos

import (
	"errors"

	"lpgpos/internal/domain"
	"lpgpos/internal/pricing"
)

// Quote is a priced sale-mode form together with the verdict its commit
// would get. It backs the dialog previews and the offline CLI.
type Quote struct {
	Type        domain.TransactionType `json:"transaction_type"`
	Details     domain.ModeDetails     `json:"details"`
	AmountCents int64                  `json:"amount_cents"`
	Allowed     bool                   `json:"allowed"`
	Rejection   *domain.Rejection      `json:"rejection,omitempty"`
}

func newQuote(details domain.ModeDetails, amountCents int64, err error) Quote {
	q := Quote{Type: details.Type(), Details: details, AmountCents: amountCents, Allowed: err == nil}
	var rejection *domain.Rejection
	if errors.As(err, &rejection) {
		q.Rejection = rejection
	}
	return q
}

func PreviewBulkSale(product domain.Product, tariff pricing.Tariff, form BulkSaleForm) Quote {
	details := QuoteBulk(product, tariff, form)
	return newQuote(details, details.TotalCents, checkBulkSale(product, tariff, details))
}

func PreviewExchange(tariff pricing.Tariff, form ExchangeForm) Quote {
	details := QuoteExchange(tariff, form)
	return newQuote(details, details.NetAmountCents, pricing.CheckExchange(tariff, details))
}

func PreviewRefill(tariff pricing.Tariff, form RefillForm) Quote {
	details := QuoteRefill(tariff, form)
	return newQuote(details, details.TotalPriceCents, pricing.CheckRefill(tariff, details))
}

func PreviewCustomWeight(tariff pricing.Tariff, form CustomWeightForm) Quote {
	details := QuoteCustomWeight(tariff, form)
	return newQuote(details, details.TotalPriceCents, pricing.CheckCustomWeight(tariff, details))
}
