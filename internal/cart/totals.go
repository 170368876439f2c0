package cart

import (
	"math"

	"lpgpos/internal/domain"
)

// TaxFunc computes tax on a subtotal. It is a hook so tax rules can change
// without touching the aggregator.
type TaxFunc func(subtotalCents int64) int64

func ZeroTax(int64) int64 { return 0 }

// RateTax taxes the subtotal at percent, rounded to the cent.
func RateTax(percent float64) TaxFunc {
	if percent <= 0 || math.IsNaN(percent) || math.IsInf(percent, 0) {
		return ZeroTax
	}
	return func(subtotalCents int64) int64 {
		return int64(math.Round(float64(subtotalCents) * percent / 100))
	}
}

// Recompute derives subtotal, tax and total from the lines. The discount is
// clamped into [0, subtotal] so the total cannot go below the tax.
func Recompute(tx domain.Transaction, tax TaxFunc) domain.Transaction {
	if tax == nil {
		tax = ZeroTax
	}

	var subtotal int64
	for _, line := range tx.Items {
		subtotal += line.LineTotalCents
	}

	tx.SubtotalCents = subtotal
	tx.TaxCents = tax(subtotal)
	tx.DiscountCents = clamp(tx.DiscountCents, 0, maxInt64(0, subtotal))
	tx.TotalCents = tx.SubtotalCents + tx.TaxCents - tx.DiscountCents
	return tx
}

// Stamp records the most recent sale-mode action on the transaction.
func Stamp(tx domain.Transaction, details domain.ModeDetails) domain.Transaction {
	if details == nil {
		details = domain.SaleDetails{}
	}
	tx.Type = details.Type()
	tx.Details = details
	return tx
}

// SetDiscount stores a requested discount; Recompute clamps it.
func SetDiscount(tx domain.Transaction, discountCents int64) domain.Transaction {
	tx.DiscountCents = discountCents
	return tx
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
