// Package cart holds the pure line and totals rules for the active
// transaction. Every function takes a Transaction by value and returns the
// updated copy; callers own synchronisation.
package cart

import (
	"lpgpos/internal/domain"
	"lpgpos/internal/pricing"
)

// AddLine adds quantity units of a fixed-price product. An existing mergeable
// line for the same product keeps the unit price it was captured at.
func AddLine(tx domain.Transaction, product domain.Product, quantity int) (domain.Transaction, error) {
	if quantity <= 0 || quantity > domain.MaxLineQuantity {
		return tx, domain.ErrInvalidQuantity
	}
	if !product.Active {
		return tx, domain.ErrProductNotSellable
	}

	items := cloneLines(tx.Items)
	for i := range items {
		if !items[i].Mergeable || items[i].ProductID != product.ID {
			continue
		}
		if items[i].Quantity+quantity > domain.MaxLineQuantity {
			return tx, domain.ErrInvalidQuantity
		}
		items[i].Quantity += quantity
		items[i].LineTotalCents = lineTotal(items[i])
		tx.Items = items
		return tx, nil
	}

	unitPrice := pricing.UnitPriceCents(product, float64(quantity))
	if unitPrice <= 0 {
		return tx, domain.ErrProductNotSellable
	}
	line := domain.CartLine{
		ProductID:      product.ID,
		SKU:            product.ID,
		ProductName:    product.Name,
		Quantity:       quantity,
		UnitPriceCents: unitPrice,
		Mergeable:      true,
	}
	line.LineTotalCents = lineTotal(line)
	tx.Items = append(items, line)
	return tx, nil
}

// MeasuredLine builds the single, non-mergeable line produced by a weighed or
// computed sale mode. The whole computed amount becomes the unit price.
func MeasuredLine(instanceID, sku, name string, amountCents int64) domain.CartLine {
	return domain.CartLine{
		ProductID:      instanceID,
		SKU:            sku,
		ProductName:    name,
		Quantity:       1,
		UnitPriceCents: amountCents,
		LineTotalCents: amountCents,
	}
}

// AddMeasuredLine appends line as its own entry; it is never merged.
func AddMeasuredLine(tx domain.Transaction, line domain.CartLine) domain.Transaction {
	line.Mergeable = false
	if line.Quantity <= 0 {
		line.Quantity = 1
	}
	line.LineTotalCents = lineTotal(line)
	tx.Items = append(cloneLines(tx.Items), line)
	return tx
}

// UpdateQuantity sets a line's quantity at its captured unit price. A quantity
// of zero or less removes the line. Unknown ids are a no-op.
func UpdateQuantity(tx domain.Transaction, productID string, quantity int) (domain.Transaction, error) {
	if quantity <= 0 {
		return RemoveLine(tx, productID), nil
	}
	if quantity > domain.MaxLineQuantity {
		return tx, domain.ErrInvalidQuantity
	}
	items := cloneLines(tx.Items)
	for i := range items {
		if items[i].ProductID != productID {
			continue
		}
		items[i].Quantity = quantity
		items[i].LineTotalCents = lineTotal(items[i])
	}
	tx.Items = items
	return tx, nil
}

// RemoveLine drops every line with the given identity.
func RemoveLine(tx domain.Transaction, productID string) domain.Transaction {
	kept := make([]domain.CartLine, 0, len(tx.Items))
	for _, line := range tx.Items {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	tx.Items = kept
	return tx
}

// Clear resets tx to the empty sale transaction.
func Clear(domain.Transaction) domain.Transaction {
	return domain.NewTransaction()
}

func lineTotal(line domain.CartLine) int64 {
	return int64(line.Quantity) * line.UnitPriceCents
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, len(lines), len(lines)+1)
	copy(out, lines)
	return out
}
