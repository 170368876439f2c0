// Package ledger keeps the per-tender running totals of a shift.
package ledger

import "lpgpos/internal/domain"

var (
	// ErrCreditWithoutCustomer is returned when a credit tender is recorded
	// with no customer attached to the transaction.
	ErrCreditWithoutCustomer = domain.ErrCreditWithoutCustomer
	// ErrUnknownTender is returned for tender types outside the closed set.
	ErrUnknownTender = domain.ErrUnknownTender
)

// RecordPayment adds amountCents to the shift's sales total and to exactly one
// tender bucket. On error the shift is left unchanged.
func RecordPayment(shift *domain.Shift, tender domain.TenderType, amountCents int64, customerAttached bool) error {
	bucket, err := tenderBucket(shift, tender)
	if err != nil {
		return err
	}
	if tender == domain.TenderCredit && !customerAttached {
		return ErrCreditWithoutCustomer
	}

	*bucket += amountCents
	shift.TotalSalesCents += amountCents
	shift.TotalTransactions++
	return nil
}

func tenderBucket(shift *domain.Shift, tender domain.TenderType) (*int64, error) {
	switch tender {
	case domain.TenderCash:
		return &shift.CashSalesCents, nil
	case domain.TenderCard:
		return &shift.CardSalesCents, nil
	case domain.TenderTransfer:
		return &shift.TransferSalesCents, nil
	case domain.TenderCredit:
		return &shift.CreditSalesCents, nil
	default:
		return nil, ErrUnknownTender
	}
}

// Reconcile reports the difference between counted and expected drawer cash.
// A negative result is a shortage.
func Reconcile(shift domain.Shift, countedCashCents int64) int64 {
	return countedCashCents - shift.ExpectedCashCents()
}
