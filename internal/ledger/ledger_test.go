package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpgpos/internal/domain"
)

func bucketSum(s domain.Shift) int64 {
	return s.CashSalesCents + s.CardSalesCents + s.TransferSalesCents + s.CreditSalesCents
}

func TestRecordPaymentUpdatesOneBucket(t *testing.T) {
	shift := domain.Shift{OpeningFloatCents: 100000}

	require.NoError(t, RecordPayment(&shift, domain.TenderCash, 6900000, false))
	require.NoError(t, RecordPayment(&shift, domain.TenderCard, 660000, false))
	require.NoError(t, RecordPayment(&shift, domain.TenderTransfer, 896000, false))
	require.NoError(t, RecordPayment(&shift, domain.TenderCredit, 12000, true))

	assert.Equal(t, int64(6900000), shift.CashSalesCents)
	assert.Equal(t, int64(660000), shift.CardSalesCents)
	assert.Equal(t, int64(896000), shift.TransferSalesCents)
	assert.Equal(t, int64(12000), shift.CreditSalesCents)
	assert.Equal(t, 4, shift.TotalTransactions)
	assert.Equal(t, bucketSum(shift), shift.TotalSalesCents)
	assert.Equal(t, int64(7000000), shift.ExpectedCashCents())
}

func TestRecordPaymentCreditNeedsCustomer(t *testing.T) {
	shift := domain.Shift{CashSalesCents: 500, TotalSalesCents: 500, TotalTransactions: 1}
	before := shift

	err := RecordPayment(&shift, domain.TenderCredit, 12000, false)
	assert.ErrorIs(t, err, ErrCreditWithoutCustomer)
	assert.ErrorIs(t, err, domain.ErrCreditWithoutCustomer)
	assert.Equal(t, before, shift)
}

func TestRecordPaymentUnknownTender(t *testing.T) {
	shift := domain.Shift{}

	err := RecordPayment(&shift, "voucher", 1000, true)
	assert.ErrorIs(t, err, ErrUnknownTender)
	assert.Equal(t, domain.Shift{}, shift)
}

func TestRecordPaymentBucketsAlwaysSumToTotal(t *testing.T) {
	shift := domain.Shift{}
	tenders := []domain.TenderType{domain.TenderCash, domain.TenderCard, domain.TenderTransfer, domain.TenderCredit, "cheque"}

	for i := 0; i < 40; i++ {
		tender := tenders[i%len(tenders)]
		_ = RecordPayment(&shift, tender, int64(i*137), i%3 == 0)
		assert.Equal(t, bucketSum(shift), shift.TotalSalesCents)
	}
}

func TestReconcile(t *testing.T) {
	shift := domain.Shift{OpeningFloatCents: 100000, CashSalesCents: 250000}

	assert.Zero(t, Reconcile(shift, 350000))
	assert.Equal(t, int64(-5000), Reconcile(shift, 345000))
}
