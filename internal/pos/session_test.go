package pos

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpgpos/internal/cart"
	"lpgpos/internal/catalog"
	"lpgpos/internal/domain"
	"lpgpos/internal/pricing"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	seq := 0
	defaults := []Option{
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("line-%d", seq)
		}),
		WithClock(func() time.Time { return fixedNow }),
	}
	shift := domain.Shift{ID: "shift-1", TerminalID: "T1", Status: domain.ShiftStatusOpen, OpeningFloatCents: 100000}
	return NewSession(pricing.DefaultTariff(), shift, append(defaults, opts...)...)
}

func product(t *testing.T, id string) domain.Product {
	t.Helper()
	p, ok := catalog.Default().Product(id)
	require.True(t, ok, id)
	return p
}

func assertConsistent(t *testing.T, tx domain.Transaction) {
	t.Helper()
	var sum int64
	for _, line := range tx.Items {
		assert.Equal(t, int64(line.Quantity)*line.UnitPriceCents, line.LineTotalCents)
		sum += line.LineTotalCents
	}
	assert.Equal(t, sum, tx.SubtotalCents)
	assert.Equal(t, tx.SubtotalCents+tx.TaxCents-tx.DiscountCents, tx.TotalCents)
}

func TestCommitBulkSaleTruck(t *testing.T) {
	s := newTestSession(t)

	tx, err := s.CommitBulkSale(product(t, catalog.BulkLPGProductID), BulkSaleForm{
		ContainerType: domain.ContainerTruck,
		Mode:          pricing.WeighModeDirect,
		NetWeight:     "75",
	})
	require.NoError(t, err)

	require.Len(t, tx.Items, 1)
	line := tx.Items[0]
	assert.Equal(t, "line-1", line.ProductID)
	assert.Equal(t, catalog.BulkLPGProductID, line.SKU)
	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, int64(6900000), line.UnitPriceCents)
	assert.Equal(t, "Bulk LPG 75.000 kg (truck)", line.ProductName)

	assert.Equal(t, domain.TransactionBulk, tx.Type)
	details, ok := tx.Details.(domain.BulkSaleDetails)
	require.True(t, ok)
	assert.Equal(t, int64(92000), details.PricePerKgCents)
	assert.False(t, details.MinimumApplied)
	assert.Nil(t, details.TareWeightGrams)
	assert.Equal(t, int64(6900000), tx.TotalCents)
	assertConsistent(t, tx)
}

func TestCommitBulkSaleWeighingRecordsScaleReadings(t *testing.T) {
	s := newTestSession(t)

	tx, err := s.CommitBulkSale(product(t, catalog.BulkLPGProductID), BulkSaleForm{
		ContainerType: domain.ContainerCustomerTank,
		Mode:          pricing.WeighModeWeighing,
		TareWeight:    "15.5",
		GrossWeight:   "25.5",
	})
	require.NoError(t, err)

	details := tx.Details.(domain.BulkSaleDetails)
	require.NotNil(t, details.TareWeightGrams)
	require.NotNil(t, details.GrossWeightGrams)
	assert.Equal(t, int64(15500), *details.TareWeightGrams)
	assert.Equal(t, int64(25500), *details.GrossWeightGrams)
	assert.Equal(t, int64(10000), details.NetWeightGrams)
	assert.Equal(t, int64(950000), tx.TotalCents)
}

func TestCommitBulkSaleRejectsZeroWeight(t *testing.T) {
	s := newTestSession(t)

	_, err := s.CommitBulkSale(product(t, catalog.BulkLPGProductID), BulkSaleForm{
		ContainerType: domain.ContainerTruck,
		Mode:          pricing.WeighModeWeighing,
		TareWeight:    "30",
		GrossWeight:   "20",
	})
	assert.ErrorIs(t, err, domain.ErrZeroNetWeight)
	assert.True(t, s.Transaction().Empty())
}

func TestCommitExchangeAddsNetAmount(t *testing.T) {
	s := newTestSession(t)

	tx, err := s.CommitExchange(ExchangeForm{
		ReturnedSize:      "12.5kg",
		ReturnedCondition: domain.ConditionDamaged,
		NewSize:           "6.25kg",
		Quantity:          2,
	})
	require.NoError(t, err)

	require.Len(t, tx.Items, 1)
	assert.Equal(t, int64(660000), tx.Items[0].LineTotalCents)
	assert.Equal(t, catalog.CylinderProductID("6.25kg"), tx.Items[0].SKU)
	assert.Equal(t, domain.TransactionExchange, tx.Type)
	assert.Equal(t, int64(660000), tx.TotalCents)
}

func TestCommitExchangeRefundIsNegativeLine(t *testing.T) {
	s := newTestSession(t)

	tx, err := s.CommitExchange(ExchangeForm{ReturnedSize: "50kg", ReturnedCondition: domain.ConditionEmpty, NewSize: "12.5kg", Quantity: 1})
	require.NoError(t, err)

	details := tx.Details.(domain.ExchangeDetails)
	assert.Positive(t, details.RefundCents)
	assert.Equal(t, -details.RefundCents, tx.Items[0].LineTotalCents)
	assert.Equal(t, -details.RefundCents, tx.TotalCents)
	assertConsistent(t, tx)
}

func TestCommitRefillAllowed(t *testing.T) {
	s := newTestSession(t)

	tx, err := s.CommitRefill(RefillForm{
		CylinderType:      "12.5kg",
		CylinderCondition: domain.CylinderGood,
		EmptyWeight:       "13.8",
		FilledWeight:      "25.0",
		SafetyCheck:       true,
		ValveCheck:        true,
		LeakTest:          true,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(896000), tx.TotalCents)
	details := tx.Details.(domain.RefillDetails)
	assert.Equal(t, int64(11200), details.GasWeightGrams)
}

func TestCommitRefillOverfillLeavesTransactionUntouched(t *testing.T) {
	s := newTestSession(t)
	before, err := s.AddLine(product(t, "acc-hose"), 1)
	require.NoError(t, err)

	for _, checks := range []bool{true, false} {
		_, err := s.CommitRefill(RefillForm{
			CylinderType:      "12.5kg",
			CylinderCondition: domain.CylinderGood,
			EmptyWeight:       "12.0",
			FilledWeight:      "25.0",
			SafetyCheck:       checks,
			ValveCheck:        checks,
			LeakTest:          checks,
		})
		assert.ErrorIs(t, err, domain.ErrRefillOverCapacity)
	}
	assert.Equal(t, before, s.Transaction())
}

func TestCommitRefillGates(t *testing.T) {
	s := newTestSession(t)

	_, err := s.CommitRefill(RefillForm{CylinderType: "3kg", CylinderCondition: domain.CylinderNeedsInspection, EmptyWeight: "5", FilledWeight: "7", SafetyCheck: true, ValveCheck: true, LeakTest: true})
	assert.ErrorIs(t, err, domain.ErrNeedsInspection)

	_, err = s.CommitRefill(RefillForm{CylinderType: "3kg", CylinderCondition: domain.CylinderGood, EmptyWeight: "5", FilledWeight: "7", SafetyCheck: true, ValveCheck: true})
	assert.ErrorIs(t, err, domain.ErrRefillSafetyCheck)

	assert.True(t, s.Transaction().Empty())
}

func TestCommitCustomWeightSale(t *testing.T) {
	s := newTestSession(t)

	tx, err := s.CommitCustomWeightSale(CustomWeightForm{Weight: "7.5", ContainerOption: "new_6kg_cylinder"})
	require.NoError(t, err)
	assert.Equal(t, int64(712500+1500000), tx.TotalCents)
	assert.Equal(t, domain.TransactionCustomWeight, tx.Type)

	_, err = s.CommitCustomWeightSale(CustomWeightForm{Weight: "50.001", ContainerOption: pricing.ContainerCustomerSupplied})
	assert.ErrorIs(t, err, domain.ErrCustomWeightRange)

	_, err = s.CommitCustomWeightSale(CustomWeightForm{Weight: "3"})
	assert.ErrorIs(t, err, domain.ErrContainerRequired)

	assert.Len(t, s.Transaction().Items, 1)
}

func TestMixedCartLastModeWins(t *testing.T) {
	s := newTestSession(t)

	_, err := s.AddLine(product(t, "acc-regulator"), 2)
	require.NoError(t, err)
	_, err = s.CommitBulkSale(product(t, catalog.BulkLPGProductID), BulkSaleForm{ContainerType: domain.ContainerCylinderBulk, Mode: pricing.WeighModeDirect, NetWeight: "1"})
	require.NoError(t, err)
	tx, err := s.CommitCustomWeightSale(CustomWeightForm{Weight: "2", ContainerOption: pricing.ContainerCustomerSupplied})
	require.NoError(t, err)

	require.Len(t, tx.Items, 3)
	assert.Equal(t, domain.TransactionCustomWeight, tx.Type)
	assert.Equal(t, int64(90000+200000+190000), tx.SubtotalCents)
	assertConsistent(t, tx)
}

func TestRecordPaymentClearsTransactionAndBooksShift(t *testing.T) {
	s := newTestSession(t)
	_, err := s.CommitBulkSale(product(t, catalog.BulkLPGProductID), BulkSaleForm{ContainerType: domain.ContainerTruck, Mode: pricing.WeighModeDirect, NetWeight: "75"})
	require.NoError(t, err)

	result, err := s.RecordPayment(domain.TenderCash)
	require.NoError(t, err)

	assert.Equal(t, int64(6900000), result.PaidCents)
	assert.Equal(t, fixedNow, result.CompletedAt)
	assert.Len(t, result.Settled.Items, 1)
	assert.Equal(t, int64(6900000), result.Shift.CashSalesCents)
	assert.Equal(t, 1, result.Shift.TotalTransactions)

	snap := s.Snapshot()
	assert.True(t, snap.Transaction.Empty())
	assert.Equal(t, domain.TransactionSale, snap.Transaction.Type)
	assert.Equal(t, result.Shift, snap.Shift)
}

func TestRecordPaymentRejections(t *testing.T) {
	s := newTestSession(t)

	_, err := s.RecordPayment(domain.TenderCash)
	assert.ErrorIs(t, err, domain.ErrEmptyTransaction)

	_, err = s.AddLine(product(t, "acc-hose"), 1)
	require.NoError(t, err)

	_, err = s.RecordPayment(domain.TenderCredit)
	assert.ErrorIs(t, err, domain.ErrCreditWithoutCustomer)

	_, err = s.RecordPayment("voucher")
	assert.ErrorIs(t, err, domain.ErrUnknownTender)

	snap := s.Snapshot()
	assert.Len(t, snap.Transaction.Items, 1)
	assert.Zero(t, snap.Shift.TotalTransactions)
	assert.Zero(t, snap.Shift.TotalSalesCents)
}

func TestRecordPaymentOnCredit(t *testing.T) {
	s := newTestSession(t)
	s.AttachCustomer(domain.CustomerAccount{ID: "cust-1", CreditLimitCents: 20000, CurrentBalanceCents: -5000})

	_, err := s.AddLine(product(t, "acc-hose"), 1)
	require.NoError(t, err)
	_, err = s.AddLine(product(t, "acc-hose"), 1)
	require.NoError(t, err)

	_, err = s.RecordPayment(domain.TenderCredit)
	assert.ErrorIs(t, err, domain.ErrCreditLimitExceeded)

	tx, err := s.UpdateQuantity("acc-hose", 1)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", tx.CustomerID)

	result, err := s.RecordPayment(domain.TenderCredit)
	require.NoError(t, err)
	require.NotNil(t, result.Customer)
	assert.Equal(t, int64(-17000), result.Customer.CurrentBalanceCents)
	assert.Equal(t, int64(12000), result.Shift.CreditSalesCents)

	snap := s.Snapshot()
	assert.Nil(t, snap.Customer)
	assert.Empty(t, snap.Transaction.CustomerID)
}

func TestDiscountAndTax(t *testing.T) {
	s := newTestSession(t, WithTax(cart.RateTax(10)))

	_, err := s.AddLine(product(t, "acc-hose"), 2)
	require.NoError(t, err)

	tx := s.SetDiscount(4000)
	assert.Equal(t, int64(24000), tx.SubtotalCents)
	assert.Equal(t, int64(2400), tx.TaxCents)
	assert.Equal(t, int64(22400), tx.TotalCents)

	tx = s.RemoveLine("acc-hose")
	assert.Zero(t, tx.DiscountCents)
	assert.Zero(t, tx.TotalCents)
}

func TestClearDetachesCustomer(t *testing.T) {
	s := newTestSession(t)
	s.AttachCustomer(domain.CustomerAccount{ID: "cust-9"})
	_, err := s.AddLine(product(t, "acc-hose"), 1)
	require.NoError(t, err)

	tx := s.Clear()
	assert.True(t, tx.Empty())
	assert.Empty(t, tx.CustomerID)
	assert.Nil(t, s.Snapshot().Customer)
}

func TestCloseShift(t *testing.T) {
	s := newTestSession(t)

	shift := s.CloseShift(150000)
	assert.Equal(t, domain.ShiftStatusClosed, shift.Status)
	require.NotNil(t, shift.ClosedAt)
	assert.Equal(t, fixedNow, *shift.ClosedAt)
	assert.Equal(t, int64(150000), shift.ClosingCashCents)
}

func TestClosedShiftStopsSalesAndPayments(t *testing.T) {
	s := newTestSession(t)
	_, err := s.AddLine(product(t, "acc-hose"), 1)
	require.NoError(t, err)

	s.CloseShift(100000)

	_, err = s.RecordPayment(domain.TenderCash)
	assert.ErrorIs(t, err, domain.ErrShiftClosed)
	_, err = s.AddLine(product(t, "acc-hose"), 1)
	assert.ErrorIs(t, err, domain.ErrShiftClosed)
	_, err = s.UpdateQuantity("acc-hose", 3)
	assert.ErrorIs(t, err, domain.ErrShiftClosed)
	_, err = s.CommitCustomWeightSale(CustomWeightForm{Weight: "3", ContainerOption: pricing.ContainerCustomerSupplied})
	assert.ErrorIs(t, err, domain.ErrShiftClosed)

	shift := s.Shift()
	assert.Zero(t, shift.TotalTransactions)
	assert.Len(t, s.Transaction().Items, 1)

	s.ReopenShift()
	result, err := s.RecordPayment(domain.TenderCash)
	require.NoError(t, err)
	assert.Equal(t, domain.ShiftStatusOpen, result.Shift.Status)
	assert.Nil(t, result.Shift.ClosedAt)
	assert.Equal(t, int64(12000), result.Shift.CashSalesCents)
}

func TestSessionConcurrentMutations(t *testing.T) {
	s := NewSession(pricing.DefaultTariff(), domain.Shift{Status: domain.ShiftStatusOpen})
	hose := product(t, "acc-hose")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.AddLine(hose, 1)
		}()
		go func() {
			defer wg.Done()
			_, _ = s.CommitCustomWeightSale(CustomWeightForm{Weight: "1", ContainerOption: pricing.ContainerCustomerSupplied})
		}()
	}
	wg.Wait()

	tx := s.Transaction()
	require.Len(t, tx.Items, 21)
	for _, line := range tx.Items {
		if line.ProductID == hose.ID {
			assert.Equal(t, 20, line.Quantity)
		}
	}
	assertConsistent(t, tx)
}
