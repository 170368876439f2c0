package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpgpos/internal/domain"
)

func regulator() domain.Product {
	return domain.Product{
		ID:             "acc-regulator",
		Name:           "Low pressure regulator",
		Category:       domain.CategoryAccessory,
		BasePriceCents: 45000,
		Unit:           "pcs",
		Active:         true,
		PricingTiers: []domain.PricingTier{
			{MinQuantity: 1, PricePerUnitCents: 45000},
			{MinQuantity: 5, PricePerUnitCents: 40000},
		},
	}
}

func hose() domain.Product {
	return domain.Product{ID: "acc-hose", Name: "Hose 1.5m", BasePriceCents: 12000, Unit: "pcs", Active: true}
}

func assertLineInvariant(t *testing.T, tx domain.Transaction) {
	t.Helper()
	for _, line := range tx.Items {
		assert.Equal(t, int64(line.Quantity)*line.UnitPriceCents, line.LineTotalCents, line.ProductID)
	}
}

func TestAddLineMergesAtCapturedPrice(t *testing.T) {
	tx := domain.NewTransaction()

	tx, err := AddLine(tx, regulator(), 1)
	require.NoError(t, err)
	tx, err = AddLine(tx, regulator(), 6)
	require.NoError(t, err)

	require.Len(t, tx.Items, 1)
	assert.Equal(t, 7, tx.Items[0].Quantity)
	assert.Equal(t, int64(45000), tx.Items[0].UnitPriceCents)
	assert.Equal(t, int64(315000), tx.Items[0].LineTotalCents)
}

func TestAddLinePricesNewLineFromTier(t *testing.T) {
	tx, err := AddLine(domain.NewTransaction(), regulator(), 5)
	require.NoError(t, err)

	require.Len(t, tx.Items, 1)
	assert.Equal(t, int64(40000), tx.Items[0].UnitPriceCents)
	assert.True(t, tx.Items[0].Mergeable)
	assertLineInvariant(t, tx)
}

func TestAddLineRejects(t *testing.T) {
	tx := domain.NewTransaction()

	_, err := AddLine(tx, hose(), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	inactive := hose()
	inactive.Active = false
	_, err = AddLine(tx, inactive, 1)
	assert.ErrorIs(t, err, domain.ErrProductNotSellable)

	free := hose()
	free.BasePriceCents = 0
	_, err = AddLine(tx, free, 1)
	assert.ErrorIs(t, err, domain.ErrProductNotSellable)
}

func TestAddLineDoesNotAliasInput(t *testing.T) {
	before, err := AddLine(domain.NewTransaction(), hose(), 1)
	require.NoError(t, err)

	after, err := AddLine(before, hose(), 2)
	require.NoError(t, err)

	assert.Equal(t, 1, before.Items[0].Quantity)
	assert.Equal(t, 3, after.Items[0].Quantity)
}

func TestMeasuredLinesNeverMerge(t *testing.T) {
	tx := domain.NewTransaction()
	tx = AddMeasuredLine(tx, MeasuredLine("bulk-1", "bulk-lpg", "Bulk LPG 75 kg", 6900000))
	tx = AddMeasuredLine(tx, MeasuredLine("bulk-2", "bulk-lpg", "Bulk LPG 75 kg", 6900000))

	require.Len(t, tx.Items, 2)
	for _, line := range tx.Items {
		assert.False(t, line.Mergeable)
		assert.Equal(t, 1, line.Quantity)
	}
	assertLineInvariant(t, tx)
}

func TestUpdateQuantityKeepsUnitPrice(t *testing.T) {
	tx, err := AddLine(domain.NewTransaction(), regulator(), 1)
	require.NoError(t, err)

	tx, err = UpdateQuantity(tx, "acc-regulator", 10)
	require.NoError(t, err)
	require.Len(t, tx.Items, 1)
	assert.Equal(t, int64(45000), tx.Items[0].UnitPriceCents)
	assert.Equal(t, int64(450000), tx.Items[0].LineTotalCents)

	tx, err = UpdateQuantity(tx, "missing", 3)
	require.NoError(t, err)
	assert.Len(t, tx.Items, 1)
}

func TestUpdateQuantityZeroRemoves(t *testing.T) {
	tx, err := AddLine(domain.NewTransaction(), regulator(), 1)
	require.NoError(t, err)
	tx, err = AddLine(tx, hose(), 1)
	require.NoError(t, err)

	tx, err = UpdateQuantity(tx, "acc-regulator", 0)
	require.NoError(t, err)
	require.Len(t, tx.Items, 1)
	assert.Equal(t, "acc-hose", tx.Items[0].ProductID)

	tx, err = UpdateQuantity(tx, "acc-hose", -2)
	require.NoError(t, err)
	assert.True(t, tx.Empty())
}

func TestLineQuantityIsBounded(t *testing.T) {
	cylinder := domain.Product{ID: "cyl-50kg", Name: "LPG cylinder 50kg", Category: domain.CategoryCylinder, BasePriceCents: 4600000, Active: true}

	_, err := AddLine(domain.NewTransaction(), cylinder, 4_000_000_000_000)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	tx, err := AddLine(domain.NewTransaction(), cylinder, domain.MaxLineQuantity)
	require.NoError(t, err)
	assert.Equal(t, int64(domain.MaxLineQuantity)*4600000, tx.Items[0].LineTotalCents)

	unchanged, err := AddLine(tx, cylinder, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Equal(t, domain.MaxLineQuantity, unchanged.Items[0].Quantity)

	unchanged, err = UpdateQuantity(tx, "cyl-50kg", domain.MaxLineQuantity+1)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Equal(t, domain.MaxLineQuantity, unchanged.Items[0].Quantity)
}

func TestClearResetsEverything(t *testing.T) {
	tx, err := AddLine(domain.NewTransaction(), hose(), 2)
	require.NoError(t, err)
	tx = Stamp(tx, domain.CustomWeightDetails{WeightGrams: 1000})
	tx = SetDiscount(tx, 500)
	tx.CustomerID = "cust-1"

	tx = Clear(tx)
	assert.Empty(t, tx.Items)
	assert.Equal(t, domain.TransactionSale, tx.Type)
	assert.Equal(t, domain.SaleDetails{}, tx.Details)
	assert.Zero(t, tx.DiscountCents)
	assert.Empty(t, tx.CustomerID)
}

func TestRecomputeTotals(t *testing.T) {
	tx, err := AddLine(domain.NewTransaction(), regulator(), 2)
	require.NoError(t, err)
	tx = AddMeasuredLine(tx, MeasuredLine("ex-1", "cyl-6.25kg", "Exchange", 660000))

	tx = Recompute(tx, ZeroTax)
	assert.Equal(t, int64(750000), tx.SubtotalCents)
	assert.Zero(t, tx.TaxCents)
	assert.Equal(t, tx.SubtotalCents, tx.TotalCents)

	tx = Recompute(tx, RateTax(11))
	assert.Equal(t, int64(82500), tx.TaxCents)
	assert.Equal(t, int64(832500), tx.TotalCents)
}

func TestRecomputeClampsDiscount(t *testing.T) {
	tx, err := AddLine(domain.NewTransaction(), hose(), 1)
	require.NoError(t, err)

	tx = Recompute(SetDiscount(tx, 2000), ZeroTax)
	assert.Equal(t, int64(10000), tx.TotalCents)

	tx = Recompute(SetDiscount(tx, 50000), ZeroTax)
	assert.Equal(t, int64(12000), tx.DiscountCents)
	assert.Zero(t, tx.TotalCents)

	tx = Recompute(SetDiscount(tx, -100), ZeroTax)
	assert.Zero(t, tx.DiscountCents)
	assert.Equal(t, int64(12000), tx.TotalCents)
}

func TestRecomputeEmptyTransaction(t *testing.T) {
	tx := Recompute(SetDiscount(domain.NewTransaction(), 900), nil)
	assert.Zero(t, tx.SubtotalCents)
	assert.Zero(t, tx.DiscountCents)
	assert.Zero(t, tx.TotalCents)
}

func TestStampOverwritesMode(t *testing.T) {
	tx := Stamp(domain.NewTransaction(), domain.BulkSaleDetails{NetWeightGrams: 75000})
	assert.Equal(t, domain.TransactionBulk, tx.Type)

	tx = Stamp(tx, domain.RefillDetails{CylinderType: "12.5kg"})
	assert.Equal(t, domain.TransactionRefill, tx.Type)
	_, ok := tx.Details.(domain.RefillDetails)
	assert.True(t, ok)

	tx = Stamp(tx, nil)
	assert.Equal(t, domain.TransactionSale, tx.Type)
}

func TestRateTaxDisabledForNonPositive(t *testing.T) {
	assert.Zero(t, RateTax(0)(100000))
	assert.Zero(t, RateTax(-5)(100000))
	assert.Equal(t, int64(10000), RateTax(10)(100000))
}
