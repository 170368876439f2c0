package pos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpgpos/internal/catalog"
	"lpgpos/internal/domain"
	"lpgpos/internal/pricing"
)

func TestPreviewReportsVerdictWithoutCommitting(t *testing.T) {
	tariff := pricing.DefaultTariff()

	q := PreviewRefill(tariff, RefillForm{CylinderType: "12.5kg", CylinderCondition: domain.CylinderGood, EmptyWeight: "12", FilledWeight: "25", SafetyCheck: true, ValveCheck: true, LeakTest: true})
	assert.False(t, q.Allowed)
	require.NotNil(t, q.Rejection)
	assert.Equal(t, "refill_over_capacity", q.Rejection.Code)
	assert.Equal(t, domain.TransactionRefill, q.Type)
	assert.Equal(t, int64(1040000), q.AmountCents)

	q = PreviewExchange(tariff, ExchangeForm{ReturnedSize: "12.5kg", ReturnedCondition: domain.ConditionDamaged, NewSize: "6.25kg", Quantity: 2})
	assert.True(t, q.Allowed)
	assert.Nil(t, q.Rejection)
	assert.Equal(t, int64(660000), q.AmountCents)

	q = PreviewCustomWeight(tariff, CustomWeightForm{Weight: "abc", ContainerOption: pricing.ContainerCustomerSupplied})
	assert.False(t, q.Allowed)
	assert.Zero(t, q.AmountCents)
}

func TestPreviewBulkSaleRequiresBulkProduct(t *testing.T) {
	tariff := pricing.DefaultTariff()
	form := BulkSaleForm{ContainerType: domain.ContainerTruck, Mode: pricing.WeighModeDirect, NetWeight: "75"}

	bulk, _ := catalog.Default().Product(catalog.BulkLPGProductID)
	q := PreviewBulkSale(bulk, tariff, form)
	assert.True(t, q.Allowed)
	assert.Equal(t, int64(6900000), q.AmountCents)

	hose, _ := catalog.Default().Product("acc-hose")
	q = PreviewBulkSale(hose, tariff, form)
	assert.False(t, q.Allowed)
	assert.Equal(t, domain.ErrProductNotSellable.Code, q.Rejection.Code)
}
