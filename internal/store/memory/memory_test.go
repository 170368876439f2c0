package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lpgpos/internal/catalog"
	"lpgpos/internal/domain"
	"lpgpos/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "admin-test-pass")
	t.Setenv("SEED_CASHIER_PASSWORD", "cashier-test-pass")
	return NewSeeded(catalog.Default().Products)
}

func TestProductsAreCopies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	product, err := s.GetProduct(ctx, catalog.BulkLPGProductID)
	require.NoError(t, err)
	product.PricingTiers[0].PricePerUnitCents = 1

	again, err := s.GetProduct(ctx, catalog.BulkLPGProductID)
	require.NoError(t, err)
	assert.Equal(t, int64(95000), again.PricingTiers[0].PricePerUnitCents)

	_, err = s.GetProduct(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestListProductsSkipsInactive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hose, err := s.GetProduct(ctx, "acc-hose")
	require.NoError(t, err)
	hose.Active = false
	_, err = s.UpsertProduct(ctx, *hose)
	require.NoError(t, err)

	products, err := s.ListProducts(ctx)
	require.NoError(t, err)
	for _, p := range products {
		assert.NotEqual(t, "acc-hose", p.ID)
	}
	assert.Len(t, products, len(catalog.Default().Products)-1)

	_, err = s.UpsertProduct(ctx, domain.Product{ID: "x", Name: "x", Category: "food"})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestApplyCreditCharge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	customer, err := s.ApplyCreditCharge(ctx, "cust-budi", 120000)
	require.NoError(t, err)
	assert.Equal(t, int64(-120000), customer.CurrentBalanceCents)
	assert.Equal(t, int64(380000), customer.AvailableCredit())

	stored, err := s.GetCustomer(ctx, "cust-budi")
	require.NoError(t, err)
	assert.Equal(t, int64(-120000), stored.CurrentBalanceCents)

	_, err = s.ApplyCreditCharge(ctx, "nobody", 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestShiftLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	opened, err := s.CreateShift(ctx, domain.Shift{StoreID: "main-store", TerminalID: "T1", CashierName: "Rina", OpeningFloatCents: 100000})
	require.NoError(t, err)
	assert.Equal(t, domain.ShiftStatusOpen, opened.Status)
	assert.NotEmpty(t, opened.ID)

	_, err = s.CreateShift(ctx, domain.Shift{StoreID: "main-store", TerminalID: "T1"})
	assert.ErrorIs(t, err, store.ErrConflict)

	opened.CashSalesCents = 6900000
	opened.TotalSalesCents = 6900000
	opened.TotalTransactions = 1
	require.NoError(t, s.SaveShiftTotals(ctx, *opened))

	active, err := s.GetActiveShift(ctx, "main-store", "T1")
	require.NoError(t, err)
	assert.Equal(t, int64(6900000), active.CashSalesCents)

	closedAt := time.Date(2026, 3, 14, 17, 0, 0, 0, time.UTC)
	closed, err := s.CloseActiveShift(ctx, "main-store", "T1", 7000000, closedAt)
	require.NoError(t, err)
	assert.Equal(t, domain.ShiftStatusClosed, closed.Status)
	assert.Equal(t, int64(6900000), closed.TotalSalesCents)

	_, err = s.GetActiveShift(ctx, "main-store", "T1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.SaveShiftTotals(ctx, *closed), store.ErrInvalidInput)
}

func TestSeedUsersAreHashed(t *testing.T) {
	s := newTestStore(t)

	users, err := s.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.NotEqual(t, "admin-test-pass", u.Password)
		assert.NotEqual(t, "cashier-test-pass", u.Password)
	}

	assert.ErrorIs(t, s.CreateUser(context.Background(), domain.UserAccount{Username: "Admin", Password: "x"}), store.ErrConflict)
}
