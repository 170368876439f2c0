package store

import (
	"context"
	"errors"
	"time"

	"lpgpos/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("already exists")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	UpsertProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	ListCustomers(ctx context.Context) ([]domain.CustomerAccount, error)
	GetCustomer(ctx context.Context, id string) (*domain.CustomerAccount, error)
	ApplyCreditCharge(ctx context.Context, customerID string, amountCents int64) (*domain.CustomerAccount, error)
	CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	GetActiveShift(ctx context.Context, storeID string, terminalID string) (*domain.Shift, error)
	SaveShiftTotals(ctx context.Context, shift domain.Shift) error
	CloseActiveShift(ctx context.Context, storeID string, terminalID string, closingCashCents int64, closedAt time.Time) (*domain.Shift, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
