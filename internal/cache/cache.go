package cache

import (
	"context"
	"time"

	"lpgpos/internal/domain"
)

// ProductCache fronts catalog lookups. A miss is (nil, false, nil).
type ProductCache interface {
	Get(ctx context.Context, storeID string, productID string) (*domain.Product, bool, error)
	Set(ctx context.Context, storeID string, product domain.Product, ttl time.Duration) error
	Invalidate(ctx context.Context, storeID string, productID string) error
}

type NoopProductCache struct{}

func (NoopProductCache) Get(_ context.Context, _ string, _ string) (*domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopProductCache) Set(_ context.Context, _ string, _ domain.Product, _ time.Duration) error {
	return nil
}

func (NoopProductCache) Invalidate(_ context.Context, _ string, _ string) error {
	return nil
}

func productKey(storeID, productID string) string {
	return "lpgpos:product:" + storeID + ":" + productID
}
