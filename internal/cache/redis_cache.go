package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"lpgpos/internal/domain"
)

type RedisProductCache struct {
	client *redis.Client
}

func NewRedisProductCache(addr string, password string, db int) *RedisProductCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisProductCache{client: client}
}

func (c *RedisProductCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisProductCache) Close() error {
	return c.client.Close()
}

func (c *RedisProductCache) Get(ctx context.Context, storeID string, productID string) (*domain.Product, bool, error) {
	val, err := c.client.Get(ctx, productKey(storeID, productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached product: %w", err)
	}

	var product domain.Product
	if err := json.Unmarshal(val, &product); err != nil {
		return nil, false, fmt.Errorf("decode cached product: %w", err)
	}
	return &product, true, nil
}

func (c *RedisProductCache) Set(ctx context.Context, storeID string, product domain.Product, ttl time.Duration) error {
	payload, err := json.Marshal(product)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, productKey(storeID, product.ID), payload, ttl).Err()
}

func (c *RedisProductCache) Invalidate(ctx context.Context, storeID string, productID string) error {
	return c.client.Del(ctx, productKey(storeID, productID)).Err()
}
