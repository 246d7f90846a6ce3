package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/anthonybir/ipupy-tesoreria-sub005/internal/infrastructure/config"
)

const balanceKeyPrefix = "fund:balance:"

// RedisBalanceCache caches display-path fund balances in Redis with a short
// TTL. It is strictly an optimization for unlocked reads; mutating paths
// always read the authoritative row under lock and invalidate after commit.
type RedisBalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBalanceCache connects to Redis and returns a balance cache
func NewRedisBalanceCache(cfg config.RedisConfig) (*RedisBalanceCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisBalanceCache{client: client, ttl: cfg.BalanceTTL}, nil
}

// NewRedisBalanceCacheWithClient wraps an existing client, useful for tests
// or when sharing a client across components
func NewRedisBalanceCacheWithClient(client *redis.Client, ttl time.Duration) *RedisBalanceCache {
	return &RedisBalanceCache{client: client, ttl: ttl}
}

// Get returns the cached balance for a fund and whether it was present
func (c *RedisBalanceCache) Get(ctx context.Context, fundID uuid.UUID) (decimal.Decimal, bool, error) {
	val, err := c.client.Get(ctx, balanceKeyPrefix+fundID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to read cached balance: %w", err)
	}
	balance, err := decimal.NewFromString(val)
	if err != nil {
		// A corrupt entry behaves like a miss; the caller refreshes it.
		return decimal.Zero, false, nil
	}
	return balance, true, nil
}

// Set stores a fund balance with the configured TTL
func (c *RedisBalanceCache) Set(ctx context.Context, fundID uuid.UUID, balance decimal.Decimal) error {
	return c.client.Set(ctx, balanceKeyPrefix+fundID.String(), balance.String(), c.ttl).Err()
}

// Invalidate drops the cached balances for the given funds
func (c *RedisBalanceCache) Invalidate(ctx context.Context, fundIDs ...uuid.UUID) error {
	if len(fundIDs) == 0 {
		return nil
	}
	keys := make([]string, len(fundIDs))
	for i, id := range fundIDs {
		keys[i] = balanceKeyPrefix + id.String()
	}
	return c.client.Del(ctx, keys...).Err()
}

// Close releases the underlying client
func (c *RedisBalanceCache) Close() error {
	return c.client.Close()
}
