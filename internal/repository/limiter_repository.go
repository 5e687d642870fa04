package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LimiterRepository tracks login attempt counters in Redis. Counters live
// under a fixed-window key; the window TTL is set when the key is first
// created.
type LimiterRepository struct {
	client *redis.Client
}

// NewLimiterRepository constructs a limiter repository.
func NewLimiterRepository(client *redis.Client) *LimiterRepository {
	return &LimiterRepository{client: client}
}

// Incr bumps the attempt counter for the key and returns the new value. A
// nil client disables limiting (count 0).
func (r *LimiterRepository) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	if r.client == nil {
		return 0, nil
	}

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr limiter key %s: %w", key, err)
	}

	return incr.Val(), nil
}

// Reset clears the attempt counter, typically after a successful login.
func (r *LimiterRepository) Reset(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("reset limiter key %s: %w", key, err)
	}
	return nil
}
