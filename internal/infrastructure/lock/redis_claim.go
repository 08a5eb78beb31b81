package lock

import (
	"context"
	"fmt"
	"time"

	"cardmint-shopify-app/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultClaimTTL bounds how long a claim can be held if the holder dies
// before releasing it. Long enough to cover a full pipeline run including
// the per-unit Shopify calls.
const DefaultClaimTTL = 2 * time.Minute

// RedisProcessingClaim implements ProcessingClaim with a short-lived Redis
// SET NX key per (shop, order), narrowing the duplicate-delivery race
// around the idempotency check.
type RedisProcessingClaim struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisProcessingClaim creates a new Redis-backed processing claim
func NewRedisProcessingClaim(client *redis.Client, ttl time.Duration, logger zerolog.Logger) ports.ProcessingClaim {
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	return &RedisProcessingClaim{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func claimKey(shop string, orderID int64) string {
	return fmt.Sprintf("cardmint:claim:%s:%d", shop, orderID)
}

// Claim attempts to acquire the per-order claim. Returns false when another
// delivery already holds it.
func (c *RedisProcessingClaim) Claim(ctx context.Context, shop string, orderID int64) (bool, error) {
	acquired, err := c.client.SetNX(ctx, claimKey(shop, orderID), time.Now().UTC().Format(time.RFC3339), c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire processing claim: %w", err)
	}
	return acquired, nil
}

// Release drops the claim once the pipeline run has finished
func (c *RedisProcessingClaim) Release(ctx context.Context, shop string, orderID int64) error {
	if err := c.client.Del(ctx, claimKey(shop, orderID)).Err(); err != nil {
		return fmt.Errorf("failed to release processing claim: %w", err)
	}
	return nil
}
