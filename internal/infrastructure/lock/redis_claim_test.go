package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClaim(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisProcessingClaim) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisProcessingClaim(client, ttl, zerolog.Nop()).(*RedisProcessingClaim)
}

func TestRedisProcessingClaim(t *testing.T) {
	ctx := context.Background()

	t.Run("second claim for the same order is denied", func(t *testing.T) {
		_, claims := newTestClaim(t, time.Minute)

		acquired, err := claims.Claim(ctx, "test.myshopify.com", 1001)
		require.NoError(t, err)
		assert.True(t, acquired)

		acquired, err = claims.Claim(ctx, "test.myshopify.com", 1001)
		require.NoError(t, err)
		assert.False(t, acquired)
	})

	t.Run("claims are scoped per shop and order", func(t *testing.T) {
		_, claims := newTestClaim(t, time.Minute)

		acquired, err := claims.Claim(ctx, "test.myshopify.com", 1001)
		require.NoError(t, err)
		require.True(t, acquired)

		acquired, err = claims.Claim(ctx, "test.myshopify.com", 1002)
		require.NoError(t, err)
		assert.True(t, acquired, "a different order is an independent claim")

		acquired, err = claims.Claim(ctx, "other.myshopify.com", 1001)
		require.NoError(t, err)
		assert.True(t, acquired, "the same order id on another shop is independent")
	})

	t.Run("release frees the claim", func(t *testing.T) {
		_, claims := newTestClaim(t, time.Minute)

		acquired, err := claims.Claim(ctx, "test.myshopify.com", 1001)
		require.NoError(t, err)
		require.True(t, acquired)

		require.NoError(t, claims.Release(ctx, "test.myshopify.com", 1001))

		acquired, err = claims.Claim(ctx, "test.myshopify.com", 1001)
		require.NoError(t, err)
		assert.True(t, acquired)
	})

	t.Run("claim expires after the ttl", func(t *testing.T) {
		mr, claims := newTestClaim(t, time.Minute)

		acquired, err := claims.Claim(ctx, "test.myshopify.com", 1001)
		require.NoError(t, err)
		require.True(t, acquired)

		mr.FastForward(2 * time.Minute)

		acquired, err = claims.Claim(ctx, "test.myshopify.com", 1001)
		require.NoError(t, err)
		assert.True(t, acquired, "an expired claim must not block redelivery forever")
	})

	t.Run("zero ttl falls back to the default", func(t *testing.T) {
		_, claims := newTestClaim(t, 0)
		assert.Equal(t, DefaultClaimTTL, claims.ttl)
	})
}
