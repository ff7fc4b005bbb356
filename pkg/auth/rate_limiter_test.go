package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allows up to the bucket capacity", func(t *testing.T) {
		limiter := NewTokenBucketLimiter(3, time.Hour)

		for i := 0; i < 3; i++ {
			allowed, err := limiter.Allow(ctx, "client")
			require.NoError(t, err)
			assert.True(t, allowed, "request %d should be allowed", i)
		}

		allowed, err := limiter.Allow(ctx, "client")
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("keys are independent", func(t *testing.T) {
		limiter := NewTokenBucketLimiter(1, time.Hour)

		allowed, _ := limiter.Allow(ctx, "a")
		assert.True(t, allowed)
		allowed, _ = limiter.Allow(ctx, "a")
		assert.False(t, allowed)

		allowed, _ = limiter.Allow(ctx, "b")
		assert.True(t, allowed)
	})

	t.Run("reset restores capacity", func(t *testing.T) {
		limiter := NewTokenBucketLimiter(1, time.Hour)

		limiter.Allow(ctx, "client")
		require.NoError(t, limiter.Reset(ctx, "client"))

		allowed, err := limiter.Allow(ctx, "client")
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestSlidingWindowLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("blocks once the window is full", func(t *testing.T) {
		limiter := NewSlidingWindowLimiter(2, time.Hour)

		allowed, _ := limiter.Allow(ctx, "client")
		assert.True(t, allowed)
		allowed, _ = limiter.Allow(ctx, "client")
		assert.True(t, allowed)
		allowed, _ = limiter.Allow(ctx, "client")
		assert.False(t, allowed)
	})

	t.Run("old requests fall out of the window", func(t *testing.T) {
		limiter := NewSlidingWindowLimiter(1, 20*time.Millisecond)

		allowed, _ := limiter.Allow(ctx, "client")
		assert.True(t, allowed)
		allowed, _ = limiter.Allow(ctx, "client")
		assert.False(t, allowed)

		time.Sleep(30 * time.Millisecond)

		allowed, _ = limiter.Allow(ctx, "client")
		assert.True(t, allowed)
	})
}

func TestKeyedLimiters(t *testing.T) {
	ctx := context.Background()

	t.Run("ip and user keys do not collide", func(t *testing.T) {
		backend := NewSlidingWindowLimiter(1, time.Hour)
		ipLimiter := NewIPRateLimiterWith(backend)
		userLimiter := NewUserRateLimiterWith(backend)

		allowed, err := ipLimiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)

		// Same identifier through the user limiter hits a different key.
		allowed, err = userLimiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = ipLimiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.False(t, allowed)
	})
}
