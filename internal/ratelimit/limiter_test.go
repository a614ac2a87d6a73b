package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestLimiter_FixedWindow(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	l := NewLimiter(rdb, "salt")
	cfg := LimitConfig{Rate: 2, Window: 10 * time.Second}
	ctx := context.Background()

	d, err := l.Allow(ctx, "rl:test", cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, err = l.Allow(ctx, "rl:test", cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, err = l.Allow(ctx, "rl:test", cfg)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 10, d.RetryAfter)

	mr.FastForward(11 * time.Second)

	d, err = l.Allow(ctx, "rl:test", cfg)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLimiter_RedisDown(t *testing.T) {
	mr, rdb := setupTestRedis(t)
	mr.Close()

	_, err := NewLimiter(rdb, "").Allow(context.Background(), "rl:x", LimitConfig{Rate: 1, Window: time.Second})
	assert.ErrorIs(t, err, ErrRedisUnavailable)
}

func TestLimiter_HashIPIsStable(t *testing.T) {
	l := NewLimiter(nil, "salt")
	assert.Equal(t, l.HashIP("1.2.3.4"), l.HashIP("1.2.3.4"))
	assert.NotEqual(t, l.HashIP("1.2.3.4"), l.HashIP("1.2.3.5"))
	assert.NotContains(t, l.HashIP("1.2.3.4"), "1.2.3.4")
}

func TestLimitConfig_Enabled(t *testing.T) {
	assert.True(t, LimitConfig{Rate: 1, Window: time.Second}.Enabled())
	assert.False(t, LimitConfig{Rate: 0, Window: time.Second}.Enabled())
	assert.False(t, LimitConfig{Rate: 5}.Enabled())
}
