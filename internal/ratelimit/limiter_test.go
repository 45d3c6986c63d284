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

func TestLimiter_BlocksAfterCapacity(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(Config{Enabled: true, Capacity: 3, RefillTokens: 1, RefillInterval: time.Second, Prefix: "tg"}, rdb)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := l.Allow(ctx, "42")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, int64(2-i), d.Remaining)
		assert.Equal(t, 3, d.Limit)
	}

	d, err := l.Allow(ctx, "42")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.RetryAfter)
	assert.True(t, mr.Exists("tg:42"))

	other, err := l.Allow(ctx, "43")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "buckets are per key")

	now = now.Add(1500 * time.Millisecond)
	d, err = l.Allow(ctx, "42")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(0), d.Remaining)
}

func TestLimiter_Inactive(t *testing.T) {
	ctx := context.Background()

	d, err := New(Config{Enabled: true}, nil).Allow(ctx, "1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	d, err = New(Config{Enabled: false, Capacity: 1}, rdb).Allow(ctx, "1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.False(t, mr.Exists("rl:1"))
}

func TestLimiter_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	l := New(Config{Enabled: true, Capacity: 1}, rdb)
	mr.Close()

	d, err := l.Allow(context.Background(), "1")
	assert.Error(t, err)
	assert.True(t, d.Allowed)
}
