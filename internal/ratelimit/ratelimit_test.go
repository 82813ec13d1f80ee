package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sipitali-server/internal/config"
)

func TestMemoryLimiterWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(3, time.Minute)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, _ := l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "keys are independent")

	now = now.Add(20 * time.Second)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "one token refilled after a third of the period")
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)

	now = now.Add(time.Minute)
	for i := 0; i < 3; i++ {
		ok, _ = l.Allow(ctx, "1.2.3.4")
		assert.True(t, ok)
	}
}

func TestMemoryLimiterPrune(t *testing.T) {
	now := time.Now()
	l := NewMemoryLimiter(1, time.Second)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "a")
	now = now.Add(2 * time.Second)
	l.prune(now)
	assert.Empty(t, l.buckets)
}

func TestNewRedisClientUnreachable(t *testing.T) {
	_, err := NewRedisClient(config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(config.RedisConfig{Addr: mr.Addr(), DB: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLimiterWindow(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniRedis(t)
	l := NewRedisLimiter(client, 2, time.Minute)

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4:/login")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := l.Allow(ctx, "1.2.3.4:/login")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "5.6.7.8:/login")
	assert.True(t, ok, "keys are independent")

	mr.Select(2)
	assert.Equal(t, time.Minute, mr.TTL("sipitali:ratelimit:1.2.3.4:/login"))

	mr.FastForward(61 * time.Second)
	ok, err = l.Allow(ctx, "1.2.3.4:/login")
	require.NoError(t, err)
	assert.True(t, ok, "counter resets once the window expires")
}

func TestRedisLimiterRestoresMissingTTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniRedis(t)
	l := NewRedisLimiter(client, 3, time.Minute)

	// A counter left over from a dropped EXPIRE has no TTL.
	mr.Select(2)
	require.NoError(t, mr.Set("sipitali:ratelimit:9.9.9.9:/login", "7"))

	ok, err := l.Allow(ctx, "9.9.9.9:/login")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, time.Minute, mr.TTL("sipitali:ratelimit:9.9.9.9:/login"))

	mr.FastForward(time.Minute + time.Second)
	ok, err = l.Allow(ctx, "9.9.9.9:/login")
	require.NoError(t, err)
	assert.True(t, ok)
}
