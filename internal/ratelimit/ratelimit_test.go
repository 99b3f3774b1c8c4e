package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/checkoutrelay/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestTokenBucketExhaustsBurst(t *testing.T) {
	_, client := newRedis(t)
	bucket := NewTokenBucket(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := bucket.Allow(ctx, "bucket:user_1", 0.01, 3)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
	}

	res, err := bucket.Allow(ctx, "bucket:user_1", 0.01, 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	other, err := bucket.Allow(ctx, "bucket:user_2", 0.01, 3)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestTokenBucketValidatesArguments(t *testing.T) {
	_, client := newRedis(t)
	bucket := NewTokenBucket(client)

	_, err := bucket.Allow(context.Background(), "", 1, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "k", 0, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "k", 1, 0)
	assert.Error(t, err)

	var nilBucket *TokenBucket
	_, err = nilBucket.Allow(context.Background(), "k", 1, 1)
	assert.Error(t, err)
}

func TestLockerSerializesHolders(t *testing.T) {
	_, client := newRedis(t)
	locker := NewLocker(client, time.Second)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "eligibility:user_1")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 80*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "eligibility:user_1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock()

	again, err := locker.Lock(ctx, "eligibility:user_1")
	require.NoError(t, err)
	again()
}

func TestLockerReleaseKeepsForeignToken(t *testing.T) {
	srv, client := newRedis(t)
	locker := NewLocker(client, time.Second)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locker.Release(ctx, "k", "someone-else"))
	assert.True(t, srv.Exists("k"))

	require.NoError(t, locker.Release(ctx, "k", token))
	assert.False(t, srv.Exists("k"))
}

func TestOrderLimiter(t *testing.T) {
	_, client := newRedis(t)
	cfg := config.Config{RateLimit: config.RateLimitConfig{Enabled: true, OrderRate: 0.01, OrderBurst: 1}}

	limiter, err := NewOrderLimiter(cfg, client)
	require.NoError(t, err)

	res, err := limiter.AllowUser(context.Background(), "user_1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.AllowUser(context.Background(), "user_1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestOrderLimiterDisabled(t *testing.T) {
	limiter, err := NewOrderLimiter(config.Config{}, nil)
	require.NoError(t, err)
	assert.False(t, limiter.Enabled())

	res, err := limiter.AllowUser(context.Background(), "user_1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	_, err = NewOrderLimiter(config.Config{RateLimit: config.RateLimitConfig{Enabled: true, OrderRate: 1, OrderBurst: 1}}, nil)
	assert.Error(t, err)
}

func TestNewConsumeLockerWithoutRedis(t *testing.T) {
	assert.Nil(t, NewConsumeLocker(config.Config{}, nil))
}

func TestCastHelpers(t *testing.T) {
	assert.EqualValues(t, 1, castToInt(int64(1)))
	assert.EqualValues(t, 2, castToInt("2"))
	assert.InDelta(t, 2.5, castToFloat("2.5"), 1e-9)
	assert.InDelta(t, 3, castToFloat(int64(3)), 1e-9)
	assert.Zero(t, castToFloat("nan-ish"))
}
