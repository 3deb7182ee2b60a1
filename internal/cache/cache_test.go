package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLocker(rdb, "resolver:"), mr
}

func TestRedisLocker_Exclusive(t *testing.T) {
	ctx := context.Background()
	locker, mr := newTestLocker(t)

	release, err := locker.Acquire(ctx, "market:7", time.Minute)
	require.NoError(t, err)
	assert.True(t, mr.Exists("resolver:market:7"))

	_, err = locker.Acquire(ctx, "market:7", time.Minute)
	assert.ErrorIs(t, err, ErrLockHeld)

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("resolver:market:7"))

	release2, err := locker.Acquire(ctx, "market:7", time.Minute)
	require.NoError(t, err)
	require.NoError(t, release2(ctx))
}

func TestRedisLocker_ReleaseKeepsForeignLease(t *testing.T) {
	ctx := context.Background()
	locker, mr := newTestLocker(t)

	release, err := locker.Acquire(ctx, "market:9", time.Second)
	require.NoError(t, err)

	// lease expires and another owner takes it
	mr.FastForward(2 * time.Second)
	other, err := locker.Acquire(ctx, "market:9", time.Minute)
	require.NoError(t, err)

	require.NoError(t, release(ctx))
	assert.True(t, mr.Exists("resolver:market:9"))

	require.NoError(t, other(ctx))
	assert.False(t, mr.Exists("resolver:market:9"))
}

func TestNoopLocker(t *testing.T) {
	release, err := NoopLocker{}.Acquire(context.Background(), "x", time.Second)
	require.NoError(t, err)
	assert.NoError(t, release(context.Background()))
}
