package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client, "", ttl)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStorePutGet(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t, 0)

	require.NoError(t, s.Put(ctx, "t1", &Result{OK: true, Value: 42}))

	res, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.EqualValues(t, 42, res.Value)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreRejectsDuplicateWrites(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t, 0)

	require.NoError(t, s.Put(ctx, "t1", &Result{OK: true, Value: "first"}))
	assert.ErrorIs(t, s.Put(ctx, "t1", &Result{OK: true, Value: "second"}), ErrDuplicate)

	res, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "first", res.Value)
}

func TestRedisStoreTTLEviction(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedisStore(t, time.Second)

	require.NoError(t, s.Put(ctx, "t1", &Result{OK: true, Value: 1}))

	res, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Value)

	mr.FastForward(2 * time.Second)

	_, err = s.Get(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreFailedResultRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t, 0)

	require.NoError(t, s.Put(ctx, "t1", &Result{Error: "division by zero"}))

	res, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "division by zero", res.Error)
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client, "custom:", 0)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Put(ctx, "t1", &Result{OK: true}))
	assert.True(t, mr.Exists("custom:t1"))
}

func TestRedisStoreClose(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestRedisStore(t, 0)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Put(ctx, "t1", &Result{OK: true}), ErrClosed)
	_, err := s.Get(ctx, "t1")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Ping(ctx), ErrClosed)
}

func TestNewRedisStoreRequiresAddr(t *testing.T) {
	_, err := NewRedisStore(RedisConfig{})
	assert.Error(t, err)
}

func TestNewRedisStorePingsOnConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := NewRedisStore(RedisConfig{Addr: mr.Addr(), TTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.NoError(t, s.Ping(context.Background()))
}
