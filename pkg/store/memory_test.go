package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(MemoryConfig{})
	defer s.Close()

	require.NoError(t, s.Put(ctx, "t1", &Result{OK: true, Value: 42}))

	res, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, 42, res.Value)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreRejectsDuplicateWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(MemoryConfig{})
	defer s.Close()

	require.NoError(t, s.Put(ctx, "t1", &Result{OK: true, Value: "first"}))
	assert.ErrorIs(t, s.Put(ctx, "t1", &Result{OK: true, Value: "second"}), ErrDuplicate)

	res, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "first", res.Value)
}

func TestMemoryStoreTTLEviction(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(MemoryConfig{TTL: 20 * time.Millisecond, SweepInterval: time.Hour})
	defer s.Close()

	require.NoError(t, s.Put(ctx, "t1", &Result{OK: true, Value: 1}))

	res, err := s.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Value)

	// Expiry is enforced on read even though the sweeper never ran.
	time.Sleep(50 * time.Millisecond)
	_, err = s.Get(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestMemoryStoreCountEviction(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(MemoryConfig{MaxEntries: 3})
	defer s.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Put(ctx, fmt.Sprintf("t%d", i), &Result{OK: true, Value: i}))
	}
	assert.Equal(t, 3, s.Len())

	// Oldest went first.
	_, err := s.Get(ctx, "t0")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)

	res, err := s.Get(ctx, "t4")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Value)
}

func TestMemoryStoreClose(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(MemoryConfig{TTL: time.Minute})

	require.NoError(t, s.Put(ctx, "t1", &Result{OK: true}))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Put(ctx, "t2", &Result{OK: true}), ErrClosed)
	_, err := s.Get(ctx, "t1")
	assert.ErrorIs(t, err, ErrClosed)
}
