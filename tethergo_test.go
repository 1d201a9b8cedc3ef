package tethergo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tethergo-dev/tethergo/pkg/config"
	"github.com/tethergo-dev/tethergo/pkg/store"
)

func TestBuildStoreMemory(t *testing.T) {
	cfg := config.Default()
	cfg.Store.TTL = "1m"
	cfg.Store.MaxEntries = 100

	st, err := BuildStore(cfg)
	require.NoError(t, err)
	defer st.Close()

	_, ok := st.(*store.MemoryStore)
	assert.True(t, ok)
}

func TestBuildStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Store.Backend = "redis"
	cfg.Store.Redis.Addr = mr.Addr()

	st, err := BuildStore(cfg)
	require.NoError(t, err)
	defer st.Close()

	_, ok := st.(*store.RedisStore)
	assert.True(t, ok)
}

func TestBuildStoreRejectsBadTTL(t *testing.T) {
	cfg := config.Default()
	cfg.Store.TTL = "whenever"

	_, err := BuildStore(cfg)
	assert.Error(t, err)
}

func TestRunConfigServesUntilCanceled(t *testing.T) {
	cfg := config.Default()
	cfg.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunConfig(ctx, cfg, nil) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("launcher did not stop after cancellation")
	}
}
