package object_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tethergo-dev/tethergo/object"
	"github.com/tethergo-dev/tethergo/pkg/store"
	"github.com/tethergo-dev/tethergo/worker"
)

// counter is the relocatable type the handle tests drive around.
type counter struct {
	mu    sync.Mutex
	name  string
	value int
	ops   []any
}

func (c *counter) add(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value += n
	c.ops = append(c.ops, fmt.Sprintf("add %d", n))
	return c.value
}

func counterClass(t *testing.T) *object.Class {
	t.Helper()

	c, err := object.NewClass("Counter", func(ctx context.Context, args object.Args) (any, error) {
		if args.Len() < 1 {
			return nil, fmt.Errorf("counter needs a name")
		}
		return &counter{name: args.String(0), value: args.Int(1)}, nil
	}).
		Sync("Add", func(ctx context.Context, recv any, args object.Args) (any, error) {
			return recv.(*counter).add(args.Int(0)), nil
		}).
		Async("SlowAdd", func(ctx context.Context, recv any, args object.Args) (any, error) {
			time.Sleep(time.Duration(args.Int(1)) * time.Millisecond)
			return recv.(*counter).add(args.Int(0)), nil
		}).
		Async("Stats", func(ctx context.Context, recv any, args object.Args) (any, error) {
			c := recv.(*counter)
			c.mu.Lock()
			defer c.mu.Unlock()
			return map[string]any{"name": c.name, "value": c.value}, nil
		}).
		Async("Pair", func(ctx context.Context, recv any, args object.Args) (any, error) {
			c := recv.(*counter)
			c.mu.Lock()
			defer c.mu.Unlock()
			return []any{c.name, c.value}, nil
		}).
		Async("Fail", func(ctx context.Context, recv any, args object.Args) (any, error) {
			return nil, fmt.Errorf("intentional failure")
		}).
		Sync("_reset", func(ctx context.Context, recv any, args object.Args) (any, error) {
			c := recv.(*counter)
			c.mu.Lock()
			defer c.mu.Unlock()
			c.value = 0
			return nil, nil
		}).
		Attr("Name", func(recv any) any { return recv.(*counter).name }).
		History(func(recv any) []any {
			c := recv.(*counter)
			c.mu.Lock()
			defer c.mu.Unlock()
			return append([]any(nil), c.ops...)
		}).
		Build()
	require.NoError(t, err)
	return c
}

func newTestRegistry(t *testing.T) *object.Registry {
	t.Helper()
	reg := object.NewRegistry()
	require.NoError(t, reg.Register(counterClass(t)))
	return reg
}

// startWorker runs an in-process worker on an ephemeral loopback port and
// shuts it down with the test.
func startWorker(t *testing.T, reg *object.Registry, opts ...worker.Option) *worker.Server {
	t.Helper()

	s := worker.New(reg, append([]worker.Option{worker.WithPort(0)}, opts...)...)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

// countingStore counts Get calls so tests can observe whether a resolved
// future goes back to the store.
type countingStore struct {
	store.Store
	gets atomic.Int64
}

func (c *countingStore) Get(ctx context.Context, taskID string) (*store.Result, error) {
	c.gets.Add(1)
	return c.Store.Get(ctx, taskID)
}
