package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tethergo-dev/tethergo/object"
	"github.com/tethergo-dev/tethergo/worker"
)

// relayClass declares an asynchronous method that, while running, attaches
// to a peer object on the same worker and waits for one of the peer's
// asynchronous methods. Two executor tokens are needed for the pair to make
// progress.
func relayClass(t *testing.T, reg *object.Registry) *object.Class {
	t.Helper()

	c, err := object.NewClass("Relay", func(ctx context.Context, args object.Args) (any, error) {
		return &struct{}{}, nil
	}).
		Async("Forward", func(ctx context.Context, recv any, args object.Args) (any, error) {
			peer, err := reg.Attach("Gadget", args.String(0), args.String(1))
			if err != nil {
				return nil, err
			}
			f, err := peer.CallFuture(ctx, "SlowEcho", object.A(args.At(2), 10))
			if err != nil {
				return nil, err
			}
			waitCtx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
			defer cancel()
			return f.Resolve(waitCtx)
		}).
		Build()
	require.NoError(t, err)
	return c
}

func startRelayWorker(t *testing.T, capacity int) (*worker.Server, *object.Registry) {
	t.Helper()

	reg := object.NewRegistry()
	require.NoError(t, reg.Register(gadgetClass(t)))
	require.NoError(t, reg.Register(relayClass(t, reg)))

	s := worker.New(reg, worker.WithPort(0), worker.WithCapacity(capacity))
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s, reg
}

// With capacity 1 the relay's task holds the only executor token while it
// waits for the peer's task, which can never get one. The cycle starves
// until the relay gives up.
func TestExecutorTooSmallForObjectCycle(t *testing.T) {
	ctx := context.Background()
	w, reg := startRelayWorker(t, 1)

	gadget, err := reg.NewRemote(ctx, "Gadget", object.A("peer"), object.ToWorker(w.Addr()))
	require.NoError(t, err)
	relay, err := reg.NewRemote(ctx, "Relay", object.Args{}, object.ToWorker(w.Addr()))
	require.NoError(t, err)

	f, err := relay.CallFuture(ctx, "Forward", object.A(w.Addr(), gadget.ID(), "msg"))
	require.NoError(t, err)

	_, err = f.Resolve(ctx)
	require.Error(t, err)
	var remoteErr *object.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Contains(t, remoteErr.Message, "context deadline exceeded")
}

// One extra token breaks the cycle: the peer's task runs while the relay
// waits.
func TestExecutorSizedForObjectCycle(t *testing.T) {
	ctx := context.Background()
	w, reg := startRelayWorker(t, 2)

	gadget, err := reg.NewRemote(ctx, "Gadget", object.A("peer"), object.ToWorker(w.Addr()))
	require.NoError(t, err)
	relay, err := reg.NewRemote(ctx, "Relay", object.Args{}, object.ToWorker(w.Addr()))
	require.NoError(t, err)

	f, err := relay.CallFuture(ctx, "Forward", object.A(w.Addr(), gadget.ID(), "msg"))
	require.NoError(t, err)

	v, err := f.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, "msg", v)
}
