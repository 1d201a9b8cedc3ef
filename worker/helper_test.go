package worker_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tethergo-dev/tethergo/object"
	"github.com/tethergo-dev/tethergo/proto"
	"github.com/tethergo-dev/tethergo/worker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// gadget exercises the full dispatch surface: sync, async, panics,
// unserializable results, attributes and history.
type gadget struct {
	mu   sync.Mutex
	kind string
	hits int
	log  []any
}

func (g *gadget) hit() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hits++
	g.log = append(g.log, fmt.Sprintf("hit %d", g.hits))
	return g.hits
}

func gadgetClass(t *testing.T) *object.Class {
	t.Helper()

	c, err := object.NewClass("Gadget", func(ctx context.Context, args object.Args) (any, error) {
		if args.String(0) == "broken" {
			panic("refusing to build a broken gadget")
		}
		return &gadget{kind: args.String(0)}, nil
	}).
		Sync("Ping", func(ctx context.Context, recv any, args object.Args) (any, error) {
			return recv.(*gadget).hit(), nil
		}).
		Sync("Boom", func(ctx context.Context, recv any, args object.Args) (any, error) {
			panic("gadget exploded")
		}).
		Async("SlowEcho", func(ctx context.Context, recv any, args object.Args) (any, error) {
			time.Sleep(time.Duration(args.Int(1)) * time.Millisecond)
			return args.At(0), nil
		}).
		Async("BadResult", func(ctx context.Context, recv any, args object.Args) (any, error) {
			return make(chan int), nil
		}).
		Attr("Kind", func(recv any) any { return recv.(*gadget).kind }).
		History(func(recv any) []any {
			g := recv.(*gadget)
			g.mu.Lock()
			defer g.mu.Unlock()
			return append([]any(nil), g.log...)
		}).
		Build()
	require.NoError(t, err)
	return c
}

func gadgetRegistry(t *testing.T) *object.Registry {
	t.Helper()
	reg := object.NewRegistry()
	require.NoError(t, reg.Register(gadgetClass(t)))
	return reg
}

func startGadgetWorker(t *testing.T, opts ...worker.Option) (*worker.Server, *object.Registry) {
	t.Helper()

	reg := gadgetRegistry(t)
	s := worker.New(reg, append([]worker.Option{worker.WithPort(0)}, opts...)...)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s, reg
}

// rawClient gives tests the wire-level view of a worker, bypassing the
// handle layer.
func rawClient(t *testing.T, addr string) proto.ObjectServiceClient {
	t.Helper()

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(proto.CodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return proto.NewObjectServiceClient(conn)
}
