package worker

import (
	"context"

	"github.com/tethergo-dev/tethergo/object"
)

// Spawn returns a SpawnFunc that starts a fresh in-process worker on an
// ephemeral loopback port each time a relocation asks for a new worker. The
// spawned worker serves until the process ends, the same lifetime a child
// worker process would have.
//
//	handle, err := reg.NewRemote(ctx, "WebAgent", object.A("W0"),
//		object.OnNewWorker(worker.Spawn(reg)))
func Spawn(registry *object.Registry, opts ...Option) object.SpawnFunc {
	return func(ctx context.Context) (string, error) {
		s := New(registry, append([]Option{WithPort(0), WithLocalOnly(true)}, opts...)...)
		if err := s.Start(ctx); err != nil {
			return "", err
		}
		return s.Addr(), nil
	}
}
