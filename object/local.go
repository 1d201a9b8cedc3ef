package object

import "context"

// Local is a handle to an instance living in this process. It executes every
// call inline on the calling goroutine, including methods declared Async —
// asynchrony is a property of remote dispatch, not of the method itself.
//
// Local remembers the original constructor arguments so Relocate can rebuild
// the instance on a worker. Relocation replays those arguments only: state
// mutated on the local instance after construction is NOT carried over. This
// matches the behavior callers of Relocate must expect; relocate at
// construction time (Registry.NewRemote) when in doubt.
type Local struct {
	class    *Class
	recv     any
	ctorArgs Args
}

// Class returns the handle's class name.
func (l *Local) Class() string { return l.class.Name() }

// Instance returns the backing instance.
func (l *Local) Instance() any { return l.recv }

// Call executes a method inline and returns its result.
func (l *Local) Call(ctx context.Context, method string, args Args) (any, error) {
	return l.class.Call(ctx, l.recv, method, args)
}

// Get reads an exposed attribute.
func (l *Local) Get(ctx context.Context, attr string) (any, error) {
	return l.class.Call(ctx, l.recv, attr, Args{})
}

// Relocate moves the object to a worker and returns a Remote handle. The
// worker constructs a fresh instance from the original constructor
// arguments; afterwards this Local handle is orphaned and must not be used.
func (l *Local) Relocate(ctx context.Context, opts ...RelocateOption) (*Remote, error) {
	return newRemote(ctx, l.class, l.ctorArgs, opts...)
}
