package object

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tethergo-dev/tethergo/proto"
)

// Registry holds the set of relocatable classes known to this process. The
// same classes must be registered (under the same names) in every worker
// process that will host instances; a worker refuses creation requests for
// classes it does not know.
type Registry struct {
	mu      sync.RWMutex
	classes map[string]*Class
}

// NewRegistry creates an empty class registry.
func NewRegistry() *Registry {
	return &Registry{classes: make(map[string]*Class)}
}

// Default is the process-wide registry used by the CLI worker and by the
// package-level Register helper.
var Default = NewRegistry()

// Register adds a class to the default registry.
func Register(c *Class) error { return Default.Register(c) }

// Register adds a class. Registering two classes under one name is an error.
func (r *Registry) Register(c *Class) error {
	if c == nil {
		return fmt.Errorf("nil class")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.classes[c.Name()]; exists {
		return fmt.Errorf("class %s already registered", c.Name())
	}
	r.classes[c.Name()] = c
	return nil
}

// Lookup returns a registered class by name.
func (r *Registry) Lookup(name string) (*Class, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[name]
	return c, ok
}

// Classes returns the registered class names, sorted.
func (r *Registry) Classes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New constructs an instance locally and wraps it in a Local handle. The
// handle remembers the original constructor arguments so the instance can be
// relocated later.
func (r *Registry) New(ctx context.Context, className string, args Args) (*Local, error) {
	c, ok := r.Lookup(className)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredClass, className)
	}
	recv, err := c.New(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", className, err)
	}
	return &Local{class: c, recv: recv, ctorArgs: args}, nil
}

// NewRemote constructs an instance directly on a worker, without ever
// materializing it locally. This is the recommended path for objects that
// are expensive to build. The target worker is chosen by the relocation
// option: ToWorker for an already-running worker, OnNewWorker to start one.
func (r *Registry) NewRemote(ctx context.Context, className string, args Args, opts ...RelocateOption) (*Remote, error) {
	c, ok := r.Lookup(className)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredClass, className)
	}
	return newRemote(ctx, c, args, opts...)
}

// Attach builds a Remote handle to an object already living in a worker's
// pool. Any number of callers may hold handles to the same pooled object;
// the runtime does not serialize their access to its state. Attach performs
// no round trip: a wrong object id surfaces as ErrNotFound on the first call.
func (r *Registry) Attach(className, addr, objectID string) (*Remote, error) {
	c, ok := r.Lookup(className)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredClass, className)
	}
	client, err := dial(addr)
	if err != nil {
		return nil, err
	}
	return &Remote{
		addr:     addr,
		objectID: objectID,
		desc:     c.Descriptor(),
		client:   client,
	}, nil
}

// SpawnFunc starts a brand-new worker runtime and returns its address. The
// worker package provides implementations; keeping the type here avoids a
// dependency cycle.
type SpawnFunc func(ctx context.Context) (addr string, err error)

// RelocateOption selects where a relocated object will live.
type RelocateOption func(*relocateTarget)

type relocateTarget struct {
	addr  string
	spawn SpawnFunc
}

// ToWorker relocates onto an already-running worker at host:port.
func ToWorker(addr string) RelocateOption {
	return func(t *relocateTarget) { t.addr = addr }
}

// OnNewWorker starts a fresh worker for the object using the given spawner.
func OnNewWorker(spawn SpawnFunc) RelocateOption {
	return func(t *relocateTarget) { t.spawn = spawn }
}

func resolveTarget(ctx context.Context, opts []RelocateOption) (string, error) {
	var t relocateTarget
	for _, opt := range opts {
		opt(&t)
	}
	if t.addr != "" {
		return t.addr, nil
	}
	if t.spawn != nil {
		addr, err := t.spawn(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: start worker: %v", ErrConnection, err)
		}
		return addr, nil
	}
	return "", fmt.Errorf("relocation target required: use ToWorker or OnNewWorker")
}

func newRemote(ctx context.Context, c *Class, args Args, opts ...RelocateOption) (*Remote, error) {
	if err := args.validate(); err != nil {
		return nil, fmt.Errorf("%w: constructor args: %v", ErrSerialization, err)
	}

	addr, err := resolveTarget(ctx, opts)
	if err != nil {
		return nil, err
	}

	client, err := dial(addr)
	if err != nil {
		return nil, err
	}

	resp, err := client.CreateObject(ctx, &proto.CreateRequest{
		ClassName: c.Name(),
		Args:      args.Positional,
		Kwargs:    args.Keyword,
	})
	if err != nil {
		return nil, fromStatus(err, "create "+c.Name())
	}

	return &Remote{
		addr:     addr,
		objectID: resp.ObjectID,
		desc:     c.Descriptor(),
		client:   client,
	}, nil
}
