package object

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// PrivateMarker prefixes method names that must never be invoked through a
// remote handle. Constructors are equally off-limits; they are only reachable
// through creation requests.
const PrivateMarker = "_"

// Constructor builds a fresh instance from constructor arguments.
type Constructor func(ctx context.Context, args Args) (any, error)

// MethodFunc executes one method against a live instance. Implementations
// that mutate shared instance state must do their own locking: the runtime
// never serializes concurrent asynchronous invocations against one object.
type MethodFunc func(ctx context.Context, recv any, args Args) (any, error)

// AttrFunc reads one exposed attribute from a live instance. Attribute reads
// are always synchronous.
type AttrFunc func(recv any) any

// HistoryFunc exposes an object's conversational-history equivalent to the
// read-only introspection interface.
type HistoryFunc func(recv any) []any

// MethodInfo is the per-method entry of a class descriptor.
type MethodInfo struct {
	Name    string
	Async   bool
	Private bool
	Attr    bool
}

// Descriptor is the method table of a class, computed once when the class is
// built and shared by every handle. It decides synchronous versus
// asynchronous dispatch without a round trip.
type Descriptor struct {
	Class   string
	Methods map[string]MethodInfo
}

// Info returns the descriptor entry for a method name.
func (d *Descriptor) Info(name string) (MethodInfo, bool) {
	mi, ok := d.Methods[name]
	return mi, ok
}

// Class describes one relocatable type: its constructor, its declared
// methods and attributes, and the descriptor derived from them.
type Class struct {
	name    string
	ctor    Constructor
	methods map[string]method
	attrs   map[string]AttrFunc
	history HistoryFunc
	desc    *Descriptor
}

type method struct {
	fn    MethodFunc
	async bool
}

// ClassBuilder assembles a Class. Declare every public method exactly once;
// Build freezes the descriptor.
type ClassBuilder struct {
	name    string
	ctor    Constructor
	methods map[string]method
	attrs   map[string]AttrFunc
	history HistoryFunc
	err     error
}

// NewClass starts building a relocatable class with the given name and
// constructor. The name is the identifier creation requests use; it must be
// registered under the same name on every worker that will host instances.
func NewClass(name string, ctor Constructor) *ClassBuilder {
	b := &ClassBuilder{
		name:    name,
		ctor:    ctor,
		methods: make(map[string]method),
		attrs:   make(map[string]AttrFunc),
	}
	if name == "" {
		b.err = fmt.Errorf("class name is required")
	}
	if ctor == nil {
		b.err = fmt.Errorf("class %s: constructor is required", name)
	}
	return b
}

// Sync declares a synchronous method: callers block until the result is
// ready.
func (b *ClassBuilder) Sync(name string, fn MethodFunc) *ClassBuilder {
	return b.add(name, fn, false)
}

// Async declares an asynchronous method: remote callers receive a Future
// immediately and the work runs on the worker's bounded executor.
func (b *ClassBuilder) Async(name string, fn MethodFunc) *ClassBuilder {
	return b.add(name, fn, true)
}

// Attr declares an exposed attribute. Reads are always synchronous and the
// attribute set also feeds the introspection listing.
func (b *ClassBuilder) Attr(name string, fn AttrFunc) *ClassBuilder {
	if b.err != nil {
		return b
	}
	if fn == nil {
		b.err = fmt.Errorf("class %s: attr %s has no getter", b.name, name)
		return b
	}
	if _, dup := b.attrs[name]; dup {
		b.err = fmt.Errorf("class %s: attr %s declared twice", b.name, name)
		return b
	}
	b.attrs[name] = fn
	return b
}

// History declares the hook that exposes the object's history snapshot to
// the introspection interface.
func (b *ClassBuilder) History(fn HistoryFunc) *ClassBuilder {
	b.history = fn
	return b
}

func (b *ClassBuilder) add(name string, fn MethodFunc, async bool) *ClassBuilder {
	if b.err != nil {
		return b
	}
	if name == "" || fn == nil {
		b.err = fmt.Errorf("class %s: method needs a name and a func", b.name)
		return b
	}
	if _, dup := b.methods[name]; dup {
		b.err = fmt.Errorf("class %s: method %s declared twice", b.name, name)
		return b
	}
	b.methods[name] = method{fn: fn, async: async}
	return b
}

// Build freezes the class and computes its descriptor. The descriptor is
// computed exactly once here, never per instance or per call.
func (b *ClassBuilder) Build() (*Class, error) {
	if b.err != nil {
		return nil, b.err
	}

	desc := &Descriptor{
		Class:   b.name,
		Methods: make(map[string]MethodInfo, len(b.methods)+len(b.attrs)),
	}
	for name, m := range b.methods {
		desc.Methods[name] = MethodInfo{
			Name:    name,
			Async:   m.async,
			Private: strings.HasPrefix(name, PrivateMarker),
		}
	}
	for name := range b.attrs {
		if _, clash := desc.Methods[name]; clash {
			return nil, fmt.Errorf("class %s: %s declared as both method and attr", b.name, name)
		}
		desc.Methods[name] = MethodInfo{
			Name:    name,
			Private: strings.HasPrefix(name, PrivateMarker),
			Attr:    true,
		}
	}

	return &Class{
		name:    b.name,
		ctor:    b.ctor,
		methods: b.methods,
		attrs:   b.attrs,
		history: b.history,
		desc:    desc,
	}, nil
}

// MustBuild is Build for package-level class declarations; it panics on a
// malformed class.
func MustBuild(b *ClassBuilder) *Class {
	c, err := b.Build()
	if err != nil {
		panic(err)
	}
	return c
}

// Name returns the registered class name.
func (c *Class) Name() string { return c.name }

// Descriptor returns the frozen method table.
func (c *Class) Descriptor() *Descriptor { return c.desc }

// New constructs a real instance.
func (c *Class) New(ctx context.Context, args Args) (any, error) {
	return c.ctor(ctx, args)
}

// Call executes a method or attribute read against a live instance. Panics
// inside the method are recovered and reported as errors so one misbehaving
// invocation cannot take down the hosting worker.
func (c *Class) Call(ctx context.Context, recv any, name string, args Args) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s.%s panicked: %v", c.name, name, p)
		}
	}()

	if m, ok := c.methods[name]; ok {
		return m.fn(ctx, recv, args)
	}
	if getter, ok := c.attrs[name]; ok {
		return getter(recv), nil
	}
	return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, c.name, name)
}

// Fields evaluates every exposed attribute of an instance. Used by the
// read-only introspection listing.
func (c *Class) Fields(recv any) map[string]any {
	if len(c.attrs) == 0 {
		return nil
	}
	fields := make(map[string]any, len(c.attrs))
	for name, getter := range c.attrs {
		fields[name] = getter(recv)
	}
	return fields
}

// HistorySnapshot returns the object's exposed history, or nil when the
// class declares none.
func (c *Class) HistorySnapshot(recv any) []any {
	if c.history == nil {
		return nil
	}
	return c.history(recv)
}

// MethodNames returns the declared method and attribute names, sorted.
func (c *Class) MethodNames() []string {
	names := make([]string, 0, len(c.desc.Methods))
	for name := range c.desc.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
