package object

import (
	"context"
	"fmt"

	"github.com/tethergo-dev/tethergo/proto"
)

// Remote is the local stand-in for an object living inside a worker runtime.
// It holds only the remote identity (worker address, object id) and the
// class descriptor; all real state lives in the worker's object pool.
//
// There is no distributed garbage collection: dropping the last Remote does
// not delete the backing instance. Call Close to delete it explicitly, or
// leave it to live until the worker process ends.
type Remote struct {
	addr     string
	objectID string
	desc     *Descriptor
	client   proto.ObjectServiceClient
}

// Addr returns the hosting worker's address.
func (r *Remote) Addr() string { return r.addr }

// ID returns the remote object id.
func (r *Remote) ID() string { return r.objectID }

// Class returns the handle's class name.
func (r *Remote) Class() string { return r.desc.Class }

// Call forwards a method invocation to the backing instance. Dispatch
// follows the class descriptor: synchronous methods block until the worker
// returns the result; asynchronous methods return a *Future immediately.
func (r *Remote) Call(ctx context.Context, method string, args Args) (any, error) {
	mi, ok := r.desc.Info(method)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, r.desc.Class, method)
	}
	if mi.Private {
		return nil, fmt.Errorf("%w: %s.%s", ErrPrivateMethod, r.desc.Class, method)
	}
	if err := args.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s args: %v", ErrSerialization, method, err)
	}

	resp, err := r.client.InvokeMethod(ctx, &proto.InvokeRequest{
		ObjectID: r.objectID,
		Method:   method,
		Args:     args.Positional,
		Kwargs:   args.Keyword,
	})
	if err != nil {
		return nil, fromStatus(err, r.desc.Class+"."+method)
	}

	if resp.Async {
		return &Future{addr: r.addr, taskID: resp.TaskID, client: r.client}, nil
	}
	return resp.Result, nil
}

// CallFuture is Call for methods known to be asynchronous; it saves the
// caller a type assertion.
func (r *Remote) CallFuture(ctx context.Context, method string, args Args) (*Future, error) {
	res, err := r.Call(ctx, method, args)
	if err != nil {
		return nil, err
	}
	f, ok := res.(*Future)
	if !ok {
		return nil, fmt.Errorf("%s.%s is synchronous", r.desc.Class, method)
	}
	return f, nil
}

// Get reads an exposed attribute. Attribute reads are always synchronous.
func (r *Remote) Get(ctx context.Context, attr string) (any, error) {
	mi, ok := r.desc.Info(attr)
	if !ok || !mi.Attr {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownMethod, r.desc.Class, attr)
	}
	if mi.Private {
		return nil, fmt.Errorf("%w: %s.%s", ErrPrivateMethod, r.desc.Class, attr)
	}

	resp, err := r.client.InvokeMethod(ctx, &proto.InvokeRequest{
		ObjectID: r.objectID,
		Method:   attr,
	})
	if err != nil {
		return nil, fromStatus(err, r.desc.Class+"."+attr)
	}
	return resp.Result, nil
}

// Close deletes the backing instance from the worker's pool. Deletion is
// idempotent: closing an already-deleted object succeeds. The shared
// connection to the worker stays open for other handles.
func (r *Remote) Close(ctx context.Context) error {
	_, err := r.client.DeleteObject(ctx, &proto.DeleteRequest{ObjectID: r.objectID})
	if err != nil {
		return fromStatus(err, "delete "+r.objectID)
	}
	return nil
}
