package proto

import (
	"context"

	"google.golang.org/grpc"
)

// Wire types and service plumbing for the worker's ObjectService. Written by
// hand against the registered JSON codec; the wire contract is the struct
// fields below, so keep them stable.

// CreateRequest asks a worker to construct an instance of a registered class.
type CreateRequest struct {
	ClassName string         `json:"class_name"`
	Args      []any          `json:"args,omitempty"`
	Kwargs    map[string]any `json:"kwargs,omitempty"`
}

// CreateResponse carries the fresh object id.
type CreateResponse struct {
	ObjectID string `json:"object_id"`
}

// InvokeRequest invokes one method (or attribute read) on a pooled object.
type InvokeRequest struct {
	ObjectID string         `json:"object_id"`
	Method   string         `json:"method"`
	Args     []any          `json:"args,omitempty"`
	Kwargs   map[string]any `json:"kwargs,omitempty"`
}

// InvokeResponse carries either the synchronous result or, for asynchronous
// methods, the task id under which the result will appear.
type InvokeResponse struct {
	Async  bool   `json:"async,omitempty"`
	TaskID string `json:"task_id,omitempty"`
	Result any    `json:"result,omitempty"`
}

// Task statuses reported by FetchResult.
const (
	TaskPending = "pending"
	TaskOK      = "ok"
	TaskFailed  = "failed"
	TaskEvicted = "evicted"
)

// FetchRequest asks for the result of an asynchronous task.
type FetchRequest struct {
	TaskID string `json:"task_id"`
}

// FetchResponse reports the task status; Result is set for TaskOK, Error for
// TaskFailed.
type FetchResponse struct {
	Status string `json:"status"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// DeleteRequest removes an object from the pool. Idempotent.
type DeleteRequest struct {
	ObjectID string `json:"object_id"`
}

// DeleteResponse acknowledges a deletion.
type DeleteResponse struct {
	OK bool `json:"ok"`
}

// StatusRequest asks a worker for its runtime status.
type StatusRequest struct{}

// StatusResponse is the read-only worker status used by dashboards.
type StatusResponse struct {
	WorkerID      string   `json:"worker_id"`
	Addr          string   `json:"addr"`
	UptimeSeconds float64  `json:"uptime_seconds"`
	Objects       int      `json:"objects"`
	PendingTasks  int      `json:"pending_tasks"`
	Capacity      int      `json:"capacity"`
	MemAllocBytes uint64   `json:"mem_alloc_bytes"`
	Goroutines    int      `json:"goroutines"`
	Classes       []string `json:"classes"`
}

// ListRequest asks for the live objects of a worker.
type ListRequest struct{}

// ObjectInfo describes one pooled object for the read-only listing.
type ObjectInfo struct {
	ObjectID  string         `json:"object_id"`
	ClassName string         `json:"class_name"`
	Fields    map[string]any `json:"fields,omitempty"`
	CreatedAt string         `json:"created_at"`
}

// ListResponse carries the object listing.
type ListResponse struct {
	Objects []ObjectInfo `json:"objects"`
}

// InspectRequest asks for one object's exposed snapshot.
type InspectRequest struct {
	ObjectID string `json:"object_id"`
}

// InspectResponse carries the object's descriptive fields and its exposed
// history, when the class declares one.
type InspectResponse struct {
	Object  ObjectInfo `json:"object"`
	History []any      `json:"history,omitempty"`
}

const serviceName = "tethergo.ObjectService"

// ObjectServiceClient is the client view of a worker runtime.
type ObjectServiceClient interface {
	CreateObject(ctx context.Context, in *CreateRequest, opts ...grpc.CallOption) (*CreateResponse, error)
	InvokeMethod(ctx context.Context, in *InvokeRequest, opts ...grpc.CallOption) (*InvokeResponse, error)
	FetchResult(ctx context.Context, in *FetchRequest, opts ...grpc.CallOption) (*FetchResponse, error)
	DeleteObject(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error)
	Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error)
	ListObjects(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error)
	InspectObject(ctx context.Context, in *InspectRequest, opts ...grpc.CallOption) (*InspectResponse, error)
}

type objectServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewObjectServiceClient creates a client bound to the given connection.
func NewObjectServiceClient(cc grpc.ClientConnInterface) ObjectServiceClient {
	return &objectServiceClient{cc}
}

func invoke[Resp any](c *objectServiceClient, ctx context.Context, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *objectServiceClient) CreateObject(ctx context.Context, in *CreateRequest, opts ...grpc.CallOption) (*CreateResponse, error) {
	return invoke[CreateResponse](c, ctx, "CreateObject", in, opts)
}

func (c *objectServiceClient) InvokeMethod(ctx context.Context, in *InvokeRequest, opts ...grpc.CallOption) (*InvokeResponse, error) {
	return invoke[InvokeResponse](c, ctx, "InvokeMethod", in, opts)
}

func (c *objectServiceClient) FetchResult(ctx context.Context, in *FetchRequest, opts ...grpc.CallOption) (*FetchResponse, error) {
	return invoke[FetchResponse](c, ctx, "FetchResult", in, opts)
}

func (c *objectServiceClient) DeleteObject(ctx context.Context, in *DeleteRequest, opts ...grpc.CallOption) (*DeleteResponse, error) {
	return invoke[DeleteResponse](c, ctx, "DeleteObject", in, opts)
}

func (c *objectServiceClient) Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](c, ctx, "Status", in, opts)
}

func (c *objectServiceClient) ListObjects(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	return invoke[ListResponse](c, ctx, "ListObjects", in, opts)
}

func (c *objectServiceClient) InspectObject(ctx context.Context, in *InspectRequest, opts ...grpc.CallOption) (*InspectResponse, error) {
	return invoke[InspectResponse](c, ctx, "InspectObject", in, opts)
}

// ObjectServiceServer is the server view of a worker runtime.
type ObjectServiceServer interface {
	CreateObject(context.Context, *CreateRequest) (*CreateResponse, error)
	InvokeMethod(context.Context, *InvokeRequest) (*InvokeResponse, error)
	FetchResult(context.Context, *FetchRequest) (*FetchResponse, error)
	DeleteObject(context.Context, *DeleteRequest) (*DeleteResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
	ListObjects(context.Context, *ListRequest) (*ListResponse, error)
	InspectObject(context.Context, *InspectRequest) (*InspectResponse, error)
}

func unaryHandler[Req any](method string, call func(context.Context, *Req) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + serviceName + "/" + method,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(ctx, req.(*Req))
			})
		},
	}
}

// RegisterObjectServiceServer registers the worker service with gRPC.
func RegisterObjectServiceServer(s grpc.ServiceRegistrar, srv ObjectServiceServer) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*ObjectServiceServer)(nil),
		Methods: []grpc.MethodDesc{
			unaryHandler("CreateObject", func(ctx context.Context, in *CreateRequest) (any, error) {
				return srv.CreateObject(ctx, in)
			}),
			unaryHandler("InvokeMethod", func(ctx context.Context, in *InvokeRequest) (any, error) {
				return srv.InvokeMethod(ctx, in)
			}),
			unaryHandler("FetchResult", func(ctx context.Context, in *FetchRequest) (any, error) {
				return srv.FetchResult(ctx, in)
			}),
			unaryHandler("DeleteObject", func(ctx context.Context, in *DeleteRequest) (any, error) {
				return srv.DeleteObject(ctx, in)
			}),
			unaryHandler("Status", func(ctx context.Context, in *StatusRequest) (any, error) {
				return srv.Status(ctx, in)
			}),
			unaryHandler("ListObjects", func(ctx context.Context, in *ListRequest) (any, error) {
				return srv.ListObjects(ctx, in)
			}),
			unaryHandler("InspectObject", func(ctx context.Context, in *InspectRequest) (any, error) {
				return srv.InspectObject(ctx, in)
			}),
		},
		Metadata: "object_service.proto",
	}, srv)
}
