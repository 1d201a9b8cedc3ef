package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tethergo-dev/tethergo/internal/observability"
	"github.com/tethergo-dev/tethergo/object"
	"github.com/tethergo-dev/tethergo/pkg/store"
	"github.com/tethergo-dev/tethergo/proto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// objectService implements the gRPC ObjectService against a Server.
type objectService struct {
	s *Server
}

// toStatus maps runtime errors onto the wire taxonomy. Anything that is not
// a known sentinel is a user-level error from inside a method or
// constructor; it travels as codes.Unknown and surfaces client-side as a
// RemoteError bound to the one call that raised it.
func toStatus(err error) error {
	switch {
	case errors.Is(err, object.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, object.ErrUnregisteredClass):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, object.ErrUnknownMethod):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, object.ErrSerialization):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Unknown, err.Error())
	}
}

func (o *objectService) CreateObject(ctx context.Context, req *proto.CreateRequest) (*proto.CreateResponse, error) {
	if req.ClassName == "" {
		return nil, status.Error(codes.InvalidArgument, "class_name is required")
	}

	c, ok := o.s.registry.Lookup(req.ClassName)
	if !ok {
		return nil, status.Errorf(codes.FailedPrecondition, "class not registered on this worker: %s", req.ClassName)
	}

	ctx, span := observability.StartSpan(ctx, "worker.create",
		trace.WithAttributes(attribute.String("object.class", req.ClassName)),
	)
	defer span.End()

	args := object.Args{Positional: req.Args, Keyword: req.Kwargs}
	recv, err := construct(ctx, c, args)
	if err != nil {
		o.s.metrics.invocations.WithLabelValues(req.ClassName, "<init>", "sync", "error").Inc()
		return nil, toStatus(err)
	}

	id := o.s.addObject(&poolEntry{class: c, recv: recv, createdAt: time.Now()})
	o.s.metrics.invocations.WithLabelValues(req.ClassName, "<init>", "sync", "ok").Inc()
	log.Printf("[Worker] created %s %s", req.ClassName, id)
	return &proto.CreateResponse{ObjectID: id}, nil
}

// construct runs a constructor with the same panic isolation methods get.
func construct(ctx context.Context, c *object.Class, args object.Args) (recv any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("constructor of %s panicked: %v", c.Name(), p)
		}
	}()
	return c.New(ctx, args)
}

func (o *objectService) InvokeMethod(ctx context.Context, req *proto.InvokeRequest) (*proto.InvokeResponse, error) {
	entry, ok := o.s.lookup(req.ObjectID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "object not found: %s", req.ObjectID)
	}

	mi, known := entry.class.Descriptor().Info(req.Method)
	if !known {
		return nil, status.Errorf(codes.Unimplemented, "unknown method: %s.%s", entry.class.Name(), req.Method)
	}

	args := object.Args{Positional: req.Args, Keyword: req.Kwargs}

	// Synchronous methods and attribute reads execute inline, blocking the
	// calling RPC for the duration.
	if !mi.Async {
		ctx, span := observability.StartSpan(ctx, "worker.invoke",
			trace.WithAttributes(
				attribute.String("object.class", entry.class.Name()),
				attribute.String("object.method", req.Method),
				attribute.Bool("object.async", false),
			),
		)
		defer span.End()

		start := time.Now()
		result, err := entry.class.Call(ctx, entry.recv, req.Method, args)
		o.s.metrics.observe(entry.class.Name(), req.Method, "sync", start, err)
		if err != nil {
			return nil, toStatus(err)
		}
		return &proto.InvokeResponse{Result: result}, nil
	}

	// Asynchronous methods are accepted immediately: the caller gets a task
	// id and the work runs under the bounded executor.
	taskID := uuid.NewString()
	o.s.addPending(taskID)
	go o.s.runTask(taskID, entry, req.Method, args)
	return &proto.InvokeResponse{Async: true, TaskID: taskID}, nil
}

// runTask executes one asynchronous invocation. It acquires an executor
// token first: acceptance order is submission order, but execution
// interleaves freely within the capacity bound. Results land in the store
// before the task leaves the pending set, so a Fetch can never observe a
// completed task as evicted.
func (s *Server) runTask(taskID string, entry *poolEntry, method string, args object.Args) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()

	ctx, span := observability.StartSpan(context.Background(), "worker.task",
		trace.WithAttributes(
			attribute.String("object.class", entry.class.Name()),
			attribute.String("object.method", method),
			attribute.String("task.id", taskID),
		),
	)
	defer span.End()

	start := time.Now()
	val, err := entry.class.Call(ctx, entry.recv, method, args)
	s.metrics.observe(entry.class.Name(), method, "async", start, err)

	res := &store.Result{OK: err == nil, Value: val}
	if err != nil {
		res = &store.Result{Error: err.Error()}
	} else if _, merr := json.Marshal(val); merr != nil {
		// The value can never cross the transport; fail this task now
		// instead of failing every future fetch at the codec.
		res = &store.Result{Error: fmt.Sprintf("result of %s.%s is not serializable: %v", entry.class.Name(), method, merr)}
	}

	if perr := s.store.Put(ctx, taskID, res); perr != nil {
		// Duplicate puts indicate a runtime bug; store closure races only
		// happen during shutdown. Neither is recoverable here.
		log.Printf("[Worker] ERROR storing result for task %s: %v", taskID, perr)
	}
	s.removePending(taskID)
}

func (o *objectService) FetchResult(ctx context.Context, req *proto.FetchRequest) (*proto.FetchResponse, error) {
	if o.s.isPending(req.TaskID) {
		return &proto.FetchResponse{Status: proto.TaskPending}, nil
	}

	res, err := o.s.store.Get(ctx, req.TaskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &proto.FetchResponse{Status: proto.TaskEvicted}, nil
		}
		return nil, status.Errorf(codes.Internal, "result store: %v", err)
	}

	if !res.OK {
		return &proto.FetchResponse{Status: proto.TaskFailed, Error: res.Error}, nil
	}
	return &proto.FetchResponse{Status: proto.TaskOK, Result: res.Value}, nil
}

func (o *objectService) DeleteObject(ctx context.Context, req *proto.DeleteRequest) (*proto.DeleteResponse, error) {
	o.s.removeObject(req.ObjectID)
	return &proto.DeleteResponse{OK: true}, nil
}

func (o *objectService) Status(ctx context.Context, req *proto.StatusRequest) (*proto.StatusResponse, error) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return &proto.StatusResponse{
		WorkerID:      o.s.id,
		Addr:          o.s.Addr(),
		UptimeSeconds: o.s.Uptime().Seconds(),
		Objects:       o.s.ObjectCount(),
		PendingTasks:  o.s.pendingCount(),
		Capacity:      o.s.capacity,
		MemAllocBytes: mem.Alloc,
		Goroutines:    runtime.NumGoroutine(),
		Classes:       o.s.registry.Classes(),
	}, nil
}

func (o *objectService) ListObjects(ctx context.Context, req *proto.ListRequest) (*proto.ListResponse, error) {
	o.s.mu.RLock()
	infos := make([]proto.ObjectInfo, 0, len(o.s.pool))
	for id, e := range o.s.pool {
		infos = append(infos, objectInfo(id, e))
	}
	o.s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ObjectID < infos[j].ObjectID })
	return &proto.ListResponse{Objects: infos}, nil
}

func (o *objectService) InspectObject(ctx context.Context, req *proto.InspectRequest) (*proto.InspectResponse, error) {
	entry, ok := o.s.lookup(req.ObjectID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "object not found: %s", req.ObjectID)
	}
	return &proto.InspectResponse{
		Object:  objectInfo(req.ObjectID, entry),
		History: entry.class.HistorySnapshot(entry.recv),
	}, nil
}

func objectInfo(id string, e *poolEntry) proto.ObjectInfo {
	return proto.ObjectInfo{
		ObjectID:  id,
		ClassName: e.class.Name(),
		Fields:    e.class.Fields(e.recv),
		CreatedAt: e.createdAt.UTC().Format(time.RFC3339),
	}
}
