// Package worker implements the long-lived runtime that hosts relocated
// objects: an object pool keyed by id, a bounded executor for asynchronous
// method calls, and the gRPC surface handles dispatch through.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tethergo-dev/tethergo/object"
	"github.com/tethergo-dev/tethergo/pkg/store"
	"github.com/tethergo-dev/tethergo/proto"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

// DefaultCapacity bounds concurrent asynchronous method execution. Size it
// at or above the number of objects that must run concurrently to make
// progress: objects hosted on one worker may call each other, and a pool
// smaller than a cycle of mutually-waiting objects deadlocks. The runtime
// does not detect this; it is an operational invariant.
const DefaultCapacity = 32

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("worker already started")

	// ErrNotStarted is returned when stopping a worker that never started.
	ErrNotStarted = errors.New("worker not started")
)

// Server hosts a pool of real object instances and executes calls against
// them. One running server may serve any number of unrelated calling
// processes over its lifetime; objects live until explicitly deleted or the
// process ends.
type Server struct {
	registry *object.Registry
	id       string

	host           string
	port           int
	localOnly      bool
	capacity       int
	httpPort       int
	maxMessageSize int

	store    store.Store
	ownStore bool

	mu   sync.RWMutex
	pool map[string]*poolEntry

	pendingMu sync.Mutex
	pending   map[string]struct{}

	// Bounded executor: each asynchronous task holds one token while it
	// runs. Acceptance never blocks; execution waits for a token.
	sem chan struct{}

	grpcServer *grpc.Server
	lis        net.Listener
	httpServer *http.Server
	httpLis    net.Listener

	metrics   *metrics
	startedAt time.Time
	started   bool
}

type poolEntry struct {
	class     *object.Class
	recv      any
	createdAt time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithHost sets the bind host. Ignored when the worker is local-only.
func WithHost(host string) Option {
	return func(s *Server) { s.host = host }
}

// WithPort sets the bind port (0 picks a free port).
func WithPort(port int) Option {
	return func(s *Server) { s.port = port }
}

// WithLocalOnly restricts accepted connections to the loopback interface.
// Default true: the runtime performs no authentication, so exposing a worker
// beyond localhost is an explicit deployment decision.
func WithLocalOnly(local bool) Option {
	return func(s *Server) { s.localOnly = local }
}

// WithCapacity sets the executor size. See DefaultCapacity for sizing.
func WithCapacity(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithStore sets the result store backend. The worker closes a store it
// created itself, never one handed in.
func WithStore(st store.Store) Option {
	return func(s *Server) {
		s.store = st
		s.ownStore = false
	}
}

// WithHTTPPort enables the read-only introspection server (status, object
// listing, Prometheus metrics) on the given port.
func WithHTTPPort(port int) Option {
	return func(s *Server) { s.httpPort = port }
}

// WithMaxMessageSize overrides the transport message size limit.
func WithMaxMessageSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxMessageSize = n
		}
	}
}

// New creates a worker runtime hosting instances of the registry's classes.
func New(registry *object.Registry, opts ...Option) *Server {
	s := &Server{
		registry:       registry,
		id:             uuid.NewString(),
		localOnly:      true,
		capacity:       DefaultCapacity,
		maxMessageSize: proto.DefaultMaxMessageSize,
		pool:           make(map[string]*poolEntry),
		pending:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.store == nil {
		s.store = store.NewMemoryStore(store.MemoryConfig{})
		s.ownStore = true
	}
	s.sem = make(chan struct{}, s.capacity)
	s.metrics = newMetrics()
	return s
}

// ID returns the worker's unique id.
func (s *Server) ID() string { return s.id }

// Addr returns the address the worker is reachable at.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lis != nil {
		return s.lis.Addr().String()
	}
	return fmt.Sprintf("%s:%d", s.bindHost(), s.port)
}

// HTTPAddr returns the introspection server address, or "" when disabled.
func (s *Server) HTTPAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.httpLis != nil {
		return s.httpLis.Addr().String()
	}
	return ""
}

func (s *Server) bindHost() string {
	if s.localOnly {
		return "127.0.0.1"
	}
	if s.host == "" {
		return "0.0.0.0"
	}
	return s.host
}

// Start binds the listeners and begins serving in the background. Use Serve
// for the blocking launcher form.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	addr := fmt.Sprintf("%s:%d", s.bindHost(), s.port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.lis = lis

	s.grpcServer = grpc.NewServer(
		grpc.MaxRecvMsgSize(s.maxMessageSize),
		grpc.MaxSendMsgSize(s.maxMessageSize),
	)
	proto.RegisterObjectServiceServer(s.grpcServer, &objectService{s: s})

	go func() {
		log.Printf("[Worker] %s listening on %s (capacity %d)", s.id, lis.Addr(), s.capacity)
		if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Printf("[Worker] gRPC server error: %v", err)
		}
	}()

	if s.httpPort != 0 {
		if err := s.startIntrospection(); err != nil {
			s.grpcServer.Stop()
			_ = lis.Close()
			return err
		}
	}

	s.startedAt = time.Now()
	s.started = true
	return nil
}

// Serve runs the launcher contract: bind, serve, and block until the context
// is canceled, then shut down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Stop(shutdownCtx)
}

// Stop shuts the worker down: the gRPC and introspection servers stop
// concurrently, then the worker's own store is closed. Pooled objects are
// dropped with the process, matching the no-distributed-GC contract.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrNotStarted
	}
	s.started = false
	grpcServer, httpServer := s.grpcServer, s.httpServer
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		done := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-gctx.Done():
			grpcServer.Stop()
			return gctx.Err()
		}
	})
	if httpServer != nil {
		g.Go(func() error {
			return httpServer.Shutdown(gctx)
		})
	}
	err := g.Wait()

	if s.ownStore {
		_ = s.store.Close()
	}
	log.Printf("[Worker] %s stopped", s.id)
	return err
}

// Uptime reports how long the worker has been serving.
func (s *Server) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

// ObjectCount returns the number of pooled objects.
func (s *Server) ObjectCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pool)
}

func (s *Server) lookup(objectID string) (*poolEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.pool[objectID]
	return e, ok
}

func (s *Server) addObject(e *poolEntry) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.pool[id] = e
	n := len(s.pool)
	s.mu.Unlock()
	s.metrics.objects.Set(float64(n))
	return id
}

// removeObject deletes an object id from the pool. Deleting an absent id is
// not an error.
func (s *Server) removeObject(objectID string) {
	s.mu.Lock()
	delete(s.pool, objectID)
	n := len(s.pool)
	s.mu.Unlock()
	s.metrics.objects.Set(float64(n))
}

func (s *Server) addPending(taskID string) {
	s.pendingMu.Lock()
	s.pending[taskID] = struct{}{}
	n := len(s.pending)
	s.pendingMu.Unlock()
	s.metrics.pendingTasks.Set(float64(n))
}

func (s *Server) removePending(taskID string) {
	s.pendingMu.Lock()
	delete(s.pending, taskID)
	n := len(s.pending)
	s.pendingMu.Unlock()
	s.metrics.pendingTasks.Set(float64(n))
}

func (s *Server) isPending(taskID string) bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	_, ok := s.pending[taskID]
	return ok
}

func (s *Server) pendingCount() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}
