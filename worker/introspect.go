package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tethergo-dev/tethergo/proto"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// The introspection server is the read-only surface dashboards consume. It
// never mutates worker state: status, object listing, per-object snapshot,
// and Prometheus metrics.
func (s *Server) startIntrospection() error {
	addr := fmt.Sprintf("%s:%d", s.bindHost(), s.httpPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.httpLis = lis

	svc := &objectService{s: s}
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		resp, err := svc.Status(r.Context(), &proto.StatusRequest{})
		writeJSON(w, resp, err)
	})
	mux.HandleFunc("GET /api/objects", func(w http.ResponseWriter, r *http.Request) {
		resp, err := svc.ListObjects(r.Context(), &proto.ListRequest{})
		writeJSON(w, resp, err)
	})
	mux.HandleFunc("GET /api/objects/{id}", func(w http.ResponseWriter, r *http.Request) {
		resp, err := svc.InspectObject(r.Context(), &proto.InspectRequest{ObjectID: r.PathValue("id")})
		writeJSON(w, resp, err)
	})

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("[Worker] introspection server listening on %s", lis.Addr())
		if err := s.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[Worker] introspection server error: %v", err)
		}
	}()
	return nil
}

func writeJSON(w http.ResponseWriter, v any, err error) {
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		code := http.StatusInternalServerError
		if status.Code(err) == codes.NotFound {
			code = http.StatusNotFound
		}
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}
