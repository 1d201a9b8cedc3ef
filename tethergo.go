// Package tethergo is a distributed stateful-object runtime: objects
// registered as relocatable classes can be constructed inside a separate
// worker process and driven through a local handle as if they were
// in-process. Synchronous methods block; asynchronous methods return a
// Future resolved against the worker's result store.
//
// The object package holds the class registry and handles, the worker
// package the hosting runtime, and pkg/store the result store backends.
package tethergo

import (
	"context"
	"fmt"
	"log"

	"github.com/tethergo-dev/tethergo/internal/observability"
	"github.com/tethergo-dev/tethergo/object"
	"github.com/tethergo-dev/tethergo/pkg/config"
	"github.com/tethergo-dev/tethergo/pkg/store"
	"github.com/tethergo-dev/tethergo/worker"
)

// Run serves a worker runtime configured from the YAML file at path,
// hosting the classes of the given registry. It blocks until the context is
// canceled — the launcher contract. A nil registry serves object.Default.
func Run(ctx context.Context, configPath string, registry *object.Registry) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	return RunConfig(ctx, cfg, registry)
}

// RunConfig is Run with an already-built configuration.
func RunConfig(ctx context.Context, cfg *config.Config, registry *object.Registry) error {
	if registry == nil {
		registry = object.Default
	}

	if err := observability.InitFromEnv(); err != nil {
		return err
	}
	defer func() {
		if err := observability.Shutdown(context.Background()); err != nil {
			log.Printf("[Observability] shutdown error: %v", err)
		}
	}()

	st, err := BuildStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := []worker.Option{
		worker.WithHost(cfg.Host),
		worker.WithPort(cfg.Port),
		worker.WithLocalOnly(cfg.IsLocalOnly()),
		worker.WithCapacity(cfg.Capacity),
		worker.WithStore(st),
		worker.WithMaxMessageSize(cfg.MaxMessageBytes),
	}
	if cfg.HTTPPort != 0 {
		opts = append(opts, worker.WithHTTPPort(cfg.HTTPPort))
	}

	log.Printf("[Launcher] serving classes %v", registry.Classes())
	return worker.New(registry, opts...).Serve(ctx)
}

// BuildStore constructs the result store backend the configuration selects.
func BuildStore(cfg *config.Config) (store.Store, error) {
	ttl, err := cfg.StoreTTL()
	if err != nil {
		return nil, err
	}

	switch cfg.Store.Backend {
	case "memory":
		return store.NewMemoryStore(store.MemoryConfig{
			TTL:        ttl,
			MaxEntries: cfg.Store.MaxEntries,
		}), nil
	case "redis":
		return store.NewRedisStore(store.RedisConfig{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
			TTL:      ttl,
		})
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}
