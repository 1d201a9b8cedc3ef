package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tethergo-dev/tethergo"
	"github.com/tethergo-dev/tethergo/object"
	"github.com/tethergo-dev/tethergo/pkg/config"
	"github.com/tethergo-dev/tethergo/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Version is set via ldflags.
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "tethergo",
		Short:   "Distributed stateful-object runtime",
		Version: Version,
	}
	root.AddCommand(serveCmd(), statusCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// serveCmd runs the worker launcher: bind, serve the default registry's
// classes, and block until terminated.
func serveCmd() *cobra.Command {
	var (
		configFile string
		host       string
		port       int
		httpPort   int
		capacity   int
		localOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a worker runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg *config.Config
			if configFile != "" {
				loaded, err := config.Load(configFile)
				if err != nil {
					return err
				}
				cfg = loaded
			} else {
				cfg = config.Default()
				cfg.Host = host
				cfg.Port = port
				cfg.HTTPPort = httpPort
				cfg.Capacity = capacity
				cfg.LocalOnly = &localOnly
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return tethergo.RunConfig(ctx, cfg, object.Default)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "worker configuration file (overrides the other flags)")
	cmd.Flags().StringVar(&host, "host", "", "bind host")
	cmd.Flags().IntVar(&port, "port", 50051, "gRPC bind port")
	cmd.Flags().IntVar(&httpPort, "http-port", 0, "introspection HTTP port (0 = disabled)")
	cmd.Flags().IntVar(&capacity, "capacity", 32, "bounded executor size")
	cmd.Flags().BoolVar(&localOnly, "local-only", true, "accept loopback connections only")
	return cmd
}

// statusCmd queries a running worker's read-only status.
func statusCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show a running worker's status and objects",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := grpc.NewClient(addr,
				grpc.WithTransportCredentials(insecure.NewCredentials()),
				grpc.WithDefaultCallOptions(grpc.CallContentSubtype(proto.CodecName)),
			)
			if err != nil {
				return err
			}
			defer cc.Close()

			client := proto.NewObjectServiceClient(cc)
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			st, err := client.Status(ctx, &proto.StatusRequest{})
			if err != nil {
				return err
			}
			objs, err := client.ListObjects(ctx, &proto.ListRequest{})
			if err != nil {
				return err
			}

			out := json.NewEncoder(os.Stdout)
			out.SetIndent("", "  ")
			return out.Encode(map[string]any{
				"status":  st,
				"objects": objs.Objects,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:50051", "worker address")
	return cmd
}
