// Command gwp-test-server is a standalone test server for GWP integration
// testing: it starts a gRPC server backed by mockbackend on the given port,
// with no configuration file, no TLS, and no authentication. Used by client
// and integration tests across language bindings.
//
// Usage: gwp-test-server [port]  (default: 50051)
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/grafeodb/gwp/backend/mockbackend"
	"github.com/grafeodb/gwp/server"
)

func main() {
	port := 50051
	if len(os.Args) > 1 {
		p, err := strconv.Atoi(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "gwp-test-server: invalid port %q: %v\n", os.Args[1], err)
			os.Exit(2)
		}
		port = p
	}
	addr := fmt.Sprintf("0.0.0.0:%d", port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	srv := server.NewBuilder(mockbackend.New()).Build()

	fmt.Fprintf(os.Stderr, "GWP test server listening on %s\n", addr)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		slog.Error("gwp-test-server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}
