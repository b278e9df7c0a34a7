package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/grafeodb/gwp/internal/session"
	"github.com/grafeodb/gwp/internal/txn"
)

// newOpsRouter builds the ambient HTTP surface served alongside the gRPC
// listener: a liveness probe and a plaintext metrics endpoint reporting
// registry occupancy. There is no REST data-plane API here; GQL traffic
// stays on the gRPC services in package wire.
func newOpsRouter(sessions *session.Registry, transactions *txn.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(w, "gwp_active_sessions %d\n", sessions.Count())
		fmt.Fprintf(w, "gwp_active_transactions %d\n", transactions.Count())
	})

	return r
}
