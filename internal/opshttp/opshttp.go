// Package opshttp serves the operational surface the long-running cmd/
// binaries (dispo-bridge, dispo-scheduler) expose alongside their
// primary loop: liveness/readiness probes and a
// Prometheus scrape endpoint. This is deliberately not the customer-
// facing HTTP/HTML surface the spec puts out of scope — it is the
// same kind of health/metrics listener every service in the pack
// runs. Grounded on the chi-router shape in
// other_examples/8e675b9c_DrisanJames-project-jarvis_.../routes_mailing.go.go
// and the promhttp registration pattern used throughout
// jordigilh-kubernaut's health-monitoring tests.
package opshttp

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brightfunnel/disposition/internal/store"
)

// NewRouter builds the /healthz, /readyz, and /metrics handlers. st may
// be nil (readyz then always reports ok, for a caller that holds no
// store for the life of the process).
func NewRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if st == nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		if _, err := st.DistinctClientIDs(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Serve starts the ops HTTP server and blocks until ctx is canceled.
func Serve(ctx context.Context, addr string, st store.Store) error {
	srv := &http.Server{Addr: addr, Handler: NewRouter(st)}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	}
}
