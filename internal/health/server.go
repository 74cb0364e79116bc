// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	xglog "github.com/ManuGH/cc4sflow/internal/log"
)

// Server exposes /healthz, /readyz and /metrics on a side port while
// work is in progress.
type Server struct {
	addr    string
	manager *Manager
}

// NewServer returns a probe server for the given listen address.
func NewServer(addr string, manager *Manager) *Server {
	return &Server{addr: addr, manager: manager}
}

// Router builds the probe routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.manager.ServeHealth)
	r.Get("/readyz", s.manager.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	logger := xglog.WithComponent("health")

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", s.addr).Msg("probe server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
