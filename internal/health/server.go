package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roshanbot/roshan/internal/observe"
)

// shutdownTimeout bounds how long in-flight probe requests may hold up
// process exit.
const shutdownTimeout = 5 * time.Second

// Server is the bot's operational HTTP surface: /healthz, /readyz and
// the Prometheus /metrics endpoint. It serves nothing user-facing.
type Server struct {
	srv *http.Server
}

// NewServer builds the Server on the given listen address. Requests run
// through [observe.Middleware] so probe latency lands in the metrics it
// serves.
func NewServer(addr string, h *Handler, m *observe.Metrics) *Server {
	mux := http.NewServeMux()
	h.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           observe.Middleware(m)(mux),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("health: serve %s: %w", s.srv.Addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
