// Package server hosts an http.Handler with health endpoints and graceful
// shutdown.
//
// It is used by "studyplan mock serve":
//   - /health/live and /health/ready probes, the latter running the
//     registered dependency checks
//   - draining connections on shutdown up to ShutdownTimeout
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/studyplan/internal/errors"
	"github.com/felixgeelhaar/studyplan/internal/health"
	"github.com/felixgeelhaar/studyplan/internal/log"
)

// Server serves a handler next to health endpoints.
type Server struct {
	httpServer      *http.Server
	inShutdown      atomic.Bool
	ready           atomic.Bool
	shutdownTimeout time.Duration
	checks          *health.Manager
	logger          *log.Logger
}

// Config holds server configuration.
type Config struct {
	// Address is the listen address (e.g., "127.0.0.1:8787")
	Address string

	// ShutdownTimeout is the maximum time to wait for connections to drain during shutdown.
	// Defaults to 10 seconds if not specified.
	ShutdownTimeout time.Duration

	// ReadTimeout is the maximum duration for reading the entire request.
	// Defaults to 10 seconds if not specified.
	ReadTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request.
	// Defaults to 60 seconds if not specified.
	IdleTimeout time.Duration

	// Checks run on every readiness probe. Unhealthy checks fail it.
	Checks *health.Manager

	Logger *log.Logger
}

type probe struct {
	Status string          `json:"status"`
	Checks []health.Report `json:"checks,omitempty"`
}

// NewServer creates a server for handler.
func NewServer(handler http.Handler, cfg Config) *Server {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Discard()
	}

	s := &Server{
		shutdownTimeout: cfg.ShutdownTimeout,
		checks:          cfg.Checks,
		logger:          cfg.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", s.handleLiveness)
	mux.HandleFunc("GET /health/ready", s.handleReadiness)
	mux.HandleFunc("/health/", handleHealthFallback)
	mux.Handle("/", handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           mux,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		// No write timeout: event streams stay open for a whole generation.
		IdleTimeout: cfg.IdleTimeout,
	}
	return s
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.ready.Store(true)
		errCh <- s.httpServer.Serve(ln)
	}()
	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(errors.ErrCodeMockServe, "server stopped", err)
	case <-ctx.Done():
	}

	if err := s.Shutdown(context.WithoutCancel(ctx)); err != nil {
		return errors.Wrap(errors.ErrCodeMockServe, "shutdown failed", err)
	}
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.Wrap(errors.ErrCodeMockServe, "failed to listen on "+s.httpServer.Addr, err).
			WithSuggestion("Pick another address with --addr or mock.addr")
	}
	return s.Serve(ctx, ln)
}

// Shutdown marks the server as not ready, stops keep-alives and waits for
// open connections to drain, up to ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)
	s.ready.Store(false)
	s.httpServer.SetKeepAlivesEnabled(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down", "timeout", s.shutdownTimeout)
	return s.httpServer.Shutdown(shutdownCtx)
}

// IsShuttingDown returns whether the server is shutting down.
func (s *Server) IsShuttingDown() bool {
	return s.inShutdown.Load()
}

func writeProbe(w http.ResponseWriter, status int, p probe) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}

// handleLiveness always answers 200, also during shutdown.
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	p := probe{Status: "healthy"}
	if s.inShutdown.Load() {
		p.Status = "degraded"
	}
	writeProbe(w, http.StatusOK, p)
}

// handleHealthFallback keeps the health paths away from the wrapped handler:
// other methods on a probe get 405, unknown probes 404.
func handleHealthFallback(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health/live", "/health/ready":
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

// handleReadiness answers 503 until the server accepts connections, once
// shutdown begins and while a dependency check is unhealthy.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() || s.inShutdown.Load() {
		writeProbe(w, http.StatusServiceUnavailable, probe{Status: string(health.StatusUnhealthy)})
		return
	}
	if s.checks == nil {
		writeProbe(w, http.StatusOK, probe{Status: string(health.StatusHealthy)})
		return
	}

	reports := s.checks.Check(r.Context())
	p := probe{Status: string(health.Overall(reports)), Checks: reports}
	status := http.StatusOK
	if p.Status == string(health.StatusUnhealthy) {
		s.logger.Warn("readiness check failed", "checks", len(reports))
		status = http.StatusServiceUnavailable
	}
	writeProbe(w, status, p)
}
