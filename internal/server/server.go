// Package server provides the HTTP server scaffold: a chi router with the
// standard middleware stack, a /health endpoint, and graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/jredh-dev/easyhope/internal/logging"
)

// Server is an HTTP server with standard middleware and graceful shutdown.
type Server struct {
	Router *chi.Mux

	log    zerolog.Logger
	srv    *http.Server
	checks []func() error
	onStop []func()
}

// New creates a Server with standard middleware already applied.
// The returned Router is ready for route registration.
func New(log zerolog.Logger) *Server {
	s := &Server{log: log}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(log))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)

	s.Router = r
	return s
}

// HealthCheck adds a dependency check to /health.
func (s *Server) HealthCheck(fn func() error) {
	s.checks = append(s.checks, fn)
}

// OnStop registers a function to call during graceful shutdown.
func (s *Server) OnStop(fn func()) {
	s.onStop = append(s.onStop, fn)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	for _, check := range s.checks {
		if err := check(); err != nil {
			logging.From(r).Error().Err(err).Msg("health check failed")
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK")) //nolint:errcheck
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener. OnStop hooks run after in-flight
// requests have finished.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.srv = &http.Server{
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: the admin overview stream stays open.
		IdleTimeout: 60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("server starting")
		errc <- s.srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.srv.Shutdown(shutdownCtx)
	if serveErr := <-errc; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) && err == nil {
		err = serveErr
	}
	for _, fn := range s.onStop {
		fn()
	}
	if err != nil {
		return err
	}
	s.log.Info().Msg("server stopped")
	return nil
}
