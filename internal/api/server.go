// Package api provides the HTTP chassis for the plantcare service: a chi
// router with logging, request correlation, panic recovery, and the shared
// response envelope, with domain handlers mounted under /v1.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"plantcare/internal/config"
)

// Server encapsulates the router and the cross-cutting middleware stack.
// Domain handlers are mounted by the caller after construction so tests can
// customize route registration.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	router *chi.Mux
	http   *http.Server
}

// RouteMounter is implemented by handlers that register themselves on the
// router.
type RouteMounter interface {
	RegisterRoutes(r chi.Router)
}

// NewServer builds the middleware stack and prepares the router for mounting.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(),
		router:    chi.NewRouter(),
	}

	s.router.Use(Recoverer(logger))
	s.router.Use(RequestID)
	s.router.Use(RequestLogger(logger))

	s.router.Get("/health", s.handleHealth)

	return s, nil
}

// MountRoutes registers the given handlers under the /v1 prefix.
func (s *Server) MountRoutes(mounters ...RouteMounter) {
	s.router.Route("/v1", func(r chi.Router) {
		for _, m := range mounters {
			m.RegisterRoutes(r)
		}
	})
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe runs the HTTP server until the listener fails or Shutdown
// is called.
func (s *Server) ListenAndServe() error {
	s.http = &http.Server{
		Addr:         ":" + s.Config.Server.Port,
		Handler:      s.router,
		ReadTimeout:  s.Config.Server.ReadTimeout,
		WriteTimeout: s.Config.Server.WriteTimeout,
	}
	s.Logger.Info("http server listening", "port", s.Config.Server.Port)
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.Config.Service,
	})
}
