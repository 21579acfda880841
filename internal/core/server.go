// Package core provides the API chassis for the hubwatch read API. It builds a
// chi router and applies the cross-cutting concerns (panic recovery, request
// IDs, logging, CORS, metrics) before requests reach the handlers.
package core

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"hubwatch/internal/config"
)

// MetricsCollector records API telemetry. route is the chi route pattern, so
// path parameters do not explode label cardinality.
type MetricsCollector interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
}

// Server holds the dependencies of the HTTP API. Fields are set after
// NewServer and before MountRoutes.
type Server struct {
	Config       *config.Config
	Logger       *slog.Logger
	Validator    *Validator
	Metrics      MetricsCollector
	HealthProbes []HealthProbe

	// Events feeds GET /v1/events. The stream is not mounted when nil.
	Events EventSource
	// MetricsHandler is served at GET /metrics when set.
	MetricsHandler http.Handler

	// V1RouteRegistrars mount the domain handlers under /v1. They are
	// populated by main to keep core free of handler imports.
	V1RouteRegistrars []func(chi.Router)

	router *chi.Mux
}

// NewServer creates a Server with an empty router.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	v, err := NewValidator(logger)
	if err != nil {
		return nil, fmt.Errorf("create validator: %w", err)
	}
	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: v,
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// HTTPServer wraps the router in an http.Server listening on the configured
// port. Write timeouts are left unset because /v1/events streams.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              ":" + s.Config.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
