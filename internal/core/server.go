// Package core is the HTTP chassis shared by every sunpump route: a chi
// router, the global middleware chain, response envelopes, health probes
// and request validation. Domain handlers plug in through route registrars
// so core never imports them.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sunpump/internal/config"
)

// MetricsCollector records API telemetry.
type MetricsCollector interface {
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// RouteRegistrar mounts a group of routes onto a router.
type RouteRegistrar func(r chi.Router)

// Server holds the chassis dependencies. Fields other than Config and Logger
// are optional; a nil Metrics disables request metrics.
type Server struct {
	Config       *config.Config
	Logger       *slog.Logger
	Validator    *Validator
	Metrics      MetricsCollector
	HealthProbes []HealthProbe

	// RootRouteRegistrars mount pages outside the API namespace ("/").
	RootRouteRegistrars []RouteRegistrar
	// V1RouteRegistrars mount the JSON API under /v1.
	V1RouteRegistrars []RouteRegistrar

	router *chi.Mux
}

// NewServer validates the required dependencies and prepares an empty
// router. Callers add registrars and then call MountRoutes.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router for http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router exposes the chi.Mux for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases chassis resources. Probes that hold connections may
// implement io.Closer.
func (s *Server) Shutdown(_ context.Context) error {
	s.Logger.Info("server shutdown initiated")
	for _, p := range s.HealthProbes {
		closer, ok := p.(interface{ Close() error })
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			return fmt.Errorf("closing %s: %w", p.Name(), err)
		}
	}
	s.Logger.Info("server shutdown complete")
	return nil
}
