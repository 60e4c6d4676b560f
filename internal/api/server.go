// Package api exposes the risk engine over HTTP for the host platform's
// login flow and admin console.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ukallavi/Secura-sub000/internal/baseline"
	"github.com/ukallavi/Secura-sub000/internal/domain"
	"github.com/ukallavi/Secura-sub000/internal/monitoring"
	"github.com/ukallavi/Secura-sub000/internal/review"
	"github.com/ukallavi/Secura-sub000/internal/rules"
	"github.com/ukallavi/Secura-sub000/internal/scorer"
	"github.com/ukallavi/Secura-sub000/internal/signals"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(
	cfg domain.ServerConfig,
	scoringCfg domain.ScoringConfig,
	repo domain.Repository,
	cache domain.Cache,
	baselines *baseline.Service,
	sc *scorer.Service,
	sigs *signals.Service,
	mon *monitoring.Controller,
	rw *review.Workflow,
	engine *rules.Engine,
	version string,
) *Server {
	handler := NewHandler(repo, cache, baselines, sc, sigs, mon, rw, engine, scoringCfg, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	// API routes (tenant required)
	router.Route("/", func(r chi.Router) {
		r.Use(TenantMiddleware)

		// Risk assessment
		r.Post("/assess", handler.Assess)

		// Login event recording
		r.Post("/logins", handler.RecordLogin)

		// Baseline inspection
		r.Get("/baselines/{userId}", handler.GetBaseline)

		// Monitoring control
		r.Put("/monitoring/{userId}", handler.EnableMonitoring)
		r.Delete("/monitoring/{userId}", handler.DisableMonitoring)
		r.Get("/monitoring/{userId}", handler.GetMonitoring)

		// Suspicious-activity review
		r.Get("/suspicious-activities", handler.ListSuspicious)
		r.Get("/suspicious-activities/{id}", handler.GetSuspicious)
		r.Post("/suspicious-activities/{id}/review", handler.ReviewSuspicious)

		// Escalation rule management
		r.Get("/rules", handler.ListRules)
		r.Get("/rules/{id}", handler.GetRule)
		r.Post("/rules", handler.CreateRule)
		r.Post("/rules/reload", handler.ReloadRules)

		// Audit log
		r.Get("/audit", handler.ListAudit)
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
