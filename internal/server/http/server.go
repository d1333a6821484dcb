// Package httpserver provides the HTTP REST API for the author request service.
package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/athenaeum/author-request-service/internal/database"
	"github.com/athenaeum/author-request-service/internal/review"
)

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	submission *review.SubmissionService
	engine     *review.Engine
	db         *database.DB
	logger     zerolog.Logger
	auth       func(http.Handler) http.Handler
	limiter    *clientLimiter
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
	Auth            AuthConfig
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(
	cfg Config,
	submission *review.SubmissionService,
	engine *review.Engine,
	db *database.DB,
	logger zerolog.Logger,
) *Server {
	s := &Server{
		submission: submission,
		engine:     engine,
		db:         db,
		logger:     logger.With().Str("component", "http-server").Logger(),
		auth:       authMiddleware(cfg.Auth),
	}

	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst > 0 {
		s.limiter = newClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() chi.Router {
	return s.router
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(jsonContentTypeMiddleware)

	// Health endpoints (no auth)
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth)
		if s.limiter != nil {
			r.Use(rateLimitMiddleware(s.limiter))
		}

		r.Route("/author-requests", func(r chi.Router) {
			r.Post("/", s.submitRequest)
			r.Get("/", s.listRequests)
			r.Get("/me", s.myRequest)
			r.Get("/{requestID}", s.getRequest)
			r.Put("/{requestID}", s.updateRequest)
			r.Delete("/{requestID}", s.withdrawRequest)

			r.Put("/{requestID}/approve", s.approveRequest)
			r.Put("/{requestID}/reject", s.rejectRequest)

			r.Post("/{requestID}/files", s.attachFile)
			r.Get("/{requestID}/files", s.listFiles)

			// Static segments win over the kind wildcard, so "files",
			// "approve" and "reject" are never captured as a kind.
			r.Post("/{requestID}/{kind}", s.addWorkItems)
			r.Delete("/{requestID}/{kind}/{itemID}", s.removeWorkItem)
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler returns readiness status.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	health := s.db.Health(r.Context())
	if health.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":   "not_ready",
			"database": health.Status,
			"error":    health.Error,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}
