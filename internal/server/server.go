package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"vidpulse/internal/config"
	"vidpulse/internal/logger"
	"vidpulse/internal/pipeline"
)

// Pinger reports whether the user store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// TickRunner runs one scheduler pass
type TickRunner interface {
	RunTick(ctx context.Context, now time.Time) (*pipeline.TickReport, error)
}

// Server exposes health and manual trigger endpoints next to the cron driver
type Server struct {
	router      *chi.Mux
	httpServer  *http.Server
	db          Pinger
	runner      TickRunner
	config      config.Server
	tickTimeout time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// New creates a new HTTP server instance
func New(db Pinger, runner TickRunner, cfg config.Server, tickTimeout time.Duration) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		db:          db,
		runner:      runner,
		config:      cfg,
		tickTimeout: tickTimeout,
		now:         time.Now,
		log:         logger.Get().With().Str("component", "server").Logger(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.requireAdminAPI)
		r.Post("/tick", s.handleTick)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().
		Str("addr", s.httpServer.Addr).
		Dur("read_timeout", s.config.ReadTimeout).
		Dur("write_timeout", s.config.WriteTimeout).
		Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.log.Info().Msg("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
