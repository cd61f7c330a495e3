package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dronelink/dronelinkd/internal/auth"
	"github.com/dronelink/dronelinkd/internal/metrics"
)

// Options configures a Server. Manager and Telemetry are required.
type Options struct {
	Manager   SessionSource
	Telemetry TelemetryPort

	// Auth defaults to a middleware without verifier (anonymous access).
	Auth *auth.Middleware

	// Metrics adds request counting and GET /metrics when set.
	Metrics *metrics.Metrics

	Logger *slog.Logger

	// CommandWait bounds how long POST /commands waits for an outcome.
	CommandWait time.Duration

	Version string
}

// Server is the HTTP API.
type Server struct {
	opts       Options
	logger     *slog.Logger
	startTime  time.Time
	handler    http.Handler
	once       sync.Once
	httpServer *http.Server
}

// NewServer creates a server.
func NewServer(opts Options) *Server {
	if opts.Auth == nil {
		opts.Auth = auth.NewMiddleware(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CommandWait <= 0 {
		opts.CommandWait = 30 * time.Second
	}
	return &Server{
		opts:      opts,
		logger:    opts.Logger.With("component", "api"),
		startTime: time.Now(),
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	s.once.Do(func() { s.handler = s.routes() })
	return s.handler
}

// Start serves on addr until Stop.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		// No WriteTimeout: telemetry streams stay open.
	}

	s.logger.Info("HTTP API listening", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}
	return nil
}
