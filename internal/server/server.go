// Package server provides the HTTP API of courtsync: the full sync trigger,
// health checks, the OpenAPI document and Prometheus metrics.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/agentstation/courtsync/internal/server/handlers"
	"github.com/agentstation/courtsync/internal/server/middleware"
	"github.com/agentstation/courtsync/internal/telemetry"
	"github.com/agentstation/courtsync/pkg/errors"
)

// Deps are the collaborators served over HTTP.
type Deps struct {
	Syncer     handlers.FullSyncer
	Components []handlers.Component
	Metrics    *telemetry.Metrics
	// Gatherer backs /metrics. Defaults to the Prometheus default gatherer.
	Gatherer prometheus.Gatherer
	Logger   *zerolog.Logger
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	handlers  *handlers.Handlers
	validator *middleware.Validator
	gatherer  prometheus.Gatherer
	logger    *zerolog.Logger
	config    Config
	startTime time.Time
}

// New creates a new server instance with the given configuration.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Syncer == nil {
		return nil, errors.NewConfigError("server", "a syncer is required", nil)
	}
	validator, err := middleware.NewValidator(cfg.Auth)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		handlers:  handlers.New(deps.Syncer, deps.Components, deps.Metrics, logger),
		validator: validator,
		gatherer:  gatherer,
		logger:    logger,
		config:    cfg,
		startTime: time.Now(),
	}, nil
}

// Handler returns the configured http.Handler with middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.setupRouter()
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// ListenAndServe serves until ctx is cancelled, then drains outstanding
// requests for up to the shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server failed to start: %w", err)
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info().Dur("uptime", time.Since(s.startTime)).Msg("HTTP server stopped gracefully")
	return nil
}

// StartTime returns the server start time for uptime calculations.
func (s *Server) StartTime() time.Time {
	return s.startTime
}
