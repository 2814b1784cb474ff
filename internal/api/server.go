package api

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	httpapi "github.com/serglom21/distributed-queue-instrumentation/internal/api/http"
	"github.com/serglom21/distributed-queue-instrumentation/internal/broker"
	"github.com/serglom21/distributed-queue-instrumentation/internal/logger"
	"github.com/serglom21/distributed-queue-instrumentation/internal/metrics"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
)

// Server manages the HTTP delivery boundary on top of a broker
type Server struct {
	broker     *broker.Broker
	httpServer *httpapi.Server
	log        zerolog.Logger
	ready      bool
	mu         sync.RWMutex
}

// Config holds configuration for the API server
type Config struct {
	HTTPAddr           string
	CORSAllowedOrigins []string
	Tracer             tracectx.Tracer
	APIMetrics         *metrics.APIMetrics
}

// NewServer creates a new API server
func NewServer(cfg Config, b *broker.Broker) *Server {
	s := &Server{
		broker: b,
		log:    logger.WithComponent("api"),
	}

	s.httpServer = httpapi.NewServer(cfg.HTTPAddr, b, httpapi.RouterConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Tracer:             cfg.Tracer,
		APIMetrics:         cfg.APIMetrics,
	})

	return s
}

// Start starts the broker and the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return nil
	}

	s.log.Info().Msg("Starting API server")

	// Start the broker first so listeners and buffered messages are live
	// before the boundary accepts requests.
	if err := s.broker.Start(ctx); err != nil {
		return err
	}

	if err := s.httpServer.Start(ctx); err != nil {
		s.broker.Stop(ctx)
		return err
	}

	s.ready = true
	s.log.Info().Msg("API server started")

	return nil
}

// Stop gracefully stops the HTTP server and the broker
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return nil
	}

	s.log.Info().Msg("Stopping API server")

	// Stop the HTTP server first so no new sends race broker shutdown.
	if err := s.httpServer.Stop(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Error stopping HTTP server")
	}

	if err := s.broker.Stop(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Error stopping broker")
	}

	s.ready = false
	s.log.Info().Msg("API server stopped")

	return nil
}

// Ready returns true if the server is ready
func (s *Server) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready && s.httpServer.Ready() && s.broker.Ready()
}
