package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/serglom21/distributed-queue-instrumentation/internal/api/http/handlers"
	"github.com/serglom21/distributed-queue-instrumentation/internal/broker"
	"github.com/serglom21/distributed-queue-instrumentation/internal/logger"
)

// statusBroadcastInterval is how often queue status is pushed to WebSocket
// subscribers.
const statusBroadcastInterval = 2 * time.Second

// Server represents an HTTP server
type Server struct {
	broker     *broker.Broker
	httpServer *http.Server
	addr       string
	log        zerolog.Logger
	ready      bool
	mu         sync.RWMutex
	router     *Router
	hub        *handlers.Hub
	stopCh     chan struct{}
}

// NewServer creates a new HTTP server
func NewServer(addr string, b *broker.Broker, cfg RouterConfig) *Server {
	s := &Server{
		broker: b,
		addr:   addr,
		log:    logger.WithComponent("http"),
		hub:    handlers.NewHub(),
	}

	s.router = NewRouter(b, s.hub, cfg)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return nil
	}

	s.log.Info().Str("addr", s.addr).Msg("Starting HTTP server")

	s.stopCh = make(chan struct{})

	// The hub runs for the life of the process.
	go s.hub.Run()
	go s.broadcastLoop()

	// Start server in a goroutine
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	s.ready = true
	s.log.Info().Str("addr", s.addr).Msg("HTTP server started")

	return nil
}

// broadcastLoop pushes the redacted queue status to WebSocket subscribers on
// a fixed interval.
func (s *Server) broadcastLoop() {
	ticker := time.NewTicker(statusBroadcastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.hub.BroadcastQueueStatus(s.broker.Status())
		}
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return nil
	}

	s.log.Info().Msg("Stopping HTTP server")

	close(s.stopCh)

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.httpServer.Close()
		return err
	}

	s.ready = false
	s.log.Info().Msg("HTTP server stopped")

	return nil
}

// Ready returns true if the server is ready
func (s *Server) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}
