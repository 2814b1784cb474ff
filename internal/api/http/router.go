package http

import (
	"net/http"

	"github.com/serglom21/distributed-queue-instrumentation/internal/api/http/handlers"
	"github.com/serglom21/distributed-queue-instrumentation/internal/api/http/middleware"
	"github.com/serglom21/distributed-queue-instrumentation/internal/broker"
	"github.com/serglom21/distributed-queue-instrumentation/internal/logger"
	"github.com/serglom21/distributed-queue-instrumentation/internal/metrics"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
)

// Router manages HTTP routes and middleware
type Router struct {
	mux           *http.ServeMux
	broker        *broker.Broker
	queueHandlers *handlers.QueueHandlers
	hub           *handlers.Hub
}

// RouterConfig carries the boundary policy the router wires into its
// middleware chain.
type RouterConfig struct {
	CORSAllowedOrigins []string
	Tracer             tracectx.Tracer
	APIMetrics         *metrics.APIMetrics
}

// NewRouter creates a new router
func NewRouter(b *broker.Broker, hub *handlers.Hub, cfg RouterConfig) *Router {
	r := &Router{
		mux:           http.NewServeMux(),
		broker:        b,
		queueHandlers: handlers.NewQueueHandlers(b),
		hub:           hub,
	}

	r.setupRoutes(cfg)

	return r
}

// Handler exposes the composed route tree so embedders and integration
// tests can mount the boundary on their own listener.
func (r *Router) Handler() http.Handler {
	return r.mux
}

// knownRoutes bounds the endpoint label on request metrics.
var knownRoutes = map[string]bool{
	"/queue/send":    true,
	"/queue/receive": true,
	"/queue/status":  true,
	"/health":        true,
	"/ready":         true,
	"/ws":            true,
}

// setupRoutes sets up all HTTP routes
func (r *Router) setupRoutes(cfg RouterConfig) {
	log := logger.WithComponent("http.middleware")

	tracer := cfg.Tracer
	if tracer == nil {
		tracer = tracectx.New()
	}

	// Create middleware chain. Recovery sits outermost so a panic anywhere
	// below it still produces a 500.
	chain := middleware.Chain(
		middleware.Recovery(log),
		middleware.CORS(cfg.CORSAllowedOrigins),
		middleware.Logging(log),
		middleware.Metrics(cfg.APIMetrics, knownRoutes),
		middleware.Tracing(tracer, log),
	)

	// Health check endpoints
	r.mux.Handle("/health", chain(http.HandlerFunc(handlers.HealthCheck)))
	r.mux.Handle("/ready", chain(handlers.ReadinessCheck(r.broker)))

	// Queue API endpoints
	r.mux.Handle("/queue/send", chain(http.HandlerFunc(r.queueHandlers.Send)))
	r.mux.Handle("/queue/receive", chain(http.HandlerFunc(r.queueHandlers.Receive)))
	r.mux.Handle("/queue/status", chain(http.HandlerFunc(r.queueHandlers.Status)))

	// The WebSocket endpoint skips the writer-wrapping middleware because
	// the upgrade has to hijack the raw connection.
	r.mux.Handle("/ws", middleware.Chain(
		middleware.Recovery(log),
	)(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		handlers.ServeWebSocket(r.hub, w, req)
	})))
}
