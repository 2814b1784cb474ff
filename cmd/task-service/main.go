package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/serglom21/distributed-queue-instrumentation/internal/api/http/handlers"
	"github.com/serglom21/distributed-queue-instrumentation/internal/api/http/middleware"
	"github.com/serglom21/distributed-queue-instrumentation/internal/config"
	"github.com/serglom21/distributed-queue-instrumentation/internal/logger"
	"github.com/serglom21/distributed-queue-instrumentation/internal/metrics"
	"github.com/serglom21/distributed-queue-instrumentation/internal/task"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracing"
	"github.com/serglom21/distributed-queue-instrumentation/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&logger.Config{
		Service:    "task-service",
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		Rotation:   cfg.Logging.Rotation,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log := logger.WithComponent("main")
	log.Info().
		Str("version", version.String()).
		Float64("reject_rate", cfg.Task.RejectRate).
		Msg("Starting task service")

	provider, err := tracing.NewProvider(tracing.TracingConfig{
		Enabled:        cfg.Metrics.TracingEnabled,
		ServiceName:    "task-service",
		ServiceVersion: version.Get().Version,
		Endpoint:       cfg.Metrics.TracingEndpoint,
		Insecure:       cfg.Metrics.TracingInsecure,
		ExporterType:   cfg.Metrics.TracingExporter,
		SampleRate:     cfg.Metrics.TracingSampleRate,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}

	collector := metrics.NewCollector()
	taskMetrics := metrics.NewTaskMetrics(collector)

	// Demo admission policy: reject a configurable fraction of submissions
	// so the blocked path stays visible in traces and metrics.
	rejectRate := cfg.Task.RejectRate
	predicate := func(ctx context.Context, t task.Task) error {
		if rand.Float64() < rejectRate {
			return errors.New("rejected by demo admission policy")
		}
		return nil
	}

	h := task.NewHandler(task.CountDecisions(taskMetrics, predicate))

	chain := middleware.Chain(
		middleware.Recovery(log),
		middleware.Logging(log),
		middleware.Tracing(tracectx.New(), log),
	)

	mux := http.NewServeMux()
	mux.Handle("/task/submit", chain(http.HandlerFunc(h.Submit)))
	mux.Handle("/health", chain(http.HandlerFunc(handlers.HealthCheck)))

	srv := &http.Server{
		Addr:              cfg.Task.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx := context.Background()

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, collector.GetRegistry())
		if err := metricsServer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to start metrics server")
		}
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Task.HTTPAddr).Msg("Task service is ready")
		errChan <- srv.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("Shutting down")
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Task service stopped unexpectedly")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping task service")
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping metrics server")
		}
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down tracing")
	}
}
