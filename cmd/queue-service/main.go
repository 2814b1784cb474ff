package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/serglom21/distributed-queue-instrumentation/internal/api"
	"github.com/serglom21/distributed-queue-instrumentation/internal/broker"
	"github.com/serglom21/distributed-queue-instrumentation/internal/config"
	"github.com/serglom21/distributed-queue-instrumentation/internal/logger"
	"github.com/serglom21/distributed-queue-instrumentation/internal/metrics"
	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
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
		Service:    "queue-service",
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
	log.Info().Str("version", version.String()).Msg("Starting queue service")

	provider, err := tracing.NewProvider(tracing.TracingConfig{
		Enabled:        cfg.Metrics.TracingEnabled,
		ServiceName:    "queue-service",
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
	queueMetrics := metrics.NewQueueMetrics(collector)
	apiMetrics := metrics.NewAPIMetrics(collector)

	b := broker.New(queue.NewStore(), broker.WithMetrics(queueMetrics))

	server := api.NewServer(api.Config{
		HTTPAddr:           cfg.Server.HTTPAddr,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		APIMetrics:         apiMetrics,
	}, b)

	ctx := context.Background()
	if err := server.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start API server")
	}

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, collector.GetRegistry())
		if err := metricsServer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to start metrics server")
		}
	}

	log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("Queue service is ready")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping API server")
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
