package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/serglom21/distributed-queue-instrumentation/client"
	"github.com/serglom21/distributed-queue-instrumentation/internal/config"
	"github.com/serglom21/distributed-queue-instrumentation/internal/logger"
	"github.com/serglom21/distributed-queue-instrumentation/internal/metrics"
	"github.com/serglom21/distributed-queue-instrumentation/internal/task"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracing"
	"github.com/serglom21/distributed-queue-instrumentation/internal/version"
	"github.com/serglom21/distributed-queue-instrumentation/internal/worker"
)

const (
	defaultName         = "relay-worker"
	defaultQueue        = "task-queue"
	defaultForwardQueue = "python-worker-queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	name := cfg.Worker.Name
	if name == "" {
		name = defaultName
	}
	queueName := cfg.Worker.QueueName
	if queueName == "" {
		queueName = defaultQueue
	}
	forwardQueue := cfg.Worker.ForwardQueue
	if forwardQueue == "" {
		forwardQueue = defaultForwardQueue
	}

	if err := logger.Init(&logger.Config{
		Service:    name,
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
		Str("queue", queueName).
		Str("forward_queue", forwardQueue).
		Msg("Starting relay worker")

	provider, err := tracing.NewProvider(tracing.TracingConfig{
		Enabled:        cfg.Metrics.TracingEnabled,
		ServiceName:    name,
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
	workerMetrics := metrics.NewWorkerMetrics(collector)

	qc := client.New(cfg.Worker.QueueAPIURL,
		client.WithTimeout(cfg.Worker.RequestTimeout),
	)

	var tasks *task.Client
	if cfg.Task.SubmitURL != "" {
		taskMetrics := metrics.NewTaskMetrics(collector)
		tasks = task.NewClient(cfg.Task.SubmitURL,
			task.WithTimeout(cfg.Worker.RequestTimeout),
			task.WithMetrics(taskMetrics),
		)
		log.Info().Str("submit_url", cfg.Task.SubmitURL).Msg("Task submission enabled")
	}

	processor := worker.NewRelayProcessor(worker.RelayConfig{
		Name:         name,
		QueueName:    queueName,
		ForwardQueue: forwardQueue,
		Tasks:        tasks,
		TaskUserID:   cfg.Task.UserID,
		Metrics:      workerMetrics,
	}, qc)

	w := worker.New(worker.Config{
		Name:               name,
		QueueName:          queueName,
		MaxMessages:        cfg.Worker.MaxMessages,
		PollInterval:       cfg.Worker.PollInterval,
		ErrorRetryInterval: cfg.Worker.ErrorRetryInterval,
	}, qc, processor, worker.WithMetrics(workerMetrics))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Addr, cfg.Metrics.Path, collector.GetRegistry())
		if err := metricsServer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to start metrics server")
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- w.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("Shutting down")
		cancel()
		<-errChan
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Worker stopped unexpectedly")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping metrics server")
		}
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error shutting down tracing")
	}
}
