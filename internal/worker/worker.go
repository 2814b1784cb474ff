package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/serglom21/distributed-queue-instrumentation/internal/logger"
	"github.com/serglom21/distributed-queue-instrumentation/internal/metrics"
	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
)

// Poll pacing defaults. A normal turn re-polls after PollInterval; a failed
// poll backs off to ErrorRetryInterval so a dead boundary is not hammered.
const (
	DefaultPollInterval       = time.Second
	DefaultErrorRetryInterval = 5 * time.Second
	DefaultMaxMessages        = 1
)

// Config configures a Worker.
type Config struct {
	// Name labels the worker in logs and metrics.
	Name string
	// QueueName is the queue this worker drains.
	QueueName string
	// MaxMessages caps how many messages a single poll may pull.
	MaxMessages int
	// PollInterval is the sleep after a normal turn.
	PollInterval time.Duration
	// ErrorRetryInterval is the sleep after a failed poll.
	ErrorRetryInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxMessages <= 0 {
		c.MaxMessages = DefaultMaxMessages
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ErrorRetryInterval <= 0 {
		c.ErrorRetryInterval = DefaultErrorRetryInterval
	}
}

// Option configures a Worker.
type Option func(*Worker)

// WithMetrics attaches a worker metrics set.
func WithMetrics(m *metrics.WorkerMetrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

// Worker polls one queue and hands each pulled message to its processor.
// It runs until its context is canceled; per-message failures never stop it.
type Worker struct {
	cfg       Config
	source    Source
	processor Processor
	metrics   *metrics.WorkerMetrics
	log       zerolog.Logger
}

// New creates a worker draining cfg.QueueName through the given source.
func New(cfg Config, source Source, processor Processor, opts ...Option) *Worker {
	cfg.applyDefaults()

	w := &Worker{
		cfg:       cfg,
		source:    source,
		processor: processor,
		log:       logger.WithComponent("worker." + cfg.Name),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is canceled and returns ctx's error. Transport
// failures and processing failures are logged and counted, never fatal.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().
		Str("queue", w.cfg.QueueName).
		Int("max_messages", w.cfg.MaxMessages).
		Dur("poll_interval", w.cfg.PollInterval).
		Msg("Worker started")

	for {
		interval := w.cfg.PollInterval

		msgs, err := w.source.Receive(ctx, w.cfg.QueueName, w.cfg.MaxMessages)
		if err != nil {
			if ctx.Err() != nil {
				w.log.Info().Msg("Worker stopped")
				return ctx.Err()
			}
			w.metrics.RecordTransportError(w.cfg.Name, w.cfg.QueueName)
			w.log.Warn().
				Err(err).
				Str("queue", w.cfg.QueueName).
				Msg("Poll failed, backing off")
			interval = w.cfg.ErrorRetryInterval
		} else {
			w.metrics.RecordPoll(w.cfg.Name, w.cfg.QueueName, len(msgs))
			for _, msg := range msgs {
				w.handle(ctx, msg)
			}
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopped")
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg *queue.Message) {
	start := time.Now()
	result := w.processor.Process(ctx, msg)
	duration := time.Since(start)

	outcome := metrics.OutcomeSuccess
	if !result.Success {
		outcome = metrics.OutcomeFailure
		if result.Error == errNoTraceContext {
			outcome = metrics.OutcomeMissingTrace
		}
	}
	w.metrics.RecordProcessed(w.cfg.Name, w.cfg.QueueName, outcome, duration)

	evt := w.log.Info()
	if !result.Success {
		evt = w.log.Warn()
	}
	evt = evt.
		Str("message_id", msg.MessageID).
		Str("outcome", outcome).
		Dur("duration", duration)
	if result.Error != "" {
		evt = evt.Str("error", result.Error)
	}
	if result.ForwardedTo != "" {
		evt = evt.Str("forwarded_to", result.ForwardedTo)
	}
	evt.Msg("Message processed")
}
