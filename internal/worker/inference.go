package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/serglom21/distributed-queue-instrumentation/internal/logger"
	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracing"
)

// Simulated GPU pipeline defaults.
const (
	DefaultModel         = "athena-turbo"
	DefaultLoadDuration  = 500 * time.Millisecond
	DefaultInferDuration = 300 * time.Millisecond
)

// InferenceConfig configures an InferenceProcessor.
type InferenceConfig struct {
	// Name becomes Result.ProcessedBy and the processed.by span tag.
	Name string
	// QueueName is the queue the processor drains, recorded on spans.
	QueueName string
	// Model names the simulated model on the gpu.inference span.
	Model string
	// LoadDuration paces the simulated pipeline setup, InferDuration the
	// inference pass itself.
	LoadDuration  time.Duration
	InferDuration time.Duration
	// Tracer mints the processor's hop; defaults to tracectx.New().
	Tracer tracectx.Tracer
}

// InferenceProcessor is the terminal hop of the demo chain: it continues the
// carried trace, burns simulated GPU time under a nested gpu.inference span,
// and forwards nothing.
type InferenceProcessor struct {
	cfg InferenceConfig
	log zerolog.Logger
}

// NewInferenceProcessor creates the terminal processor.
func NewInferenceProcessor(cfg InferenceConfig) *InferenceProcessor {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.LoadDuration <= 0 {
		cfg.LoadDuration = DefaultLoadDuration
	}
	if cfg.InferDuration <= 0 {
		cfg.InferDuration = DefaultInferDuration
	}
	if cfg.Tracer == nil {
		cfg.Tracer = tracectx.New()
	}
	return &InferenceProcessor{
		cfg: cfg,
		log: logger.WithComponent("worker.inference"),
	}
}

// Process continues the carried trace and runs the simulated pipeline. The
// success result carries the snapshot of the hop this processor minted.
func (p *InferenceProcessor) Process(ctx context.Context, msg *queue.Message) Result {
	carried, ok := continueTrace(p.cfg.Tracer, p.log, msg)
	if !ok {
		return failureResult(p.cfg.Name, errNoTraceContext)
	}

	hop := p.cfg.Tracer.ChildContext(carried)

	ctx = tracectx.NewContext(ctx, hop)
	ctx = tracing.ContextWithRemote(ctx, carried)
	ctx, span := StartProcessSpan(ctx, p.cfg.Name, p.cfg.QueueName)
	defer span.End()
	span.SetAttributes(
		attribute.String(tracing.AttrMessageID, msg.MessageID),
		attribute.String(tracing.AttrTaskType, taskTypeOf(msg)),
		attribute.String(tracing.AttrProcessedBy, p.cfg.Name),
	)

	p.log.Info().
		Str("message_id", msg.MessageID).
		Str("task_type", taskTypeOf(msg)).
		Str("trace_id", hop.TraceID.String()).
		Msg("Starting GPU work")

	sleep(ctx, p.cfg.LoadDuration)

	ictx, ispan := StartInferenceSpan(ctx, p.cfg.Model)
	sleep(ictx, p.cfg.InferDuration)
	ispan.End()

	p.log.Info().
		Str("message_id", msg.MessageID).
		Msg("GPU work completed")

	span.SetStatus(codes.Ok, "")
	return Result{
		Success:     true,
		ProcessedBy: p.cfg.Name,
		ProcessedAt: time.Now(),
		Span:        spanSnapshot(hop),
	}
}
