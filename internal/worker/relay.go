package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/serglom21/distributed-queue-instrumentation/internal/logger"
	"github.com/serglom21/distributed-queue-instrumentation/internal/metrics"
	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
	"github.com/serglom21/distributed-queue-instrumentation/internal/task"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracing"
)

// RelayConfig configures a RelayProcessor.
type RelayConfig struct {
	// Name becomes Result.ProcessedBy and the processed.by span tag.
	Name string
	// QueueName is the queue the relay drains, recorded on spans.
	QueueName string
	// ForwardQueue receives the derived message.
	ForwardQueue string
	// Tasks, when set, submits {taskType, userId} to the downstream boundary
	// before forwarding. A blocked submission stops the forward; the boundary
	// being unreachable does not.
	Tasks *task.Client
	// TaskUserID is the userId submitted with every task.
	TaskUserID string
	// Tracer mints the relay's hop; defaults to tracectx.New().
	Tracer tracectx.Tracer
	// Metrics, when set, counts forward attempts by status.
	Metrics *metrics.WorkerMetrics
}

// RelayProcessor continues the trace carried by each message with a child
// hop of its own and forwards a derived message to the next queue. The
// derived message embeds the header serialized from the relay's hop (never
// the inbound header) with baggage copied verbatim and payload preserved.
type RelayProcessor struct {
	cfg  RelayConfig
	sink Sink
	log  zerolog.Logger
}

// NewRelayProcessor creates a relay forwarding into sink.
func NewRelayProcessor(cfg RelayConfig, sink Sink) *RelayProcessor {
	if cfg.Tracer == nil {
		cfg.Tracer = tracectx.New()
	}
	return &RelayProcessor{
		cfg:  cfg,
		sink: sink,
		log:  logger.WithComponent("worker.relay"),
	}
}

// Process handles one message: continue the carried trace, optionally clear
// the downstream task boundary, then forward. A message without a usable
// trace header fails without forwarding.
func (p *RelayProcessor) Process(ctx context.Context, msg *queue.Message) Result {
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

	p.log.Debug().
		Str("message_id", msg.MessageID).
		Str("trace_id", hop.TraceID.String()).
		Str("parent_span_id", hop.ParentSpanID.String()).
		Msg("Continuing carried trace")

	if p.cfg.Tasks != nil {
		if err := p.submitTask(ctx, msg); err != nil {
			p.cfg.Metrics.RecordForward(p.cfg.Name, p.cfg.ForwardQueue, metrics.StatusBlocked)
			span.SetStatus(codes.Error, err.Error())
			return failureResult(p.cfg.Name, err.Error())
		}
	}

	derived := &queue.Message{
		SentryTrace:   p.cfg.Tracer.Serialize(hop),
		Baggage:       msg.Baggage,
		TraceMetadata: spanSnapshot(hop),
		Payload:       msg.Payload,
	}

	fctx, fspan := StartForwardSpan(ctx, p.cfg.ForwardQueue)
	_, err := p.sink.Send(fctx, p.cfg.ForwardQueue, derived)
	fspan.End()
	if err != nil {
		p.cfg.Metrics.RecordForward(p.cfg.Name, p.cfg.ForwardQueue, metrics.StatusError)
		span.SetStatus(codes.Error, "forward failed")
		p.log.Error().
			Err(err).
			Str("queue", p.cfg.ForwardQueue).
			Str("message_id", msg.MessageID).
			Msg("Forward failed")
		return failureResult(p.cfg.Name, "forward failed: "+err.Error())
	}
	p.cfg.Metrics.RecordForward(p.cfg.Name, p.cfg.ForwardQueue, metrics.StatusAccepted)

	span.SetStatus(codes.Ok, "")
	return Result{
		Success:     true,
		ProcessedBy: p.cfg.Name,
		ProcessedAt: time.Now(),
		Span:        spanSnapshot(hop),
		ForwardedTo: p.cfg.ForwardQueue,
	}
}

// submitTask clears the downstream boundary. Only a business rejection is
// returned; the boundary being down must not stall the relay chain, so
// transport trouble is logged and swallowed.
func (p *RelayProcessor) submitTask(ctx context.Context, msg *queue.Message) error {
	t := task.Task{TaskType: taskTypeOf(msg), UserID: p.cfg.TaskUserID}

	resp, err := p.cfg.Tasks.Submit(ctx, t)
	if err != nil {
		if task.IsBlocked(err) {
			p.log.Warn().
				Err(err).
				Str("task_type", t.TaskType).
				Str("message_id", msg.MessageID).
				Msg("Task blocked downstream, not forwarding")
			return err
		}
		p.log.Warn().
			Err(err).
			Str("task_type", t.TaskType).
			Msg("Task submission failed, forwarding anyway")
		return nil
	}

	p.log.Debug().
		Str("task_id", resp.TaskID).
		Str("task_type", t.TaskType).
		Msg("Task accepted downstream")
	return nil
}
