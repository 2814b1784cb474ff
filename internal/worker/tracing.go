package worker

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/serglom21/distributed-queue-instrumentation/internal/tracing"
)

// StartProcessSpan starts the outer span for one message's processing
func StartProcessSpan(ctx context.Context, workerName, queueName string) (context.Context, trace.Span) {
	tracer := otel.Tracer("queuedemo.worker")
	ctx, span := tracer.Start(ctx, "worker.process",
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	span.SetAttributes(
		attribute.String(tracing.AttrWorkerName, workerName),
		attribute.String(tracing.AttrQueueName, queueName),
		attribute.String(tracing.AttrOperation, "process"),
	)
	return ctx, span
}

// StartForwardSpan starts a span for handing a derived message downstream
func StartForwardSpan(ctx context.Context, forwardQueue string) (context.Context, trace.Span) {
	tracer := otel.Tracer("queuedemo.worker")
	ctx, span := tracer.Start(ctx, "queue.forward",
		trace.WithSpanKind(trace.SpanKindProducer),
	)
	span.SetAttributes(
		attribute.String(tracing.AttrForwardQueue, forwardQueue),
		attribute.String(tracing.AttrOperation, "forward"),
	)
	return ctx, span
}

// StartInferenceSpan starts the nested span for the simulated GPU pass
func StartInferenceSpan(ctx context.Context, model string) (context.Context, trace.Span) {
	tracer := otel.Tracer("queuedemo.worker")
	ctx, span := tracer.Start(ctx, "gpu.inference",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		attribute.String(tracing.AttrModel, model),
	)
	return ctx, span
}
