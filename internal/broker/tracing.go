package broker

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/serglom21/distributed-queue-instrumentation/internal/tracing"
)

// StartSendSpan starts a span for a send operation
func StartSendSpan(ctx context.Context, queueName string) (context.Context, trace.Span) {
	tracer := otel.Tracer("queuedemo.queue")
	ctx, span := tracer.Start(ctx, "queue.send",
		trace.WithSpanKind(trace.SpanKindProducer),
	)
	span.SetAttributes(
		attribute.String(tracing.AttrQueueName, queueName),
		attribute.String(tracing.AttrOperation, "send"),
	)
	return ctx, span
}

// StartReceiveSpan starts a span for a receive operation
func StartReceiveSpan(ctx context.Context, queueName string, maxMessages int) (context.Context, trace.Span) {
	tracer := otel.Tracer("queuedemo.queue")
	ctx, span := tracer.Start(ctx, "queue.receive",
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	span.SetAttributes(
		attribute.String(tracing.AttrQueueName, queueName),
		attribute.Int(tracing.AttrMaxMessages, maxMessages),
		attribute.String(tracing.AttrOperation, "receive"),
	)
	return ctx, span
}

// StartFanOutSpan starts a span for a fan-out delivery
func StartFanOutSpan(ctx context.Context, queueName string, listenerCount int) (context.Context, trace.Span) {
	tracer := otel.Tracer("queuedemo.queue")
	ctx, span := tracer.Start(ctx, "queue.fanout",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		attribute.String(tracing.AttrQueueName, queueName),
		attribute.Int(tracing.AttrListenerCount, listenerCount),
		attribute.String(tracing.AttrOperation, "fanout"),
	)
	return ctx, span
}
