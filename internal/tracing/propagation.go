package tracing

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
)

// ContextWithRemote installs the carried trace context as a remote span
// parent, so spans started afterwards join the propagated trace instead of
// opening a new one. A zero context leaves ctx untouched.
func ContextWithRemote(ctx context.Context, tc tracectx.Context) context.Context {
	if tc.IsZero() {
		return ctx
	}

	var flags trace.TraceFlags
	if tc.Sampled {
		flags = trace.FlagsSampled
	}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID(tc.TraceID),
		SpanID:     trace.SpanID(tc.SpanID),
		TraceFlags: flags,
		Remote:     true,
	})
	return trace.ContextWithRemoteSpanContext(ctx, sc)
}

// StartChildSpan starts a child span from parent context
func StartChildSpan(ctx context.Context, tracer trace.Tracer, operationName string) (context.Context, trace.Span) {
	return tracer.Start(ctx, operationName)
}

// SpanFromContext returns the span from context if it exists
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}
