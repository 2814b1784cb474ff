// Package tracectx implements the trace-context propagation protocol carried
// across HTTP requests and queued messages: a {traceId, spanId, parentSpanId,
// sampled, baggage} value type, its sentry-trace wire form, and the minimal
// Tracer capability the queue subsystem depends on.
//
// This package is deliberately vendor-free. The OpenTelemetry provider in
// internal/tracing is ambient observability; the propagation contract lives
// here and must not depend on any tracing SDK.
package tracectx

import "context"

// Context carries the causal identifiers for one hop of a trace chain.
//
// TraceID is immutable across the entire chain: every derived Context keeps
// it, mints a fresh SpanID, and records the span it was derived from as
// ParentSpanID. Baggage is an opaque, order-preserving vendor string and is
// carried verbatim, never parsed.
type Context struct {
	TraceID      TraceID
	SpanID       SpanID
	ParentSpanID SpanID
	Sampled      bool
	Baggage      string
}

// IsZero reports whether the Context carries no trace identifiers.
func (tc Context) IsZero() bool {
	return tc.TraceID.IsZero() && tc.SpanID.IsZero()
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying tc as the active propagation
// context for the current unit of work.
func NewContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext returns the active propagation context stored by NewContext.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	if !ok || tc.IsZero() {
		return Context{}, false
	}
	return tc, true
}
