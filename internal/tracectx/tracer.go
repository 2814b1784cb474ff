package tracectx

// Tracer is the minimal tracing capability the broker and workers depend on.
// The four operations cover the whole propagation contract: start a chain,
// derive the next hop, and move a context across a wire boundary.
//
// Implementations must keep TraceID constant through ChildContext and copy
// baggage verbatim.
type Tracer interface {
	NewRootContext() Context
	ChildContext(parent Context) Context
	Serialize(tc Context) string
	Parse(header string) (Context, error)
}

// New returns the default Tracer, backed by crypto/rand identifiers.
// Root contexts are sampled; derivation preserves the parent's flag.
func New() Tracer {
	return randomTracer{}
}

type randomTracer struct{}

func (randomTracer) NewRootContext() Context {
	return Context{
		TraceID: NewTraceID(),
		SpanID:  NewSpanID(),
		Sampled: true,
	}
}

func (randomTracer) ChildContext(parent Context) Context {
	return Context{
		TraceID:      parent.TraceID,
		SpanID:       NewSpanID(),
		ParentSpanID: parent.SpanID,
		Sampled:      parent.Sampled,
		Baggage:      parent.Baggage,
	}
}

func (randomTracer) Serialize(tc Context) string {
	return tc.Header()
}

func (randomTracer) Parse(header string) (Context, error) {
	return ParseHeader(header)
}
