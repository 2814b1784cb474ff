package tracectx

import (
	"net/http"
	"strings"
)

// Wire header names. Both must be allow-listed for cross-origin use at the
// delivery boundary, as sent and as exposed headers.
const (
	// HeaderTrace carries "<traceId>-<spanId>-<sampled>".
	HeaderTrace = "sentry-trace"
	// HeaderBaggage carries the opaque vendor baggage string.
	HeaderBaggage = "baggage"
)

// Header renders the three-segment wire form of the context. The sampled
// flag is always emitted, so parsing a canonical header and re-serializing
// it yields the identical string.
func (tc Context) Header() string {
	flag := "0"
	if tc.Sampled {
		flag = "1"
	}
	return tc.TraceID.String() + "-" + tc.SpanID.String() + "-" + flag
}

// ParseHeader parses the three-segment "<traceId>-<spanId>-<sampled>" wire
// form. Anything else is malformed: callers treat the header as absent and
// log a warning rather than failing the request.
func ParseHeader(header string) (Context, error) {
	parts := strings.Split(header, "-")
	if len(parts) != 3 {
		return Context{}, ParseError{Field: "trace header", Value: header, Reason: "expected 3 segments"}
	}

	traceID, err := ParseTraceID(parts[0])
	if err != nil {
		return Context{}, err
	}

	spanID, err := ParseSpanID(parts[1])
	if err != nil {
		return Context{}, err
	}

	var sampled bool
	switch parts[2] {
	case "0":
		sampled = false
	case "1":
		sampled = true
	default:
		return Context{}, ParseError{Field: "trace header", Value: header, Reason: `sampled flag must be "0" or "1"`}
	}

	return Context{TraceID: traceID, SpanID: spanID, Sampled: sampled}, nil
}

// InjectHTTP attaches the context to outbound request headers. A zero
// context injects nothing.
func InjectHTTP(tc Context, h http.Header) {
	if tc.IsZero() {
		return
	}
	h.Set(HeaderTrace, tc.Header())
	if tc.Baggage != "" {
		h.Set(HeaderBaggage, tc.Baggage)
	}
}

// ExtractHTTP reads a context from inbound headers. Header names are matched
// case-insensitively by http.Header canonicalization. A missing trace header
// returns ok=false with no error; a malformed one returns the parse error so
// the caller can warn and fall back to a fresh root.
func ExtractHTTP(h http.Header) (Context, bool, error) {
	raw := h.Get(HeaderTrace)
	if raw == "" {
		return Context{}, false, nil
	}
	tc, err := ParseHeader(raw)
	if err != nil {
		return Context{}, false, err
	}
	tc.Baggage = h.Get(HeaderBaggage)
	return tc, true, nil
}
