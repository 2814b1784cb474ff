package tracectx

import (
	"crypto/rand"
	"encoding/hex"
)

// TraceID is a 16-byte trace identifier, rendered as 32 lowercase hex
// characters. Every span in one causal chain shares the same TraceID.
type TraceID [16]byte

// SpanID is an 8-byte span identifier, rendered as 16 lowercase hex
// characters. Each hop in a chain gets its own SpanID.
type SpanID [8]byte

// String returns the canonical lowercase hex form.
func (t TraceID) String() string {
	return hex.EncodeToString(t[:])
}

// IsZero reports whether the TraceID is unset.
func (t TraceID) IsZero() bool {
	return t == TraceID{}
}

// String returns the canonical lowercase hex form.
func (s SpanID) String() string {
	return hex.EncodeToString(s[:])
}

// IsZero reports whether the SpanID is unset.
func (s SpanID) IsZero() bool {
	return s == SpanID{}
}

// NewTraceID generates a random TraceID.
func NewTraceID() TraceID {
	var t TraceID
	rand.Read(t[:])
	return t
}

// NewSpanID generates a random SpanID.
func NewSpanID() SpanID {
	var s SpanID
	rand.Read(s[:])
	return s
}

// ParseTraceID parses a 32-character hex string into a TraceID.
// Hex case is tolerated on input; output is always lowercase.
func ParseTraceID(s string) (TraceID, error) {
	var t TraceID
	if len(s) != 32 {
		return t, ParseError{Field: "traceId", Value: s, Reason: "must be 32 hex characters"}
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return t, ParseError{Field: "traceId", Value: s, Reason: "invalid hex"}
	}
	copy(t[:], b)
	return t, nil
}

// ParseSpanID parses a 16-character hex string into a SpanID.
func ParseSpanID(s string) (SpanID, error) {
	var sp SpanID
	if len(s) != 16 {
		return sp, ParseError{Field: "spanId", Value: s, Reason: "must be 16 hex characters"}
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return sp, ParseError{Field: "spanId", Value: s, Reason: "invalid hex"}
	}
	copy(sp[:], b)
	return sp, nil
}
