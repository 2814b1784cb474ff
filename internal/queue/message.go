// Package queue holds the in-memory message model and the named FIFO store
// that buffers messages between producers and consumers. Messages are opaque
// payloads decorated with system-assigned identifiers and optional trace
// carriage fields; the store guarantees FIFO order and at-most-once handout
// per queue.
package queue

import (
	"encoding/json"
)

// TraceMetadata is the introspection snapshot of the trace context attached
// to a message at send time, independent of the header strings.
type TraceMetadata struct {
	TraceID      string `json:"traceId"`
	SpanID       string `json:"spanId"`
	ParentSpanID string `json:"parentSpanId,omitempty"`
}

// Message is the queued envelope: a producer-supplied payload plus
// system-assigned identifiers and optional embedded trace context.
//
// On the wire a message is a single flat JSON object: payload keys sit
// beside the reserved system keys. A message is immutable once enqueued;
// ownership transfers to the caller that dequeues it.
type Message struct {
	MessageID     string
	ReceiptHandle string
	SentTimestamp int64 // Unix milliseconds, assigned at send
	SentryTrace   string
	Baggage       string
	TraceMetadata *TraceMetadata
	Payload       map[string]any
}

// Reserved wire keys. Payload keys that collide with these are shadowed by
// the system fields.
const (
	keyMessageID     = "messageId"
	keyReceiptHandle = "receiptHandle"
	keySentTimestamp = "sentTimestamp"
	keySentryTrace   = "sentryTrace"
	keyBaggage       = "baggage"
	keyTraceMetadata = "traceMetadata"
)

// HasTrace reports whether the message carries an embedded trace header.
func (m *Message) HasTrace() bool {
	return m != nil && m.SentryTrace != ""
}

// PayloadString returns the payload value for key when it is a string.
func (m *Message) PayloadString(key string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	if v, ok := m.Payload[key].(string); ok {
		return v
	}
	return ""
}

// MarshalJSON flattens the payload and system fields into one object.
func (m Message) MarshalJSON() ([]byte, error) {
	obj := make(map[string]any, len(m.Payload)+6)
	for k, v := range m.Payload {
		obj[k] = v
	}
	if m.MessageID != "" {
		obj[keyMessageID] = m.MessageID
	}
	if m.ReceiptHandle != "" {
		obj[keyReceiptHandle] = m.ReceiptHandle
	}
	if m.SentTimestamp != 0 {
		obj[keySentTimestamp] = m.SentTimestamp
	}
	if m.SentryTrace != "" {
		obj[keySentryTrace] = m.SentryTrace
	}
	if m.Baggage != "" {
		obj[keyBaggage] = m.Baggage
	}
	if m.TraceMetadata != nil {
		obj[keyTraceMetadata] = m.TraceMetadata
	}
	return json.Marshal(obj)
}

// UnmarshalJSON splits the flat object back into system fields and payload.
func (m *Message) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	*m = Message{}

	if raw, ok := obj[keyMessageID]; ok {
		if err := json.Unmarshal(raw, &m.MessageID); err != nil {
			return InvalidMessageError{Field: keyMessageID, Err: err}
		}
		delete(obj, keyMessageID)
	}
	if raw, ok := obj[keyReceiptHandle]; ok {
		if err := json.Unmarshal(raw, &m.ReceiptHandle); err != nil {
			return InvalidMessageError{Field: keyReceiptHandle, Err: err}
		}
		delete(obj, keyReceiptHandle)
	}
	if raw, ok := obj[keySentTimestamp]; ok {
		if err := json.Unmarshal(raw, &m.SentTimestamp); err != nil {
			return InvalidMessageError{Field: keySentTimestamp, Err: err}
		}
		delete(obj, keySentTimestamp)
	}
	if raw, ok := obj[keySentryTrace]; ok {
		if err := json.Unmarshal(raw, &m.SentryTrace); err != nil {
			return InvalidMessageError{Field: keySentryTrace, Err: err}
		}
		delete(obj, keySentryTrace)
	}
	if raw, ok := obj[keyBaggage]; ok {
		if err := json.Unmarshal(raw, &m.Baggage); err != nil {
			return InvalidMessageError{Field: keyBaggage, Err: err}
		}
		delete(obj, keyBaggage)
	}
	if raw, ok := obj[keyTraceMetadata]; ok {
		m.TraceMetadata = &TraceMetadata{}
		if err := json.Unmarshal(raw, m.TraceMetadata); err != nil {
			return InvalidMessageError{Field: keyTraceMetadata, Err: err}
		}
		delete(obj, keyTraceMetadata)
	}

	if len(obj) > 0 {
		m.Payload = make(map[string]any, len(obj))
		for k, raw := range obj {
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return InvalidMessageError{Field: k, Err: err}
			}
			m.Payload[k] = v
		}
	}

	return nil
}
