package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_MarshalJSON_FlattensPayload(t *testing.T) {
	msg := Message{
		MessageID:     "msg-1",
		ReceiptHandle: "rh-1",
		SentTimestamp: 1700000000000,
		SentryTrace:   "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-1111111111111111-1",
		Baggage:       "sentry-environment=dev",
		TraceMetadata: &TraceMetadata{
			TraceID:      "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			SpanID:       "1111111111111111",
			ParentSpanID: "2222222222222222",
		},
		Payload: map[string]any{
			"taskType": "inference",
			"userId":   "user-42",
		},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))

	// Payload keys sit at the top level beside the system keys.
	assert.Equal(t, "inference", obj["taskType"])
	assert.Equal(t, "user-42", obj["userId"])
	assert.Equal(t, "msg-1", obj["messageId"])
	assert.Equal(t, "rh-1", obj["receiptHandle"])
	assert.Equal(t, float64(1700000000000), obj["sentTimestamp"])
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-1111111111111111-1", obj["sentryTrace"])
	assert.Equal(t, "sentry-environment=dev", obj["baggage"])

	meta, ok := obj["traceMetadata"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", meta["traceId"])
	assert.Equal(t, "1111111111111111", meta["spanId"])
	assert.Equal(t, "2222222222222222", meta["parentSpanId"])
}

func TestMessage_MarshalJSON_OmitsZeroSystemFields(t *testing.T) {
	msg := Message{Payload: map[string]any{"taskType": "inference"}}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(data, &obj))

	assert.Equal(t, map[string]any{"taskType": "inference"}, obj)
}

func TestMessage_JSONRoundTrip(t *testing.T) {
	original := Message{
		MessageID:     "msg-1",
		ReceiptHandle: "rh-1",
		SentTimestamp: 1700000000000,
		SentryTrace:   "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-1111111111111111-1",
		Baggage:       "sentry-environment=dev",
		TraceMetadata: &TraceMetadata{
			TraceID: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			SpanID:  "1111111111111111",
		},
		Payload: map[string]any{
			"taskType": "inference",
			"attempt":  float64(2),
		},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, original, decoded)
}

func TestMessage_UnmarshalJSON_PayloadOnly(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"taskType":"relay","count":3}`), &msg))

	assert.Empty(t, msg.MessageID)
	assert.Empty(t, msg.SentryTrace)
	assert.Nil(t, msg.TraceMetadata)
	assert.Equal(t, "relay", msg.PayloadString("taskType"))
	assert.Equal(t, float64(3), msg.Payload["count"])
}

func TestMessage_UnmarshalJSON_ReservedKeysDoNotLandInPayload(t *testing.T) {
	raw := `{"messageId":"msg-1","sentryTrace":"trace-header","taskType":"relay"}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	assert.Equal(t, "msg-1", msg.MessageID)
	assert.Equal(t, "trace-header", msg.SentryTrace)
	assert.NotContains(t, msg.Payload, "messageId")
	assert.NotContains(t, msg.Payload, "sentryTrace")
	assert.Equal(t, "relay", msg.PayloadString("taskType"))
}

func TestMessage_UnmarshalJSON_BadFieldType(t *testing.T) {
	var msg Message
	err := json.Unmarshal([]byte(`{"messageId":42}`), &msg)
	require.Error(t, err)
	assert.IsType(t, InvalidMessageError{}, err)
}

func TestMessage_HasTrace(t *testing.T) {
	assert.False(t, (&Message{}).HasTrace())
	assert.False(t, (*Message)(nil).HasTrace())
	assert.True(t, (&Message{SentryTrace: "header"}).HasTrace())
}

func TestMessage_PayloadString(t *testing.T) {
	msg := &Message{Payload: map[string]any{"taskType": "relay", "count": float64(3)}}

	assert.Equal(t, "relay", msg.PayloadString("taskType"))
	assert.Empty(t, msg.PayloadString("count"))
	assert.Empty(t, msg.PayloadString("missing"))
	assert.Empty(t, (*Message)(nil).PayloadString("taskType"))
}
