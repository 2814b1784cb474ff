package client

import (
	"github.com/serglom21/distributed-queue-instrumentation/internal/broker"
	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
)

// SendResult reports where a sent message ended up.
type SendResult struct {
	// MessageID is the ULID the receiving broker stamped on the message.
	MessageID string
	// Degraded is true when transport failed and the message was delivered
	// through the in-process fallback broker instead of the queue service.
	Degraded bool
}

// Status mirrors the boundary's /queue/status response.
type Status struct {
	TraceData  *TraceData                    `json:"traceData"`
	ActiveSpan string                        `json:"activeSpan,omitempty"`
	Queues     map[string]broker.QueueStatus `json:"queues"`
}

// TraceData is the caller's own propagation context as the boundary echoed
// it back.
type TraceData struct {
	TraceID      string `json:"traceId"`
	SpanID       string `json:"spanId"`
	ParentSpanID string `json:"parentSpanId,omitempty"`
	Sampled      bool   `json:"sampled"`
	Baggage      string `json:"baggage,omitempty"`
}

type sendRequest struct {
	QueueName string         `json:"queueName"`
	Message   *queue.Message `json:"message"`
}

type sendResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
}

type receiveRequest struct {
	QueueName   string `json:"queueName"`
	MaxMessages int    `json:"maxMessages,omitempty"`
}

type receiveResponse struct {
	Messages []*queue.Message `json:"messages"`
}
