package broker

import (
	"context"

	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
)

// Listener is a push callback invoked with a dequeued message. The context
// carries the message's trace context when the message has one. Listeners
// run on the dispatcher goroutine, in registration order; an error or panic
// is recorded and does not stop delivery to the remaining listeners.
type Listener func(ctx context.Context, msg *queue.Message) error

// QueueStatus is the redacted introspection view of one queue.
type QueueStatus struct {
	Size      int             `json:"size"`
	Listeners int             `json:"listeners"`
	Messages  []MessageStatus `json:"messages"`
}

// MessageStatus is the redacted view of one buffered message. Trace ids are
// truncated so the status endpoint never leaks a full trace identifier.
type MessageStatus struct {
	MessageID     string               `json:"messageId"`
	HasTrace      bool                 `json:"hasTrace"`
	TraceID       string               `json:"traceId,omitempty"`
	TraceMetadata *queue.TraceMetadata `json:"traceMetadata,omitempty"`
}

// redactTraceID truncates a trace id to an 8-character prefix.
func redactTraceID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}

func newMessageStatus(msg *queue.Message) MessageStatus {
	view := MessageStatus{
		MessageID: msg.MessageID,
		HasTrace:  msg.HasTrace(),
	}
	if msg.TraceMetadata != nil {
		view.TraceID = redactTraceID(msg.TraceMetadata.TraceID)
		view.TraceMetadata = &queue.TraceMetadata{
			TraceID:      redactTraceID(msg.TraceMetadata.TraceID),
			SpanID:       msg.TraceMetadata.SpanID,
			ParentSpanID: msg.TraceMetadata.ParentSpanID,
		}
	}
	return view
}
