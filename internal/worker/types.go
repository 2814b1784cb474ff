// Package worker implements the polling consumers that drain queues and
// continue the trace carried by each message: a transport-agnostic poll
// loop, a relay processor that forwards derived messages downstream, and a
// terminal processor simulating GPU inference.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/serglom21/distributed-queue-instrumentation/client"
	"github.com/serglom21/distributed-queue-instrumentation/internal/broker"
	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
)

// Source pulls buffered messages from a queue.
type Source interface {
	Receive(ctx context.Context, queueName string, max int) ([]*queue.Message, error)
}

// Sink delivers derived messages to a queue.
type Sink interface {
	Send(ctx context.Context, queueName string, msg *queue.Message) (*client.SendResult, error)
}

// Queues is the full transport surface a relay needs. *client.Client
// satisfies it over HTTP; BrokerQueues satisfies it in process.
type Queues interface {
	Source
	Sink
}

// BrokerQueues adapts an in-process broker to the Queues surface, for
// single-process runs and tests.
type BrokerQueues struct {
	Broker *broker.Broker
}

func (q BrokerQueues) Receive(ctx context.Context, queueName string, max int) ([]*queue.Message, error) {
	return q.Broker.ReceiveUpTo(ctx, queueName, max), nil
}

func (q BrokerQueues) Send(ctx context.Context, queueName string, msg *queue.Message) (*client.SendResult, error) {
	stamped, err := q.Broker.Send(ctx, queueName, msg)
	if err != nil {
		return nil, err
	}
	return &client.SendResult{MessageID: stamped.MessageID}, nil
}

// Processor handles one dequeued message and reports the outcome.
type Processor interface {
	Process(ctx context.Context, msg *queue.Message) Result
}

// Result is the outcome of processing one message.
type Result struct {
	Success     bool                 `json:"success"`
	ProcessedBy string               `json:"processedBy"`
	ProcessedAt time.Time            `json:"processedAt"`
	Error       string               `json:"error,omitempty"`
	Span        *queue.TraceMetadata `json:"span,omitempty"`
	ForwardedTo string               `json:"forwardedTo,omitempty"`
}

// errNoTraceContext is the failure reason for messages arriving without a
// usable trace header. No trace id is ever fabricated for them.
const errNoTraceContext = "No trace context"

// continueTrace parses the header carried by the message and attaches its
// baggage. A malformed header is logged and treated as missing.
func continueTrace(tracer tracectx.Tracer, log zerolog.Logger, msg *queue.Message) (tracectx.Context, bool) {
	if !msg.HasTrace() {
		log.Warn().
			Str("message_id", msg.MessageID).
			Msg("Message carries no trace context")
		return tracectx.Context{}, false
	}

	carried, err := tracer.Parse(msg.SentryTrace)
	if err != nil {
		log.Warn().
			Err(err).
			Str("message_id", msg.MessageID).
			Msg("Malformed trace header on message, treating as missing")
		return tracectx.Context{}, false
	}

	carried.Baggage = msg.Baggage
	return carried, true
}

func failureResult(processedBy, reason string) Result {
	return Result{
		Success:     false,
		ProcessedBy: processedBy,
		ProcessedAt: time.Now(),
		Error:       reason,
	}
}

func spanSnapshot(tc tracectx.Context) *queue.TraceMetadata {
	snap := &queue.TraceMetadata{
		TraceID: tc.TraceID.String(),
		SpanID:  tc.SpanID.String(),
	}
	if !tc.ParentSpanID.IsZero() {
		snap.ParentSpanID = tc.ParentSpanID.String()
	}
	return snap
}

func taskTypeOf(msg *queue.Message) string {
	if v := msg.PayloadString("taskType"); v != "" {
		return v
	}
	return "unknown"
}

// sleep waits for d or until ctx is canceled, whichever comes first.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
