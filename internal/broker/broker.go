// Package broker implements the in-memory delivery boundary: named FIFO
// queues with synchronous pull and asynchronous push fan-out, plus trace
// context stamping for every accepted message.
//
// Trace stamping precedence for a sent message:
//  1. a sentryTrace header already embedded in the message body is kept
//     verbatim;
//  2. otherwise the trace context carried on ctx (continued or freshly
//     minted at the HTTP boundary) is written onto the message verbatim;
//  3. otherwise a fresh root context is minted.
//
// The boundary never advances the span chain; only consumers mint new
// spans when they continue a trace.
package broker

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/serglom21/distributed-queue-instrumentation/internal/logger"
	"github.com/serglom21/distributed-queue-instrumentation/internal/metrics"
	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracing"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newMessageID returns a time-sortable ULID encoded as a 26-character string.
func newMessageID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return id.String()
}

// Broker owns the queue store, the listener registry, and the fan-out
// dispatcher. One broker serves one process; uniform cross-process behavior
// requires going through the HTTP boundary of a single broker process.
type Broker struct {
	store   *queue.Store
	tracer  tracectx.Tracer
	metrics *metrics.QueueMetrics
	log     zerolog.Logger

	listeners map[string][]Listener
	mu        sync.RWMutex

	// Fan-out directives, drained by the dispatcher goroutine. One entry
	// per send or registration trigger; never coalesced, so each directive
	// fans out at most one message.
	dispatchMu sync.Mutex
	dispatch   *sync.Cond
	directives []string
	active     bool
	running    bool
	closed     bool
	wg         sync.WaitGroup
}

// Option configures a Broker.
type Option func(*Broker)

// WithMetrics attaches a queue metrics set to the broker.
func WithMetrics(m *metrics.QueueMetrics) Option {
	return func(b *Broker) {
		b.metrics = m
	}
}

// WithTracer overrides the trace context generator.
func WithTracer(t tracectx.Tracer) Option {
	return func(b *Broker) {
		b.tracer = t
	}
}

// New creates a broker over the given store.
func New(store *queue.Store, opts ...Option) *Broker {
	b := &Broker{
		store:     store,
		tracer:    tracectx.New(),
		listeners: make(map[string][]Listener),
		log:       logger.WithComponent("broker"),
	}
	b.dispatch = sync.NewCond(&b.dispatchMu)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start launches the fan-out dispatcher.
func (b *Broker) Start(ctx context.Context) error {
	b.dispatchMu.Lock()
	defer b.dispatchMu.Unlock()

	if b.running || b.closed {
		return nil
	}
	b.running = true

	b.wg.Add(1)
	go b.dispatchLoop()

	b.log.Info().Msg("Broker started")
	return nil
}

// Stop drains pending fan-out directives and stops the dispatcher.
func (b *Broker) Stop(ctx context.Context) error {
	b.dispatchMu.Lock()
	if b.closed {
		b.dispatchMu.Unlock()
		return nil
	}
	b.closed = true
	b.dispatch.Broadcast()
	b.dispatchMu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info().Msg("Broker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether the dispatcher is running.
func (b *Broker) Ready() bool {
	b.dispatchMu.Lock()
	defer b.dispatchMu.Unlock()
	return b.running && !b.closed
}

// Send stamps trace context onto the message, assigns delivery identifiers,
// and enqueues it. Fan-out to registered listeners happens asynchronously;
// Send never waits for a listener. The returned message is the stamped
// envelope that entered the queue.
func (b *Broker) Send(ctx context.Context, queueName string, msg *queue.Message) (*queue.Message, error) {
	startTime := time.Now()

	queueName = strings.TrimSpace(queueName)
	if queueName == "" {
		return nil, queue.InvalidQueueNameError{Name: queueName, Reason: "must not be empty"}
	}
	if msg == nil {
		msg = &queue.Message{}
	}

	ctx, span := StartSendSpan(ctx, queueName)
	defer span.End()

	origin := b.stampTrace(ctx, queueName, msg)

	msg.MessageID = newMessageID()
	msg.ReceiptHandle = uuid.New().String()
	msg.SentTimestamp = time.Now().UnixMilli()

	b.store.Enqueue(queueName, msg)

	span.SetAttributes(
		attribute.String(tracing.AttrMessageID, msg.MessageID),
		attribute.String(tracing.AttrTraceOrigin, origin),
	)

	b.metrics.RecordSend(queueName, time.Since(startTime))
	b.metrics.RecordTraceContinuation(queueName, origin)
	b.metrics.UpdateDepth(queueName, b.store.Size(queueName))

	b.log.Debug().
		Str("queue", queueName).
		Str("message_id", msg.MessageID).
		Str("trace_origin", origin).
		Msg("Message enqueued")

	b.signalFanOut(queueName)

	return msg, nil
}

// stampTrace applies the stamping precedence and returns the origin label.
func (b *Broker) stampTrace(ctx context.Context, queueName string, msg *queue.Message) string {
	if msg.HasTrace() {
		tc, err := b.tracer.Parse(msg.SentryTrace)
		if err == nil {
			if msg.Baggage != "" {
				tc.Baggage = msg.Baggage
			}
			// A producer-supplied snapshot carries the parent span id,
			// which the header alone cannot; keep it.
			if msg.TraceMetadata == nil {
				msg.TraceMetadata = metadataFor(tc)
			}
			return metrics.OriginBody
		}
		b.log.Warn().
			Err(err).
			Str("queue", queueName).
			Msg("Malformed trace header on message, treating as absent")
		msg.SentryTrace = ""
		msg.Baggage = ""
	}

	tc, ok := tracectx.FromContext(ctx)
	origin := metrics.OriginHeader
	if !ok || tc.IsZero() {
		tc = b.tracer.NewRootContext()
		origin = metrics.OriginFresh
	}

	msg.SentryTrace = b.tracer.Serialize(tc)
	msg.Baggage = tc.Baggage
	msg.TraceMetadata = metadataFor(tc)
	return origin
}

func metadataFor(tc tracectx.Context) *queue.TraceMetadata {
	md := &queue.TraceMetadata{
		TraceID: tc.TraceID.String(),
		SpanID:  tc.SpanID.String(),
	}
	if !tc.ParentSpanID.IsZero() {
		md.ParentSpanID = tc.ParentSpanID.String()
	}
	return md
}

// ReceiveUpTo removes and returns up to max messages from the named queue.
// It never blocks; an empty or unknown queue yields an empty slice.
func (b *Broker) ReceiveUpTo(ctx context.Context, queueName string, max int) []*queue.Message {
	startTime := time.Now()

	ctx, span := StartReceiveSpan(ctx, queueName, max)
	defer span.End()

	msgs := b.store.DequeueUpTo(queueName, max)

	span.SetAttributes(attribute.Int(tracing.AttrMessageCount, len(msgs)))

	b.metrics.RecordReceive(queueName, len(msgs), time.Since(startTime))
	b.metrics.UpdateDepth(queueName, b.store.Size(queueName))

	return msgs
}

// RegisterListener adds a push listener for the named queue, creating the
// queue if absent. A non-empty backlog triggers an asynchronous fan-out of
// one buffered message.
func (b *Broker) RegisterListener(queueName string, listener Listener) error {
	queueName = strings.TrimSpace(queueName)
	if queueName == "" {
		return queue.InvalidQueueNameError{Name: queueName, Reason: "must not be empty"}
	}
	if listener == nil {
		return errors.New("listener must not be nil")
	}

	b.store.Ensure(queueName)

	b.mu.Lock()
	b.listeners[queueName] = append(b.listeners[queueName], listener)
	count := len(b.listeners[queueName])
	b.mu.Unlock()

	b.metrics.UpdateActiveListeners(queueName, count)

	b.log.Info().
		Str("queue", queueName).
		Int("listeners", count).
		Msg("Listener registered")

	if b.store.Size(queueName) > 0 {
		b.signalFanOut(queueName)
	}

	return nil
}

// Status returns the redacted per-queue view. It never mutates queue state.
func (b *Broker) Status() map[string]QueueStatus {
	statuses := make(map[string]QueueStatus)

	for _, name := range b.store.Names() {
		msgs := b.store.PeekAll(name)
		views := make([]MessageStatus, 0, len(msgs))
		for _, m := range msgs {
			views = append(views, newMessageStatus(m))
		}

		b.mu.RLock()
		listenerCount := len(b.listeners[name])
		b.mu.RUnlock()

		statuses[name] = QueueStatus{
			Size:      len(msgs),
			Listeners: listenerCount,
			Messages:  views,
		}
	}

	return statuses
}
