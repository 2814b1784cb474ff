package broker

import (
	"context"

	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracing"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
)

// signalFanOut appends a fan-out directive for the named queue. Directives
// are processed strictly in order by the single dispatcher goroutine, which
// keeps per-queue delivery FIFO.
func (b *Broker) signalFanOut(queueName string) {
	b.dispatchMu.Lock()
	closed := b.closed
	if !closed {
		b.directives = append(b.directives, queueName)
		b.dispatch.Signal()
	}
	b.dispatchMu.Unlock()

	if closed {
		b.log.Warn().
			Str("queue", queueName).
			Msg("Broker is stopped; fan-out directive dropped")
	}
}

// dispatchLoop drains fan-out directives until the broker is stopped.
// Remaining directives are processed before the loop exits.
func (b *Broker) dispatchLoop() {
	defer b.wg.Done()

	for {
		b.dispatchMu.Lock()
		for len(b.directives) == 0 && !b.closed {
			b.dispatch.Wait()
		}
		if len(b.directives) == 0 && b.closed {
			b.running = false
			b.dispatchMu.Unlock()
			return
		}
		queueName := b.directives[0]
		b.directives = b.directives[1:]
		b.active = true
		b.dispatchMu.Unlock()

		b.fanOut(queueName)

		b.dispatchMu.Lock()
		b.active = false
		b.dispatchMu.Unlock()
	}
}

// idle reports whether the dispatcher has no queued or in-flight directive.
func (b *Broker) idle() bool {
	b.dispatchMu.Lock()
	defer b.dispatchMu.Unlock()
	return len(b.directives) == 0 && !b.active
}

// fanOut delivers at most one buffered message to every listener of the
// named queue. No listeners means no dequeue: the backlog stays intact for
// pull consumers or a later registration.
func (b *Broker) fanOut(queueName string) {
	b.mu.RLock()
	registered := b.listeners[queueName]
	ls := make([]Listener, len(registered))
	copy(ls, registered)
	b.mu.RUnlock()

	if len(ls) == 0 {
		return
	}

	msgs := b.store.DequeueUpTo(queueName, 1)
	if len(msgs) == 0 {
		return
	}
	msg := msgs[0]

	ctx := context.Background()
	if tc, err := b.tracer.Parse(msg.SentryTrace); err == nil {
		tc.Baggage = msg.Baggage
		ctx = tracectx.NewContext(ctx, tc)
		ctx = tracing.ContextWithRemote(ctx, tc)
	}

	ctx, span := StartFanOutSpan(ctx, queueName, len(ls))
	defer span.End()

	for i, listener := range ls {
		b.deliver(ctx, queueName, i, msg, listener)
	}

	b.metrics.UpdateDepth(queueName, b.store.Size(queueName))
}

// deliver invokes one listener, isolating errors and panics so the
// remaining listeners still run.
func (b *Broker) deliver(ctx context.Context, queueName string, index int, msg *queue.Message, listener Listener) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.RecordListenerFailure(queueName)
			b.log.Error().
				Str("queue", queueName).
				Int("listener", index).
				Str("message_id", msg.MessageID).
				Interface("panic", r).
				Msg("Listener panicked")
		}
	}()

	b.metrics.RecordFanoutDelivery(queueName)

	if err := listener(ctx, msg); err != nil {
		b.metrics.RecordListenerFailure(queueName)
		b.log.Error().
			Err(err).
			Str("queue", queueName).
			Int("listener", index).
			Str("message_id", msg.MessageID).
			Msg("Listener failed")
	}
}
