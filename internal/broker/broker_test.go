package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
)

const producerHeader = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-1111111111111111-1"

func newTestBroker(t *testing.T) *Broker {
	t.Helper()

	b := New(queue.NewStore())
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = b.Stop(ctx)
	})
	return b
}

func producerContext(t *testing.T) context.Context {
	t.Helper()

	tc, err := tracectx.ParseHeader(producerHeader)
	require.NoError(t, err)
	tc.Baggage = "sentry-environment=dev"
	return tracectx.NewContext(context.Background(), tc)
}

func waitForMessage(t *testing.T, ch <-chan string) string {
	t.Helper()

	select {
	case id := <-ch:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fan-out delivery")
		return ""
	}
}

func TestBroker_Send_AssignsDeliveryIdentity(t *testing.T) {
	b := newTestBroker(t)

	before := time.Now().UnixMilli()
	msg, err := b.Send(context.Background(), "task-queue", &queue.Message{
		Payload: map[string]any{"taskType": "inference"},
	})
	require.NoError(t, err)

	assert.Len(t, msg.MessageID, 26)
	_, err = uuid.Parse(msg.ReceiptHandle)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, msg.SentTimestamp, before)
	assert.LessOrEqual(t, msg.SentTimestamp, time.Now().UnixMilli())
}

func TestBroker_Send_PropagatesRequestContextVerbatim(t *testing.T) {
	b := newTestBroker(t)

	msg, err := b.Send(producerContext(t), "task-queue", &queue.Message{
		Payload: map[string]any{"taskType": "inference"},
	})
	require.NoError(t, err)

	// The boundary copies the producer's context onto the message without
	// advancing the span chain: same trace id AND same span id.
	assert.Equal(t, producerHeader, msg.SentryTrace)
	assert.Equal(t, "sentry-environment=dev", msg.Baggage)
	require.NotNil(t, msg.TraceMetadata)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", msg.TraceMetadata.TraceID)
	assert.Equal(t, "1111111111111111", msg.TraceMetadata.SpanID)
}

func TestBroker_Send_BodyEmbeddedTraceWins(t *testing.T) {
	b := newTestBroker(t)

	embedded := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb-2222222222222222-0"
	msg, err := b.Send(producerContext(t), "task-queue", &queue.Message{
		SentryTrace: embedded,
		Baggage:     "sentry-release=embedded",
	})
	require.NoError(t, err)

	assert.Equal(t, embedded, msg.SentryTrace)
	assert.Equal(t, "sentry-release=embedded", msg.Baggage)
	require.NotNil(t, msg.TraceMetadata)
	assert.Equal(t, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", msg.TraceMetadata.TraceID)
	assert.Equal(t, "2222222222222222", msg.TraceMetadata.SpanID)
}

func TestBroker_Send_KeepsProducerSuppliedSnapshot(t *testing.T) {
	b := newTestBroker(t)

	// A forwarding worker sets the snapshot itself; only it knows the
	// parent span id, which the header cannot carry.
	msg, err := b.Send(context.Background(), "task-queue", &queue.Message{
		SentryTrace: "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb-3333333333333333-1",
		TraceMetadata: &queue.TraceMetadata{
			TraceID:      "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
			SpanID:       "3333333333333333",
			ParentSpanID: "2222222222222222",
		},
	})
	require.NoError(t, err)

	require.NotNil(t, msg.TraceMetadata)
	assert.Equal(t, "2222222222222222", msg.TraceMetadata.ParentSpanID, "parent linkage survives the boundary")
	assert.Equal(t, "3333333333333333", msg.TraceMetadata.SpanID)
}

func TestBroker_Send_MalformedBodyTraceFallsBack(t *testing.T) {
	b := newTestBroker(t)

	msg, err := b.Send(producerContext(t), "task-queue", &queue.Message{
		SentryTrace: "not-a-trace-header",
	})
	require.NoError(t, err)

	// Malformed embedded header is treated as absent; the request context
	// is stamped instead.
	assert.Equal(t, producerHeader, msg.SentryTrace)
	assert.Equal(t, "sentry-environment=dev", msg.Baggage)
}

func TestBroker_Send_MintsFreshRootWithoutContext(t *testing.T) {
	b := newTestBroker(t)

	msg, err := b.Send(context.Background(), "task-queue", nil)
	require.NoError(t, err)

	tc, err := tracectx.ParseHeader(msg.SentryTrace)
	require.NoError(t, err)
	assert.True(t, tc.Sampled)
	assert.Empty(t, msg.Baggage)
	require.NotNil(t, msg.TraceMetadata)
	assert.Equal(t, tc.TraceID.String(), msg.TraceMetadata.TraceID)
	assert.Equal(t, tc.SpanID.String(), msg.TraceMetadata.SpanID)
	assert.Empty(t, msg.TraceMetadata.ParentSpanID)
}

func TestBroker_Send_InvalidQueueName(t *testing.T) {
	b := newTestBroker(t)

	_, err := b.Send(context.Background(), "   ", nil)
	require.Error(t, err)
	assert.IsType(t, queue.InvalidQueueNameError{}, err)
}

func TestBroker_ReceiveUpTo_FIFO(t *testing.T) {
	b := newTestBroker(t)

	first, err := b.Send(context.Background(), "task-queue", nil)
	require.NoError(t, err)
	second, err := b.Send(context.Background(), "task-queue", nil)
	require.NoError(t, err)
	third, err := b.Send(context.Background(), "task-queue", nil)
	require.NoError(t, err)

	msgs := b.ReceiveUpTo(context.Background(), "task-queue", 2)
	require.Len(t, msgs, 2)
	assert.Equal(t, first.MessageID, msgs[0].MessageID)
	assert.Equal(t, second.MessageID, msgs[1].MessageID)

	rest := b.ReceiveUpTo(context.Background(), "task-queue", 10)
	require.Len(t, rest, 1)
	assert.Equal(t, third.MessageID, rest[0].MessageID)

	// Drained queue yields an empty result, never blocks
	assert.Empty(t, b.ReceiveUpTo(context.Background(), "task-queue", 1))
	assert.Empty(t, b.ReceiveUpTo(context.Background(), "unknown-queue", 1))
}

func TestBroker_FanOut_DeliversToAllListeners(t *testing.T) {
	b := newTestBroker(t)

	received := make(chan string, 3)
	for i := 0; i < 3; i++ {
		require.NoError(t, b.RegisterListener("task-queue", func(ctx context.Context, m *queue.Message) error {
			received <- m.MessageID
			return nil
		}))
	}

	sent, err := b.Send(context.Background(), "task-queue", nil)
	require.NoError(t, err)

	// Every listener sees the same single message
	for i := 0; i < 3; i++ {
		assert.Equal(t, sent.MessageID, waitForMessage(t, received))
	}

	// The fanned-out message is gone from the queue
	assert.Eventually(t, func() bool {
		return b.store.Size("task-queue") == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBroker_FanOut_ListenerReceivesTraceContext(t *testing.T) {
	b := newTestBroker(t)

	got := make(chan tracectx.Context, 1)
	require.NoError(t, b.RegisterListener("task-queue", func(ctx context.Context, m *queue.Message) error {
		tc, _ := tracectx.FromContext(ctx)
		got <- tc
		return nil
	}))

	_, err := b.Send(producerContext(t), "task-queue", nil)
	require.NoError(t, err)

	select {
	case tc := <-got:
		assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", tc.TraceID.String())
		assert.Equal(t, "1111111111111111", tc.SpanID.String())
		assert.Equal(t, "sentry-environment=dev", tc.Baggage)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for listener")
	}
}

func TestBroker_RegisterListener_DrainsSingleBufferedMessage(t *testing.T) {
	b := newTestBroker(t)

	first, err := b.Send(context.Background(), "task-queue", nil)
	require.NoError(t, err)
	_, err = b.Send(context.Background(), "task-queue", nil)
	require.NoError(t, err)
	_, err = b.Send(context.Background(), "task-queue", nil)
	require.NoError(t, err)

	// Let the listener-less send directives drain; nothing is dequeued
	require.Eventually(t, b.idle, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, 3, b.store.Size("task-queue"))

	received := make(chan string, 3)
	require.NoError(t, b.RegisterListener("task-queue", func(ctx context.Context, m *queue.Message) error {
		received <- m.MessageID
		return nil
	}))

	// Registration fans out exactly one buffered message, the oldest
	assert.Equal(t, first.MessageID, waitForMessage(t, received))

	select {
	case id := <-received:
		t.Fatalf("unexpected extra delivery: %s", id)
	case <-time.After(300 * time.Millisecond):
	}

	assert.Equal(t, 2, b.store.Size("task-queue"))
}

func TestBroker_FanOut_ListenerFailureIsolation(t *testing.T) {
	b := newTestBroker(t)

	received := make(chan string, 2)
	require.NoError(t, b.RegisterListener("task-queue", func(ctx context.Context, m *queue.Message) error {
		return errors.New("listener exploded")
	}))
	require.NoError(t, b.RegisterListener("task-queue", func(ctx context.Context, m *queue.Message) error {
		panic("listener panicked")
	}))
	require.NoError(t, b.RegisterListener("task-queue", func(ctx context.Context, m *queue.Message) error {
		received <- m.MessageID
		return nil
	}))

	first, err := b.Send(context.Background(), "task-queue", nil)
	require.NoError(t, err)
	assert.Equal(t, first.MessageID, waitForMessage(t, received))

	// The dispatcher survives failing listeners and keeps delivering
	second, err := b.Send(context.Background(), "task-queue", nil)
	require.NoError(t, err)
	assert.Equal(t, second.MessageID, waitForMessage(t, received))
}

func TestBroker_FanOut_PreservesSendOrder(t *testing.T) {
	b := newTestBroker(t)

	received := make(chan string, 5)
	require.NoError(t, b.RegisterListener("task-queue", func(ctx context.Context, m *queue.Message) error {
		received <- m.MessageID
		return nil
	}))

	var want []string
	for i := 0; i < 5; i++ {
		msg, err := b.Send(context.Background(), "task-queue", nil)
		require.NoError(t, err)
		want = append(want, msg.MessageID)
	}

	var got []string
	for i := 0; i < 5; i++ {
		got = append(got, waitForMessage(t, received))
	}
	assert.Equal(t, want, got)
}

func TestBroker_Send_ReturnsBeforeListenerCompletes(t *testing.T) {
	b := newTestBroker(t)

	release := make(chan struct{})
	done := make(chan struct{})
	require.NoError(t, b.RegisterListener("task-queue", func(ctx context.Context, m *queue.Message) error {
		<-release
		close(done)
		return nil
	}))

	// The listener cannot finish until released, yet Send returns.
	_, err := b.Send(context.Background(), "task-queue", nil)
	require.NoError(t, err)

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener never ran")
	}
}

func TestBroker_Status_RedactsAndDoesNotMutate(t *testing.T) {
	b := newTestBroker(t)

	_, err := b.Send(producerContext(t), "task-queue", nil)
	require.NoError(t, err)

	statuses := b.Status()
	qs, ok := statuses["task-queue"]
	require.True(t, ok)
	assert.Equal(t, 1, qs.Size)
	assert.Equal(t, 0, qs.Listeners)
	require.Len(t, qs.Messages, 1)

	view := qs.Messages[0]
	assert.True(t, view.HasTrace)
	assert.Equal(t, "aaaaaaaa...", view.TraceID)
	require.NotNil(t, view.TraceMetadata)
	assert.Equal(t, "aaaaaaaa...", view.TraceMetadata.TraceID)
	assert.Equal(t, "1111111111111111", view.TraceMetadata.SpanID)

	// Status is a pure read: the message is still pullable afterwards
	again := b.Status()
	assert.Equal(t, 1, again["task-queue"].Size)
	msgs := b.ReceiveUpTo(context.Background(), "task-queue", 10)
	assert.Len(t, msgs, 1)
}

func TestBroker_StartStop_Idempotent(t *testing.T) {
	b := New(queue.NewStore())

	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Start(context.Background()))
	assert.True(t, b.Ready())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.Stop(ctx))
	require.NoError(t, b.Stop(ctx))
	assert.False(t, b.Ready())
}
