package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serglom21/distributed-queue-instrumentation/internal/broker"
	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
	"github.com/serglom21/distributed-queue-instrumentation/internal/task"
)

const testTraceHeader = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-1111111111111111-1"

func newTestBroker(t *testing.T) *broker.Broker {
	t.Helper()

	b := broker.New(queue.NewStore())
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = b.Stop(ctx)
	})
	return b
}

func tracedMessage() *queue.Message {
	return &queue.Message{
		MessageID:   "01HINBOUND",
		SentryTrace: testTraceHeader,
		Baggage:     "sentry-environment=test",
		Payload:     map[string]any{"taskType": "demo"},
	}
}

func newRelay(b *broker.Broker, tasks *task.Client) *RelayProcessor {
	return NewRelayProcessor(RelayConfig{
		Name:         "relay-worker",
		QueueName:    "task-queue",
		ForwardQueue: "python-worker-queue",
		Tasks:        tasks,
		TaskUserID:   "user-123",
	}, BrokerQueues{Broker: b})
}

func TestRelayProcessor_ForwardsDerivedMessage(t *testing.T) {
	b := newTestBroker(t)
	p := newRelay(b, nil)

	result := p.Process(context.Background(), tracedMessage())

	require.True(t, result.Success)
	assert.Equal(t, "relay-worker", result.ProcessedBy)
	assert.Equal(t, "python-worker-queue", result.ForwardedTo)
	assert.False(t, result.ProcessedAt.IsZero())

	require.NotNil(t, result.Span)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", result.Span.TraceID, "trace id survives the hop")
	assert.Equal(t, "1111111111111111", result.Span.ParentSpanID, "inbound span parents the relay's hop")
	assert.NotEqual(t, "1111111111111111", result.Span.SpanID, "the relay mints its own span")

	forwarded := b.ReceiveUpTo(context.Background(), "python-worker-queue", 1)
	require.Len(t, forwarded, 1)
	fwd := forwarded[0]

	require.NotEqual(t, testTraceHeader, fwd.SentryTrace, "the inbound header must not be re-embedded")
	parts := strings.Split(fwd.SentryTrace, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", parts[0])
	assert.Equal(t, result.Span.SpanID, parts[1], "derived header carries the relay's own span")
	assert.Equal(t, "1", parts[2])

	assert.Equal(t, "sentry-environment=test", fwd.Baggage, "baggage is copied verbatim")
	assert.Equal(t, "demo", fwd.PayloadString("taskType"), "payload is preserved")
}

func TestRelayProcessor_ForwardedSnapshotCarriesParentLinkage(t *testing.T) {
	b := newTestBroker(t)
	p := newRelay(b, nil)

	result := p.Process(context.Background(), tracedMessage())
	require.True(t, result.Success)

	forwarded := b.ReceiveUpTo(context.Background(), "python-worker-queue", 1)
	require.Len(t, forwarded, 1)
	md := forwarded[0].TraceMetadata

	require.NotNil(t, md)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", md.TraceID)
	assert.Equal(t, result.Span.SpanID, md.SpanID, "snapshot matches the relay's hop")
	assert.Equal(t, "1111111111111111", md.ParentSpanID, "previous hop's span parents the snapshot")
}

func TestRelayProcessor_MissingTrace(t *testing.T) {
	b := newTestBroker(t)
	p := newRelay(b, nil)

	result := p.Process(context.Background(), &queue.Message{
		MessageID: "01HINBOUND",
		Payload:   map[string]any{"taskType": "demo"},
	})

	assert.False(t, result.Success)
	assert.Equal(t, "No trace context", result.Error)
	assert.Empty(t, result.ForwardedTo)
	assert.Nil(t, result.Span, "no trace id may be fabricated")

	forwarded := b.ReceiveUpTo(context.Background(), "python-worker-queue", 10)
	assert.Empty(t, forwarded, "nothing may be forwarded without a trace")
}

func TestRelayProcessor_MalformedTraceTreatedAsMissing(t *testing.T) {
	b := newTestBroker(t)
	p := newRelay(b, nil)

	result := p.Process(context.Background(), &queue.Message{
		MessageID:   "01HINBOUND",
		SentryTrace: "not-a-trace-header",
	})

	assert.False(t, result.Success)
	assert.Equal(t, "No trace context", result.Error)
	assert.Empty(t, b.ReceiveUpTo(context.Background(), "python-worker-queue", 10))
}

func TestRelayProcessor_SubmitsTaskOnRelayHop(t *testing.T) {
	var gotTrace string
	var gotBody task.Task
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = r.Header.Get("sentry-trace")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"accepted":true,"taskId":"t-1"}`))
	}))
	defer srv.Close()

	b := newTestBroker(t)
	p := newRelay(b, task.NewClient(srv.URL))

	result := p.Process(context.Background(), tracedMessage())
	require.True(t, result.Success)

	assert.Equal(t, "demo", gotBody.TaskType)
	assert.Equal(t, "user-123", gotBody.UserID)

	parts := strings.Split(gotTrace, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", parts[0], "submission joins the same trace")
	assert.Equal(t, result.Span.SpanID, parts[1], "submission rides on the relay's hop")

	assert.Len(t, b.ReceiveUpTo(context.Background(), "python-worker-queue", 1), 1)
}

func TestRelayProcessor_BlockedTaskStopsForward(t *testing.T) {
	h := task.NewHandler(func(ctx context.Context, tk task.Task) error {
		return errors.New("demo rejection policy")
	})
	srv := httptest.NewServer(http.HandlerFunc(h.Submit))
	defer srv.Close()

	b := newTestBroker(t)
	p := newRelay(b, task.NewClient(srv.URL))

	result := p.Process(context.Background(), tracedMessage())

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "task blocked")
	assert.Empty(t, result.ForwardedTo)
	assert.Empty(t, b.ReceiveUpTo(context.Background(), "python-worker-queue", 10),
		"a blocked task must not be forwarded")
}

func TestRelayProcessor_TaskBoundaryDownForwardsAnyway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	b := newTestBroker(t)
	tasks := task.NewClient(url, task.WithRetryCount(0), task.WithTimeout(500*time.Millisecond))
	p := newRelay(b, tasks)

	result := p.Process(context.Background(), tracedMessage())

	require.True(t, result.Success, "an unreachable task boundary must not stall the chain")
	assert.Len(t, b.ReceiveUpTo(context.Background(), "python-worker-queue", 1), 1)
}

func TestTraceChain_AdvancesAcrossHops(t *testing.T) {
	b := newTestBroker(t)
	relay := newRelay(b, nil)
	infer := NewInferenceProcessor(InferenceConfig{
		Name:          "inference-worker",
		QueueName:     "python-worker-queue",
		LoadDuration:  time.Millisecond,
		InferDuration: time.Millisecond,
	})

	first := relay.Process(context.Background(), tracedMessage())
	require.True(t, first.Success)

	forwarded := b.ReceiveUpTo(context.Background(), "python-worker-queue", 1)
	require.Len(t, forwarded, 1)

	second := infer.Process(context.Background(), forwarded[0])
	require.True(t, second.Success)

	assert.Equal(t, first.Span.TraceID, second.Span.TraceID, "one trace id across the whole chain")
	assert.Equal(t, first.Span.SpanID, second.Span.ParentSpanID, "each hop parents the next")
	assert.NotEqual(t, first.Span.SpanID, second.Span.SpanID)
	assert.Equal(t, "sentry-environment=test", forwarded[0].Baggage, "baggage rides the chain verbatim")
}
