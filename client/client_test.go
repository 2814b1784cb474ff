package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serglom21/distributed-queue-instrumentation/internal/broker"
	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
)

const testTraceHeader = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa-1111111111111111-1"

func testTraceContext(t *testing.T) tracectx.Context {
	t.Helper()

	tc, err := tracectx.ParseHeader(testTraceHeader)
	require.NoError(t, err)
	tc.Baggage = "sentry-environment=test"
	return tc
}

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

func TestClient_Send(t *testing.T) {
	var gotTrace, gotBaggage string
	var gotBody struct {
		QueueName string         `json:"queueName"`
		Message   map[string]any `json:"message"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/queue/send", r.URL.Path)
		gotTrace = r.Header.Get(tracectx.HeaderTrace)
		gotBaggage = r.Header.Get(tracectx.HeaderBaggage)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"messageId":"01HTEST"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	ctx := tracectx.NewContext(context.Background(), testTraceContext(t))

	result, err := c.Send(ctx, "task-queue", &queue.Message{
		Payload: map[string]any{"task": "resize-image"},
	})
	require.NoError(t, err)
	assert.Equal(t, "01HTEST", result.MessageID)
	assert.False(t, result.Degraded)

	assert.Equal(t, testTraceHeader, gotTrace)
	assert.Equal(t, "sentry-environment=test", gotBaggage)
	assert.Equal(t, "task-queue", gotBody.QueueName)
	assert.Equal(t, "resize-image", gotBody.Message["task"])
}

func TestClient_Send_NoTraceContext(t *testing.T) {
	var gotTrace string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTrace = r.Header.Get(tracectx.HeaderTrace)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"messageId":"01HTEST"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Send(context.Background(), "task-queue", &queue.Message{
		Payload: map[string]any{"task": "resize-image"},
	})
	require.NoError(t, err)
	assert.Empty(t, gotTrace, "no propagation context on ctx should send no trace header")
}

func TestClient_Send_ValidationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"validation error for field 'queueName': must not be empty"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.Send(context.Background(), "", &queue.Message{})
	require.Error(t, err)

	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, http.StatusBadRequest, ce.StatusCode)
	assert.Contains(t, ce.Message, "queueName")
	assert.True(t, IsBadRequest(err))
	assert.False(t, IsServerError(err))
}

func TestClient_Send_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, WithRetryCount(0), WithTimeout(500*time.Millisecond))
	_, err := c.Send(context.Background(), "task-queue", &queue.Message{
		Payload: map[string]any{"task": "resize-image"},
	})
	require.Error(t, err)

	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Zero(t, ce.StatusCode, "transport failures carry no HTTP status")
	assert.False(t, IsBadRequest(err))
	assert.False(t, IsServerError(err))
}

func TestClient_Send_FallbackBroker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	b := newTestBroker(t)
	c := New(url,
		WithRetryCount(0),
		WithTimeout(500*time.Millisecond),
		WithFallback(b),
	)

	ctx := tracectx.NewContext(context.Background(), testTraceContext(t))
	result, err := c.Send(ctx, "task-queue", &queue.Message{
		Payload: map[string]any{"task": "resize-image"},
	})
	require.NoError(t, err)
	assert.True(t, result.Degraded)
	assert.NotEmpty(t, result.MessageID)

	messages := b.ReceiveUpTo(context.Background(), "task-queue", 1)
	require.Len(t, messages, 1)
	assert.Equal(t, result.MessageID, messages[0].MessageID)
	assert.Equal(t, "resize-image", messages[0].PayloadString("task"))
	assert.Equal(t, testTraceHeader, messages[0].SentryTrace,
		"fallback broker stamps the same propagation context the service would have")
}

func TestClient_Receive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/queue/receive", r.URL.Path)

		var req struct {
			QueueName   string `json:"queueName"`
			MaxMessages int    `json:"maxMessages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "task-queue", req.QueueName)
		require.Equal(t, 5, req.MaxMessages)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messages":[{"messageId":"01HONE","sentryTrace":"` + testTraceHeader + `","task":"resize-image"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	messages, err := c.Receive(context.Background(), "task-queue", 5)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "01HONE", messages[0].MessageID)
	assert.Equal(t, testTraceHeader, messages[0].SentryTrace)
	assert.Equal(t, "resize-image", messages[0].PayloadString("task"))
}

func TestClient_Receive_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messages":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	messages, err := c.Receive(context.Background(), "task-queue", 1)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestClient_Status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/queue/status", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"traceData": {"traceId":"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa","spanId":"1111111111111111","sampled":true},
			"activeSpan": "1111111111111111",
			"queues": {
				"task-queue": {
					"size": 1,
					"listeners": 0,
					"messages": [{"messageId":"01HONE","hasTrace":true,"traceId":"aaaaaaaa..."}]
				}
			}
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	status, err := c.Status(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status.TraceData)
	assert.Equal(t, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", status.TraceData.TraceID)
	assert.Equal(t, "1111111111111111", status.ActiveSpan)

	qs, ok := status.Queues["task-queue"]
	require.True(t, ok)
	assert.Equal(t, 1, qs.Size)
	require.Len(t, qs.Messages, 1)
	assert.Equal(t, "aaaaaaaa...", qs.Messages[0].TraceID)
}

func TestClient_HealthAndReadiness(t *testing.T) {
	ready := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/health":
			w.Write([]byte(`{"status":"healthy"}`))
		case "/ready":
			if !ready {
				w.WriteHeader(http.StatusServiceUnavailable)
			}
			w.Write([]byte(`{"status":"ready"}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	require.NoError(t, c.HealthCheck(context.Background()))

	ok, err := c.ReadinessCheck(context.Background())
	require.NoError(t, err, "a 503 readiness answer is not an error")
	assert.False(t, ok)

	ready = true
	ok, err = c.ReadinessCheck(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}
