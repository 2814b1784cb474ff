// Package test assembles the demo topology in-process for integration
// testing: the queue service mounted on a real HTTP listener, the downstream
// task boundary, and a capture hook for observing worker results.
package test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	httpapi "github.com/serglom21/distributed-queue-instrumentation/internal/api/http"
	"github.com/serglom21/distributed-queue-instrumentation/internal/api/http/handlers"
	"github.com/serglom21/distributed-queue-instrumentation/internal/broker"
	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
	"github.com/serglom21/distributed-queue-instrumentation/internal/task"
	"github.com/serglom21/distributed-queue-instrumentation/internal/worker"
)

// QueueService is an in-process queue service bound to an ephemeral port.
// Tests talk to URL over real HTTP; Broker allows direct inspection of what
// the boundary stored.
type QueueService struct {
	URL    string
	Broker *broker.Broker
}

// StartQueueService starts a broker behind the full HTTP boundary and
// returns its base URL. Both are torn down when the test finishes.
func StartQueueService(t *testing.T) *QueueService {
	t.Helper()

	b := broker.New(queue.NewStore())
	require.NoError(t, b.Start(context.Background()))

	router := httpapi.NewRouter(b, handlers.NewHub(), httpapi.RouterConfig{
		CORSAllowedOrigins: []string{"*"},
	})
	srv := httptest.NewServer(router.Handler())

	t.Cleanup(func() {
		srv.Close()
		_ = b.Stop(context.Background())
	})

	return &QueueService{URL: srv.URL, Broker: b}
}

// StartTaskService mounts the task submission boundary with the given
// admission predicate and returns the submit endpoint URL.
func StartTaskService(t *testing.T, predicate task.AdmissionPredicate) string {
	t.Helper()

	h := task.NewHandler(predicate)
	mux := http.NewServeMux()
	mux.Handle("/task/submit", http.HandlerFunc(h.Submit))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv.URL + "/task/submit"
}

// CaptureResults wraps a processor so every Result it produces is also
// delivered on the returned channel. The channel is buffered; tests that
// capture more than cap results must drain as they go.
func CaptureResults(p worker.Processor, capacity int) (worker.Processor, <-chan worker.Result) {
	results := make(chan worker.Result, capacity)
	return capturingProcessor{inner: p, results: results}, results
}

type capturingProcessor struct {
	inner   worker.Processor
	results chan worker.Result
}

func (p capturingProcessor) Process(ctx context.Context, msg *queue.Message) worker.Result {
	result := p.inner.Process(ctx, msg)
	p.results <- result
	return result
}
