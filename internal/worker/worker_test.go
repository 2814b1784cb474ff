package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
)

type sourceFunc func(ctx context.Context, queueName string, max int) ([]*queue.Message, error)

func (f sourceFunc) Receive(ctx context.Context, queueName string, max int) ([]*queue.Message, error) {
	return f(ctx, queueName, max)
}

type processorFunc func(ctx context.Context, msg *queue.Message) Result

func (f processorFunc) Process(ctx context.Context, msg *queue.Message) Result {
	return f(ctx, msg)
}

func TestWorker_Run_ProcessesMessages(t *testing.T) {
	var polls atomic.Int32
	source := sourceFunc(func(ctx context.Context, queueName string, max int) ([]*queue.Message, error) {
		assert.Equal(t, "task-queue", queueName)
		assert.Equal(t, 1, max, "MaxMessages defaults to 1")
		if polls.Add(1) == 1 {
			return []*queue.Message{{MessageID: "01HONE"}}, nil
		}
		return nil, nil
	})

	processed := make(chan *queue.Message, 1)
	proc := processorFunc(func(ctx context.Context, msg *queue.Message) Result {
		processed <- msg
		return Result{Success: true, ProcessedBy: "test", ProcessedAt: time.Now()}
	})

	w := New(Config{
		Name:         "test",
		QueueName:    "task-queue",
		PollInterval: 5 * time.Millisecond,
	}, source, proc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case msg := <-processed:
		assert.Equal(t, "01HONE", msg.MessageID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the worker to process the message")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWorker_Run_ContinuesAfterTransportError(t *testing.T) {
	var polls atomic.Int32
	recovered := make(chan struct{})
	source := sourceFunc(func(ctx context.Context, queueName string, max int) ([]*queue.Message, error) {
		switch polls.Add(1) {
		case 1:
			return nil, errors.New("connection refused")
		case 2:
			close(recovered)
		}
		return nil, nil
	})

	proc := processorFunc(func(ctx context.Context, msg *queue.Message) Result {
		t.Error("no message should reach the processor")
		return Result{}
	})

	w := New(Config{
		Name:               "test",
		QueueName:          "task-queue",
		PollInterval:       5 * time.Millisecond,
		ErrorRetryInterval: 5 * time.Millisecond,
	}, source, proc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-recovered:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not poll again after a transport error")
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWorker_Run_PassesMaxMessages(t *testing.T) {
	gotMax := make(chan int, 1)
	source := sourceFunc(func(ctx context.Context, queueName string, max int) ([]*queue.Message, error) {
		select {
		case gotMax <- max:
		default:
		}
		return nil, nil
	})
	proc := processorFunc(func(ctx context.Context, msg *queue.Message) Result { return Result{} })

	w := New(Config{
		Name:         "test",
		QueueName:    "task-queue",
		MaxMessages:  25,
		PollInterval: 5 * time.Millisecond,
	}, source, proc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case max := <-gotMax:
		assert.Equal(t, 25, max)
	case <-time.After(2 * time.Second):
		t.Fatal("worker never polled")
	}

	cancel()
	<-done
}

func TestWorker_Run_StopsOnCancel(t *testing.T) {
	source := sourceFunc(func(ctx context.Context, queueName string, max int) ([]*queue.Message, error) {
		return nil, nil
	})
	proc := processorFunc(func(ctx context.Context, msg *queue.Message) Result { return Result{} })

	w := New(Config{Name: "test", QueueName: "task-queue"}, source, proc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
