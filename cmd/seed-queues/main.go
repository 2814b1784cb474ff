package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/serglom21/distributed-queue-instrumentation/client"
	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
)

func main() {
	// Use the default queue service address (same as running server)
	baseURL := "http://localhost:3002"
	if len(os.Args) > 1 {
		baseURL = os.Args[1]
	}

	ctx := context.Background()
	qc := client.New(baseURL, client.WithTimeout(5*time.Second))

	if err := qc.HealthCheck(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Queue service is not reachable at %s: %v\n", baseURL, err)
		os.Exit(1)
	}

	// Seed messages for the demo chain. Each one starts its own trace at
	// this producer, so the relay and inference hops have a root to continue.
	messages := []struct {
		queueName string
		taskType  string
	}{
		{"task-queue", "image-classification"},
		{"task-queue", "text-embedding"},
		{"task-queue", "demo"},
	}

	tracer := tracectx.New()

	fmt.Println("Seeding queues...")
	for i, m := range messages {
		root := tracer.NewRootContext()
		sendCtx := tracectx.NewContext(ctx, root)

		result, err := qc.Send(sendCtx, m.queueName, &queue.Message{
			Payload: map[string]any{
				"taskType": m.taskType,
				"userId":   "seed-script",
				"sequence": i + 1,
			},
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to send message %d to %s: %v\n", i+1, m.queueName, err)
			continue
		}

		fmt.Printf("  Sent %s to %s: ID=%s, Trace=%s\n", m.taskType, m.queueName, result.MessageID, root.TraceID)
	}

	fmt.Println("\nDone! Watch the relay and inference workers pick these up.")
}
