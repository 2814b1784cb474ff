// Package task defines the downstream task-submission contract: the payload
// shape, the admission seam the boundary consults, and an HTTP client that
// carries trace context along with each submission.
package task

import (
	"context"

	"github.com/serglom21/distributed-queue-instrumentation/internal/metrics"
)

// Task is the submission payload accepted by the task boundary.
type Task struct {
	TaskType string `json:"taskType"`
	UserID   string `json:"userId"`
}

// AdmissionPredicate decides whether a task may enter the system. A nil
// error admits the task; any error blocks it, and its Error() string becomes
// the rejection reason sent back to the submitter.
type AdmissionPredicate func(ctx context.Context, t Task) error

// AdmitAll accepts every task. Deployments plug their own policy into the
// handler; none ships here.
func AdmitAll(ctx context.Context, t Task) error {
	return nil
}

// CountDecisions wraps a predicate so every admission decision lands in the
// task metrics.
func CountDecisions(m *metrics.TaskMetrics, predicate AdmissionPredicate) AdmissionPredicate {
	return func(ctx context.Context, t Task) error {
		err := predicate(ctx, t)
		if err != nil {
			m.RecordDecision(metrics.StatusBlocked)
		} else {
			m.RecordDecision(metrics.StatusAccepted)
		}
		return err
	}
}
