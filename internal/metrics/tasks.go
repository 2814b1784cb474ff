package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TaskMetrics tracks task-boundary metrics on both sides: submissions made
// by the relay worker and admission decisions made by the task service.
type TaskMetrics struct {
	submissions *prometheus.CounterVec
	decisions   *prometheus.CounterVec
}

// NewTaskMetrics initializes task metrics with the collector
func NewTaskMetrics(collector *Collector) *TaskMetrics {
	return &TaskMetrics{
		submissions: collector.RegisterCounter(
			MetricTaskSubmissions,
			"Total number of task submissions, by status",
			[]string{LabelStatus},
		),
		decisions: collector.RegisterCounter(
			MetricTaskDecisions,
			"Total number of admission decisions, by decision",
			[]string{LabelDecision},
		),
	}
}

// RecordSubmission counts a task submission by status
func (m *TaskMetrics) RecordSubmission(status string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(status).Inc()
}

// RecordDecision counts an admission decision
func (m *TaskMetrics) RecordDecision(decision string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(decision).Inc()
}
