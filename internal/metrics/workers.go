package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WorkerMetrics tracks polling-consumer metrics
type WorkerMetrics struct {
	polls           *prometheus.CounterVec
	emptyPolls      *prometheus.CounterVec
	transportErrors *prometheus.CounterVec
	processed       *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	forwards        *prometheus.CounterVec
}

// NewWorkerMetrics initializes worker metrics with the collector
func NewWorkerMetrics(collector *Collector) *WorkerMetrics {
	return &WorkerMetrics{
		polls: collector.RegisterCounter(
			MetricWorkerPolls,
			"Total number of poll attempts against the queue service",
			[]string{LabelWorker, LabelQueue},
		),
		emptyPolls: collector.RegisterCounter(
			MetricWorkerEmptyPolls,
			"Total number of polls that returned no messages",
			[]string{LabelWorker, LabelQueue},
		),
		transportErrors: collector.RegisterCounter(
			MetricWorkerTransportErrors,
			"Total number of polls that failed at the transport layer",
			[]string{LabelWorker, LabelQueue},
		),
		processed: collector.RegisterCounter(
			MetricWorkerProcessed,
			"Total number of messages processed, by outcome",
			[]string{LabelWorker, LabelQueue, LabelOutcome},
		),
		processDuration: collector.RegisterHistogram(
			MetricWorkerProcessDuration,
			"Duration of message processing in seconds",
			[]string{LabelWorker, LabelQueue},
			prometheus.DefBuckets,
		),
		forwards: collector.RegisterCounter(
			MetricWorkerForwards,
			"Total number of derived messages forwarded downstream, by status",
			[]string{LabelWorker, LabelQueue, LabelStatus},
		),
	}
}

// RecordPoll counts a poll attempt and whether it came back empty
func (m *WorkerMetrics) RecordPoll(worker, queue string, received int) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(worker, queue).Inc()
	if received == 0 {
		m.emptyPolls.WithLabelValues(worker, queue).Inc()
	}
}

// RecordTransportError counts a failed poll
func (m *WorkerMetrics) RecordTransportError(worker, queue string) {
	if m == nil {
		return
	}
	m.transportErrors.WithLabelValues(worker, queue).Inc()
}

// RecordProcessed records a processed message with its outcome
func (m *WorkerMetrics) RecordProcessed(worker, queue, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.processed.WithLabelValues(worker, queue, outcome).Inc()
	m.processDuration.WithLabelValues(worker, queue).Observe(duration.Seconds())
}

// RecordForward records a downstream forward attempt by status
func (m *WorkerMetrics) RecordForward(worker, queue, status string) {
	if m == nil {
		return
	}
	m.forwards.WithLabelValues(worker, queue, status).Inc()
}
