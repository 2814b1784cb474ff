package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// QueueMetrics tracks queue and fan-out related metrics
type QueueMetrics struct {
	queueDepth         *prometheus.GaugeVec
	messagesSent       *prometheus.CounterVec
	messagesReceived   *prometheus.CounterVec
	fanoutDeliveries   *prometheus.CounterVec
	listenerFailures   *prometheus.CounterVec
	sendDuration       *prometheus.HistogramVec
	receiveDuration    *prometheus.HistogramVec
	activeListeners    *prometheus.GaugeVec
	traceContinuations *prometheus.CounterVec
}

// NewQueueMetrics initializes queue metrics with the collector
func NewQueueMetrics(collector *Collector) *QueueMetrics {
	return &QueueMetrics{
		queueDepth: collector.RegisterGauge(
			MetricQueueDepth,
			"Number of messages buffered per queue",
			[]string{LabelQueue},
		),
		messagesSent: collector.RegisterCounter(
			MetricQueueMessagesSent,
			"Total number of messages accepted for delivery",
			[]string{LabelQueue},
		),
		messagesReceived: collector.RegisterCounter(
			MetricQueueMessagesReceived,
			"Total number of messages handed out to pull consumers",
			[]string{LabelQueue},
		),
		fanoutDeliveries: collector.RegisterCounter(
			MetricQueueFanoutDeliveries,
			"Total number of listener callback invocations",
			[]string{LabelQueue},
		),
		listenerFailures: collector.RegisterCounter(
			MetricQueueListenerFailures,
			"Total number of listener callbacks that returned an error or panicked",
			[]string{LabelQueue},
		),
		sendDuration: collector.RegisterHistogram(
			MetricQueueSendDuration,
			"Duration of send operations in seconds",
			[]string{LabelQueue},
			prometheus.DefBuckets,
		),
		receiveDuration: collector.RegisterHistogram(
			MetricQueueReceiveDuration,
			"Duration of receive operations in seconds",
			[]string{LabelQueue},
			prometheus.DefBuckets,
		),
		activeListeners: collector.RegisterGauge(
			MetricQueueActiveListeners,
			"Number of registered push listeners per queue",
			[]string{LabelQueue},
		),
		traceContinuations: collector.RegisterCounter(
			MetricQueueTraceContinuation,
			"Total number of messages stamped with trace context, by origin",
			[]string{LabelQueue, LabelOrigin},
		),
	}
}

// RecordSend records a send operation
func (m *QueueMetrics) RecordSend(queue string, duration time.Duration) {
	if m == nil {
		return
	}
	m.sendDuration.WithLabelValues(queue).Observe(duration.Seconds())
	m.messagesSent.WithLabelValues(queue).Inc()
}

// RecordReceive records a receive operation handing out count messages
func (m *QueueMetrics) RecordReceive(queue string, count int, duration time.Duration) {
	if m == nil {
		return
	}
	m.receiveDuration.WithLabelValues(queue).Observe(duration.Seconds())
	m.messagesReceived.WithLabelValues(queue).Add(float64(count))
}

// UpdateDepth updates the buffered-message gauge for a queue
func (m *QueueMetrics) UpdateDepth(queue string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// RecordFanoutDelivery increments the listener delivery counter
func (m *QueueMetrics) RecordFanoutDelivery(queue string) {
	if m == nil {
		return
	}
	m.fanoutDeliveries.WithLabelValues(queue).Inc()
}

// RecordListenerFailure increments the listener failure counter
func (m *QueueMetrics) RecordListenerFailure(queue string) {
	if m == nil {
		return
	}
	m.listenerFailures.WithLabelValues(queue).Inc()
}

// UpdateActiveListeners updates the registered listener gauge for a queue
func (m *QueueMetrics) UpdateActiveListeners(queue string, count int) {
	if m == nil {
		return
	}
	m.activeListeners.WithLabelValues(queue).Set(float64(count))
}

// RecordTraceContinuation counts a trace stamping decision by origin
func (m *QueueMetrics) RecordTraceContinuation(queue, origin string) {
	if m == nil {
		return
	}
	m.traceContinuations.WithLabelValues(queue, origin).Inc()
}
