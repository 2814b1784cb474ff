package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findMetric(t *testing.T, collector *Collector, name string) bool {
	t.Helper()
	metricFamilies, err := collector.GetRegistry().Gather()
	require.NoError(t, err)
	for _, mf := range metricFamilies {
		if mf.GetName() == name {
			return len(mf.GetMetric()) > 0
		}
	}
	return false
}

func TestNewQueueMetrics(t *testing.T) {
	collector := NewCollector()
	metrics := NewQueueMetrics(collector)
	require.NotNil(t, metrics)
}

func TestQueueMetrics_RecordSend(t *testing.T) {
	collector := NewCollector()
	metrics := NewQueueMetrics(collector)

	metrics.RecordSend("task-queue", 100*time.Millisecond)

	assert.True(t, findMetric(t, collector, MetricQueueMessagesSent), "sent counter should be found")
	assert.True(t, findMetric(t, collector, MetricQueueSendDuration), "send duration metric should be found")
}

func TestQueueMetrics_RecordReceive(t *testing.T) {
	collector := NewCollector()
	metrics := NewQueueMetrics(collector)

	metrics.RecordReceive("task-queue", 2, 50*time.Millisecond)

	assert.True(t, findMetric(t, collector, MetricQueueMessagesReceived), "received counter should be found")
	assert.True(t, findMetric(t, collector, MetricQueueReceiveDuration), "receive duration metric should be found")

	// Counter advances by the number of messages handed out
	metricFamilies, err := collector.GetRegistry().Gather()
	require.NoError(t, err)
	for _, mf := range metricFamilies {
		if mf.GetName() == MetricQueueMessagesReceived {
			for _, m := range mf.GetMetric() {
				assert.Equal(t, float64(2), m.GetCounter().GetValue())
			}
		}
	}
}

func TestQueueMetrics_UpdateDepth(t *testing.T) {
	collector := NewCollector()
	metrics := NewQueueMetrics(collector)

	metrics.UpdateDepth("task-queue", 7)

	metricFamilies, err := collector.GetRegistry().Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() == MetricQueueDepth {
			found = true
			require.Len(t, mf.GetMetric(), 1)
			assert.Equal(t, float64(7), mf.GetMetric()[0].GetGauge().GetValue())
		}
	}
	assert.True(t, found, "queue depth gauge should be found")
}

func TestQueueMetrics_FanoutCounters(t *testing.T) {
	collector := NewCollector()
	metrics := NewQueueMetrics(collector)

	metrics.RecordFanoutDelivery("task-queue")
	metrics.RecordFanoutDelivery("task-queue")
	metrics.RecordListenerFailure("task-queue")
	metrics.UpdateActiveListeners("task-queue", 3)

	assert.True(t, findMetric(t, collector, MetricQueueFanoutDeliveries), "fanout counter should be found")
	assert.True(t, findMetric(t, collector, MetricQueueListenerFailures), "listener failure counter should be found")
	assert.True(t, findMetric(t, collector, MetricQueueActiveListeners), "active listener gauge should be found")
}

func TestQueueMetrics_RecordTraceContinuation(t *testing.T) {
	collector := NewCollector()
	metrics := NewQueueMetrics(collector)

	metrics.RecordTraceContinuation("task-queue", OriginBody)
	metrics.RecordTraceContinuation("task-queue", OriginHeader)
	metrics.RecordTraceContinuation("task-queue", OriginFresh)

	assert.True(t, findMetric(t, collector, MetricQueueTraceContinuation), "trace continuation counter should be found")
}

func TestQueueMetrics_NilSafety(t *testing.T) {
	var metrics *QueueMetrics

	// Should not panic
	metrics.RecordSend("queue", time.Second)
	metrics.RecordReceive("queue", 1, time.Second)
	metrics.UpdateDepth("queue", 1)
	metrics.RecordFanoutDelivery("queue")
	metrics.RecordListenerFailure("queue")
	metrics.UpdateActiveListeners("queue", 1)
	metrics.RecordTraceContinuation("queue", OriginFresh)
}
