package metrics

// Metric name constants following Prometheus naming conventions
// Format: queuedemo_{component}_{metric}_{unit}

// Queue metrics
const (
	MetricQueueDepth             = "queuedemo_queue_depth"
	MetricQueueMessagesSent      = "queuedemo_queue_messages_sent_total"
	MetricQueueMessagesReceived  = "queuedemo_queue_messages_received_total"
	MetricQueueFanoutDeliveries  = "queuedemo_queue_fanout_deliveries_total"
	MetricQueueListenerFailures  = "queuedemo_queue_listener_failures_total"
	MetricQueueSendDuration      = "queuedemo_queue_send_duration_seconds"
	MetricQueueReceiveDuration   = "queuedemo_queue_receive_duration_seconds"
	MetricQueueActiveListeners   = "queuedemo_queue_active_listeners"
	MetricQueueTraceContinuation = "queuedemo_queue_trace_continuations_total"
)

// Worker metrics
const (
	MetricWorkerPolls           = "queuedemo_worker_polls_total"
	MetricWorkerEmptyPolls      = "queuedemo_worker_empty_polls_total"
	MetricWorkerTransportErrors = "queuedemo_worker_transport_errors_total"
	MetricWorkerProcessed       = "queuedemo_worker_processed_total"
	MetricWorkerProcessDuration = "queuedemo_worker_process_duration_seconds"
	MetricWorkerForwards        = "queuedemo_worker_forwards_total"
)

// Task boundary metrics
const (
	MetricTaskSubmissions = "queuedemo_task_submissions_total"
	MetricTaskDecisions   = "queuedemo_task_decisions_total"
)

// API metrics
const (
	MetricAPIRequestsTotal   = "queuedemo_api_requests_total"
	MetricAPIRequestDuration = "queuedemo_api_request_duration_seconds"
)

// Label name constants
const (
	LabelQueue     = "queue"
	LabelWorker    = "worker"
	LabelOutcome   = "outcome"
	LabelStatus    = "status"
	LabelDecision  = "decision"
	LabelMethod    = "method"
	LabelEndpoint  = "endpoint"
	LabelComponent = "component"
	LabelOrigin    = "origin"
)

// Outcome label values for processed messages
const (
	OutcomeSuccess      = "success"
	OutcomeFailure      = "failure"
	OutcomeMissingTrace = "missing_trace"
)

// Status label values for task submissions and forwards
const (
	StatusAccepted = "accepted"
	StatusBlocked  = "blocked"
	StatusError    = "error"
)

// Origin label values for trace continuations
const (
	OriginBody   = "body"
	OriginHeader = "header"
	OriginFresh  = "fresh"
)
