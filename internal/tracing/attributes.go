package tracing

// Span attribute keys following OpenTelemetry semantic conventions
const (
	// Queue attributes
	AttrQueueName     = "queuedemo.queue.name"
	AttrMessageID     = "queuedemo.message.id"
	AttrMessageCount  = "queuedemo.message.count"
	AttrListenerCount = "queuedemo.listener.count"
	AttrMaxMessages   = "queuedemo.max_messages"
	AttrTraceOrigin   = "queuedemo.trace.origin"

	// Worker attributes
	AttrWorkerName   = "queuedemo.worker.name"
	AttrForwardQueue = "queuedemo.forward.queue"
	AttrModel        = "queuedemo.model"

	// Task attributes carried over from the message payload
	AttrTaskType    = "task.type"
	AttrProcessedBy = "processed.by"

	// Operation attributes
	AttrOperation = "queuedemo.operation"
	AttrStatus    = "queuedemo.status"
	AttrError     = "queuedemo.error"

	// HTTP attributes (OpenTelemetry semantic conventions)
	AttrHTTPMethod     = "http.method"
	AttrHTTPRoute      = "http.route"
	AttrHTTPStatusCode = "http.status_code"
	AttrHTTPUserAgent  = "http.user_agent"
)
