package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/serglom21/distributed-queue-instrumentation/internal/api/validation"
	"github.com/serglom21/distributed-queue-instrumentation/internal/broker"
	"github.com/serglom21/distributed-queue-instrumentation/internal/logger"
	"github.com/serglom21/distributed-queue-instrumentation/internal/queue"
	"github.com/serglom21/distributed-queue-instrumentation/internal/tracectx"
)

// QueueHandlers provides HTTP handlers for the queue delivery boundary
type QueueHandlers struct {
	broker *broker.Broker
	log    zerolog.Logger
}

// NewQueueHandlers creates new queue handlers
func NewQueueHandlers(b *broker.Broker) *QueueHandlers {
	return &QueueHandlers{
		broker: b,
		log:    logger.WithComponent("http.queues"),
	}
}

// SendRequest represents a request to send a message to a queue. The message
// object is the producer's payload plus, optionally, an embedded sentryTrace
// and baggage pair.
type SendRequest struct {
	QueueName string         `json:"queueName"`
	Message   *queue.Message `json:"message"`
}

// SendResponse represents a response to sending a message
type SendResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
}

// ReceiveRequest represents a request to pull messages from a queue
type ReceiveRequest struct {
	QueueName   string `json:"queueName"`
	MaxMessages int    `json:"maxMessages,omitempty"`
}

// ReceiveResponse represents a response to pulling messages
type ReceiveResponse struct {
	Messages []*queue.Message `json:"messages"`
}

// TraceData is the caller's active propagation context as echoed by the
// status endpoint.
type TraceData struct {
	TraceID      string `json:"traceId"`
	SpanID       string `json:"spanId"`
	ParentSpanID string `json:"parentSpanId,omitempty"`
	Sampled      bool   `json:"sampled"`
	Baggage      string `json:"baggage,omitempty"`
}

// StatusResponse snapshots the delivery boundary: the caller's trace context
// plus a redacted view of every queue.
type StatusResponse struct {
	TraceData  *TraceData                    `json:"traceData"`
	ActiveSpan string                        `json:"activeSpan,omitempty"`
	Queues     map[string]broker.QueueStatus `json:"queues"`
}

// ErrorResponse is the JSON error body shared by all handlers
type ErrorResponse struct {
	Error string `json:"error"`
}

// Send handles POST /queue/send
func (h *QueueHandlers) Send(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := validation.ValidateQueueName(req.QueueName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.broker.Send(r.Context(), req.QueueName, req.Message)
	if err != nil {
		h.log.Error().Err(err).Str("queue", req.QueueName).Msg("Send failed")
		h.writeBrokerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SendResponse{
		Success:   true,
		MessageID: msg.MessageID,
	})
}

// Receive handles POST /queue/receive
func (h *QueueHandlers) Receive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ReceiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := validation.ValidateQueueName(req.QueueName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.MaxMessages == 0 {
		req.MaxMessages = 1
	}
	if err := validation.ValidateMaxMessages(req.MaxMessages); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msgs := h.broker.ReceiveUpTo(r.Context(), req.QueueName, req.MaxMessages)
	if msgs == nil {
		msgs = []*queue.Message{}
	}

	writeJSON(w, http.StatusOK, ReceiveResponse{Messages: msgs})
}

// Status handles GET /queue/status. It is a pure read: buffered messages
// stay buffered and trace ids come back truncated.
func (h *QueueHandlers) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	resp := StatusResponse{
		Queues: h.broker.Status(),
	}

	if tc, ok := tracectx.FromContext(r.Context()); ok {
		resp.TraceData = &TraceData{
			TraceID: tc.TraceID.String(),
			SpanID:  tc.SpanID.String(),
			Sampled: tc.Sampled,
			Baggage: tc.Baggage,
		}
		if !tc.ParentSpanID.IsZero() {
			resp.TraceData.ParentSpanID = tc.ParentSpanID.String()
		}
		resp.ActiveSpan = tc.SpanID.String()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *QueueHandlers) writeBrokerError(w http.ResponseWriter, err error) {
	switch err.(type) {
	case queue.InvalidQueueNameError:
		writeError(w, http.StatusBadRequest, err.Error())
	case queue.InvalidMessageError:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Status code is already committed, nothing left to report to the
		// client.
		return
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
