package task

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/serglom21/distributed-queue-instrumentation/internal/logger"
)

const maxSubmitBody = 1 << 20

// SubmitResponse is the boundary's answer to a submission. Every non-2xx
// answer carries Reason so the submitter can tell a schema failure from a
// policy rejection.
type SubmitResponse struct {
	Accepted bool   `json:"accepted"`
	TaskID   string `json:"taskId,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Handler serves the task-submission boundary.
type Handler struct {
	predicate AdmissionPredicate
	log       zerolog.Logger
}

// NewHandler creates a handler consulting the given admission predicate.
// A nil predicate admits everything.
func NewHandler(predicate AdmissionPredicate) *Handler {
	if predicate == nil {
		predicate = AdmitAll
	}
	return &Handler{
		predicate: predicate,
		log:       logger.WithComponent("task.handler"),
	}
}

// Submit handles POST /task/submit: schema validation first, then the
// admission predicate. 200 accepts with a fresh task id, 403 rejects with
// the predicate's reason.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeSubmitResponse(w, http.StatusMethodNotAllowed, SubmitResponse{Reason: "method not allowed"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSubmitBody))
	if err != nil {
		writeSubmitResponse(w, http.StatusBadRequest, SubmitResponse{Reason: "unreadable request body"})
		return
	}

	if err := ValidateSubmission(body); err != nil {
		h.log.Warn().Err(err).Msg("Submission failed schema validation")
		writeSubmitResponse(w, http.StatusBadRequest, SubmitResponse{Reason: err.Error()})
		return
	}

	// Schema validation already proved the shape.
	var t Task
	if err := json.Unmarshal(body, &t); err != nil {
		writeSubmitResponse(w, http.StatusBadRequest, SubmitResponse{Reason: "invalid request body"})
		return
	}

	if err := h.predicate(r.Context(), t); err != nil {
		h.log.Info().
			Str("task_type", t.TaskType).
			Str("user_id", t.UserID).
			Str("reason", err.Error()).
			Msg("Task blocked")
		writeSubmitResponse(w, http.StatusForbidden, SubmitResponse{Reason: err.Error()})
		return
	}

	taskID := uuid.New().String()
	h.log.Info().
		Str("task_type", t.TaskType).
		Str("user_id", t.UserID).
		Str("task_id", taskID).
		Msg("Task accepted")
	writeSubmitResponse(w, http.StatusOK, SubmitResponse{Accepted: true, TaskID: taskID})
}

func writeSubmitResponse(w http.ResponseWriter, status int, resp SubmitResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
