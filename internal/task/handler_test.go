package task

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postSubmit(t *testing.T, h *Handler, body string) (*httptest.ResponseRecorder, SubmitResponse) {
	t.Helper()

	req := httptest.NewRequest("POST", "/task/submit", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Submit(w, req)

	var resp SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestHandler_Submit(t *testing.T) {
	t.Run("accepts a valid task", func(t *testing.T) {
		h := NewHandler(AdmitAll)

		w, resp := postSubmit(t, h, `{"taskType":"demo","userId":"user-123"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Accepted)
		assert.NotEmpty(t, resp.TaskID)
		assert.Empty(t, resp.Reason)
	})

	t.Run("nil predicate admits everything", func(t *testing.T) {
		h := NewHandler(nil)

		w, resp := postSubmit(t, h, `{"taskType":"demo","userId":"user-123"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Accepted)
	})

	t.Run("blocked task returns 403 with the reason", func(t *testing.T) {
		h := NewHandler(func(ctx context.Context, task Task) error {
			return errors.New("demo rejection policy")
		})

		w, resp := postSubmit(t, h, `{"taskType":"demo","userId":"user-123"}`)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.False(t, resp.Accepted)
		assert.Equal(t, "demo rejection policy", resp.Reason)
		assert.Empty(t, resp.TaskID)
	})

	t.Run("predicate sees the decoded task", func(t *testing.T) {
		var got Task
		h := NewHandler(func(ctx context.Context, task Task) error {
			got = task
			return nil
		})

		postSubmit(t, h, `{"taskType":"image-resize","userId":"user-42"}`)

		assert.Equal(t, "image-resize", got.TaskType)
		assert.Equal(t, "user-42", got.UserID)
	})

	t.Run("rejects missing required fields", func(t *testing.T) {
		h := NewHandler(AdmitAll)

		w, resp := postSubmit(t, h, `{"taskType":"demo"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.False(t, resp.Accepted)
		assert.Contains(t, resp.Reason, "validation failed")
	})

	t.Run("rejects wrong field types", func(t *testing.T) {
		h := NewHandler(AdmitAll)

		w, _ := postSubmit(t, h, `{"taskType":123,"userId":"user-123"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects empty strings", func(t *testing.T) {
		h := NewHandler(AdmitAll)

		w, _ := postSubmit(t, h, `{"taskType":"","userId":"user-123"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		h := NewHandler(AdmitAll)

		w, resp := postSubmit(t, h, `{not json}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, resp.Reason, "not valid JSON")
	})

	t.Run("tolerates extra keys", func(t *testing.T) {
		h := NewHandler(AdmitAll)

		w, resp := postSubmit(t, h, `{"taskType":"demo","userId":"user-123","priority":"high"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, resp.Accepted)
	})

	t.Run("rejects non-POST methods", func(t *testing.T) {
		h := NewHandler(AdmitAll)

		req := httptest.NewRequest("GET", "/task/submit", nil)
		w := httptest.NewRecorder()
		h.Submit(w, req)

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestValidateSubmission(t *testing.T) {
	assert.NoError(t, ValidateSubmission([]byte(`{"taskType":"demo","userId":"u"}`)))
	assert.Error(t, ValidateSubmission([]byte(`{"userId":"u"}`)))
	assert.Error(t, ValidateSubmission([]byte(`"not an object"`)))
}
