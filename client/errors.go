package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// Error is returned for failed requests. StatusCode is zero when the request
// never produced a response (transport failure).
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("queue client: %s (status %d)", e.Message, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("queue client: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("queue client: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsBadRequest reports whether err is a 400 from the service, which the
// boundary returns for validation failures.
func IsBadRequest(err error) bool {
	return hasStatus(err, http.StatusBadRequest)
}

// IsServerError reports whether err is a 5xx from the service.
func IsServerError(err error) bool {
	var ce *Error
	if !asClientError(err, &ce) {
		return false
	}
	return ce.StatusCode >= 500 && ce.StatusCode < 600
}

func hasStatus(err error, status int) bool {
	var ce *Error
	if !asClientError(err, &ce) {
		return false
	}
	return ce.StatusCode == status
}

func asClientError(err error, target **Error) bool {
	for err != nil {
		if ce, ok := err.(*Error); ok {
			*target = ce
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func wrapError(err error, operation string) error {
	return &Error{
		Message: operation + " failed",
		Err:     err,
	}
}

// newStatusError turns a non-2xx response into an Error, lifting the
// boundary's {"error": "..."} body into the message when present.
func newStatusError(operation string, resp *resty.Response) error {
	message := operation + " failed"
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		message = body.Error
	}
	return &Error{
		StatusCode: resp.StatusCode(),
		Message:    message,
	}
}
