package task

import (
	"errors"
	"fmt"
)

// BlockedError reports that the boundary rejected the task as a business
// decision. Callers treat it differently from transport trouble: a blocked
// task is a final answer, not something to retry.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("task blocked: %s", e.Reason)
}

// SubmitError reports that a submission never reached a business decision:
// a transport failure, or an unexpected status from the boundary. StatusCode
// is zero when no response arrived.
type SubmitError struct {
	StatusCode int
	Err        error
}

func (e *SubmitError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("task submit failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("task submit failed: %v", e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// IsBlocked reports whether err is a business rejection from the boundary.
func IsBlocked(err error) bool {
	var be *BlockedError
	return errors.As(err, &be)
}
