package queue

import "fmt"

// InvalidQueueNameError indicates a queue name that cannot identify a queue.
type InvalidQueueNameError struct {
	Name   string
	Reason string
}

func (e InvalidQueueNameError) Error() string {
	return fmt.Sprintf("invalid queue name %q: %s", e.Name, e.Reason)
}

// InvalidMessageError indicates a message body that could not be decoded.
type InvalidMessageError struct {
	Field string
	Err   error
}

func (e InvalidMessageError) Error() string {
	return fmt.Sprintf("invalid message field %q: %v", e.Field, e.Err)
}

func (e InvalidMessageError) Unwrap() error {
	return e.Err
}
