// Package validation holds the request validation rules enforced at the HTTP
// boundary, kept free of transport concerns so handlers and tests share them.
package validation

import (
	"fmt"
	"strings"
)

// Boundary limits for queue requests.
const (
	// MaxQueueNameLength bounds queue names so a single request cannot mint
	// arbitrarily large map keys in the store.
	MaxQueueNameLength = 255

	// MaxReceiveBatch caps how many messages one receive call may drain.
	MaxReceiveBatch = 100
)

// ValidateQueueName validates a queue name supplied in a request body.
func ValidateQueueName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ValidationError{Field: "queueName", Reason: "cannot be empty"}
	}
	if len(name) > MaxQueueNameLength {
		return ValidationError{Field: "queueName", Reason: fmt.Sprintf("cannot exceed %d characters", MaxQueueNameLength)}
	}
	return nil
}

// ValidateMaxMessages validates the receive batch size after the handler has
// applied the default of one for an omitted field.
func ValidateMaxMessages(max int) error {
	if max < 1 {
		return ValidationError{Field: "maxMessages", Reason: "must be at least 1"}
	}
	if max > MaxReceiveBatch {
		return ValidationError{Field: "maxMessages", Reason: fmt.Sprintf("cannot exceed %d", MaxReceiveBatch)}
	}
	return nil
}
