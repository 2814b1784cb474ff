package tracectx

import "fmt"

// ParseError indicates a trace identifier or header that failed validation.
// It is never fatal: callers log a warning and behave as if the input were
// absent.
type ParseError struct {
	Field  string
	Value  string
	Reason string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
