package tailoring

import "fmt"

// Error reports a misconfigured session or an illegal state change.
// Parse and generation failures are returned unchanged, never wrapped in Error.
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("tailoring error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("tailoring error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
