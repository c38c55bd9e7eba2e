// Package validation provides the per-section validators, their rule tables and
// safeguards against prompt injection in external content.
package validation

import (
	"fmt"

	"github.com/jonathan/section-tailor/internal/types"
)

// Error represents a general validation error
type Error struct {
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// RuleError represents an invalid rule table (bad bounds, bad pattern, unknown kind)
type RuleError struct {
	Kind    types.SectionKind
	Message string
	Cause   error
}

func (e *RuleError) Error() string {
	prefix := "rule error"
	if e.Kind != "" {
		prefix = fmt.Sprintf("rule error (%s)", e.Kind)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *RuleError) Unwrap() error {
	return e.Cause
}
