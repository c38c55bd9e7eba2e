// Package rendering provides the LaTeX section model: escaping, section grammars,
// parsing sections into bullets and rendering them back.
package rendering

import (
	"fmt"

	"github.com/jonathan/section-tailor/internal/types"
)

// ParseError represents malformed or missing section structure. It is never retried:
// the source document has to be fixed.
type ParseError struct {
	Kind    types.SectionKind
	Marker  string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	msg := "parse error: " + e.Message
	if e.Kind != "" {
		msg = fmt.Sprintf("parse error (%s): %s", e.Kind, e.Message)
	}
	if e.Marker != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Marker)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// RenderError represents a general rendering failure
type RenderError struct {
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("render error: %s", e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
