// Package compiling provides the document compilation capability (pdflatex) and PDF page counting.
package compiling

import "fmt"

// CompilationError represents a LaTeX compilation failure. LogOutput carries the
// compiler transcript so callers can display it.
type CompilationError struct {
	Message   string
	LogOutput string
	Cause     error
}

func (e *CompilationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("LaTeX compilation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("LaTeX compilation error: %s", e.Message)
}

func (e *CompilationError) Unwrap() error {
	return e.Cause
}
