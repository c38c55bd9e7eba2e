// Package types provides type definitions for structured data used throughout the section-tailor system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// GenerationAttempt records one generation plus its validation verdict
type GenerationAttempt struct {
	Attempt    int              `json:"attempt"`
	Prompt     string           `json:"prompt,omitempty"`
	RawOutput  string           `json:"raw_output"`
	Section    *Section         `json:"section"`
	Validation ValidationResult `json:"validation"`
}

// Outcome is the result of one tailoring session for one section
type Outcome struct {
	SessionID string              `json:"session_id"`
	Kind      SectionKind         `json:"kind"`
	Final     GenerationAttempt   `json:"final"`
	Attempts  []GenerationAttempt `json:"attempts"`
}

// Accepted reports whether the final attempt passed validation
func (o *Outcome) Accepted() bool {
	return o.Final.Validation.Passed
}
