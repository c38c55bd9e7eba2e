// Package types provides type definitions for structured data used throughout the section-tailor system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Severity levels for a Violation
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Violation represents a single rule failure found by a validator
type Violation struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Details  string `json:"details"`
	Penalty  int    `json:"penalty"`

	// BulletIndex is 1-based; nil for section-wide rules
	BulletIndex *int `json:"bullet_index,omitempty"`
	CharCount   *int `json:"char_count,omitempty"`
}

// ValidationResult is the verdict of one validation pass. Passed is true exactly when Errors is empty.
type ValidationResult struct {
	Passed          bool        `json:"passed"`
	Errors          []string    `json:"errors"`
	Warnings        []string    `json:"warnings"`
	Score           int         `json:"score"`
	KeywordsMatched []string    `json:"keywords_matched"`
	KeywordCoverage float64     `json:"keyword_coverage"` // fraction of the top keywords present
	Violations      []Violation `json:"violations"`
}

// ErrorViolations returns only the violations with error severity
func (r *ValidationResult) ErrorViolations() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityError {
			out = append(out, v)
		}
	}
	return out
}
