package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonathan/section-tailor/internal/llm"
	"github.com/jonathan/section-tailor/internal/rendering"
	"github.com/jonathan/section-tailor/internal/schemas"
	"github.com/jonathan/section-tailor/internal/types"
)

// SectionStatus is the end state of one section in a run.
type SectionStatus string

const (
	// StatusAccepted means the final attempt passed validation
	StatusAccepted SectionStatus = "accepted"
	// StatusFailed means no attempt passed; the best one was still used
	StatusFailed SectionStatus = "failed"
	// StatusParseError means the old or generated markup was malformed; the original was kept
	StatusParseError SectionStatus = "parse_error"
	// StatusGenerationError means the generation capability failed; the original was kept
	StatusGenerationError SectionStatus = "generation_error"
)

// Report is the machine-readable record of one run, written as report.json.
type Report struct {
	RunID       string             `json:"run_id"`
	Source      string             `json:"source,omitempty"`
	GeneratedAt string             `json:"generated_at"`
	Strictness  string             `json:"strictness,omitempty"`
	Keywords    []string           `json:"keywords"`
	Metadata    *types.JobMetadata `json:"metadata,omitempty"`
	Sections    []SectionReport    `json:"sections"`
	Compilation *CompilationReport `json:"compilation,omitempty"`

	outcomes map[types.SectionKind]*types.Outcome
}

// SectionReport summarizes the tailoring of one section.
type SectionReport struct {
	Kind            types.SectionKind `json:"kind"`
	Status          SectionStatus     `json:"status"`
	SessionID       string            `json:"session_id,omitempty"`
	Attempt         int               `json:"attempt,omitempty"`
	Passed          bool              `json:"passed"`
	Score           int               `json:"score"`
	Errors          []string          `json:"errors"`
	Warnings        []string          `json:"warnings"`
	KeywordsMatched []string          `json:"keywords_matched"`
	KeywordCoverage float64           `json:"keyword_coverage"`
	Retryable       bool              `json:"retryable,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// CompilationReport records the optional compile and page-limit check.
type CompilationReport struct {
	OK       bool   `json:"ok"`
	Pages    int    `json:"pages,omitempty"`
	MaxPages int    `json:"max_pages,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Outcome returns the tailoring outcome of a section, if one was produced.
func (r *Report) Outcome(kind types.SectionKind) *types.Outcome {
	return r.outcomes[kind]
}

// Section returns the report entry for kind.
func (r *Report) Section(kind types.SectionKind) (SectionReport, bool) {
	for _, s := range r.Sections {
		if s.Kind == kind {
			return s, true
		}
	}
	return SectionReport{}, false
}

// MarshalValidated encodes the report and checks it against the embedded report schema.
func (r *Report) MarshalValidated() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := schemas.Validate(schemas.ReportSchema, data); err != nil {
		return nil, fmt.Errorf("report does not match schema: %w", err)
	}
	return data, nil
}

func sectionFromOutcome(outcome *types.Outcome) SectionReport {
	v := outcome.Final.Validation
	status := StatusAccepted
	if !outcome.Accepted() {
		status = StatusFailed
	}
	return SectionReport{
		Kind:            outcome.Kind,
		Status:          status,
		SessionID:       outcome.SessionID,
		Attempt:         outcome.Final.Attempt,
		Passed:          v.Passed,
		Score:           v.Score,
		Errors:          v.Errors,
		Warnings:        v.Warnings,
		KeywordsMatched: v.KeywordsMatched,
		KeywordCoverage: v.KeywordCoverage,
	}
}

func sectionFromError(kind types.SectionKind, err error) SectionReport {
	status := StatusFailed
	var parseErr *rendering.ParseError
	var genErr *llm.GenerationError
	retryable := false
	switch {
	case errors.As(err, &parseErr):
		status = StatusParseError
	case errors.As(err, &genErr):
		status = StatusGenerationError
		retryable = genErr.Retryable()
	}
	return SectionReport{Kind: kind, Status: status, Retryable: retryable, Error: err.Error()}
}
