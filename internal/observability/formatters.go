// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/section-tailor/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 8
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes, marking the cut with "..."
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(line, inner), inner))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// PrintJobDescription outputs the ranked keywords and any derived metadata.
func (p *Printer) PrintJobDescription(jd *types.JobDescription) {
	if jd == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Length:   %d chars\n", utf8.RuneCountInString(jd.Text)))

	if len(jd.Keywords) > 0 {
		sb.WriteString("\nKeywords:\n")
		count := min(len(jd.Keywords), maxItemsToShow)
		for i := 0; i < count; i++ {
			k := jd.Keywords[i]
			sb.WriteString(fmt.Sprintf("  %2d. %-30s %6.1f\n", i+1, truncate(k.Term, 30), k.Weight))
		}
		if len(jd.Keywords) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(jd.Keywords)-maxItemsToShow))
		}
	}

	if m := jd.Metadata; m != nil {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("Company:    %s\n", m.CompanyNamesString()))
		sb.WriteString(fmt.Sprintf("Level:      %s\n", m.RoleLevel))
		sb.WriteString(fmt.Sprintf("Experience: %s\n", m.SuggestedExperienceYears()))
		sb.WriteString(fmt.Sprintf("Leadership: %t\n", m.LeadershipRequired))
	}

	p.printBox("JOB DESCRIPTION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintValidation outputs the verdict of one validation pass.
func (p *Printer) PrintValidation(kind types.SectionKind, result *types.ValidationResult) {
	if result == nil {
		return
	}

	verdict := "✅ PASSED"
	if !result.Passed {
		verdict = "❌ FAILED"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s  score %d/100\n", verdict, result.Score))
	if len(result.KeywordsMatched) > 0 {
		sb.WriteString(fmt.Sprintf("Keywords: %s\n", strings.Join(result.KeywordsMatched, ", ")))
	}
	for _, e := range result.Errors {
		sb.WriteString(fmt.Sprintf("✗ %s\n", e))
	}
	for _, w := range result.Warnings {
		sb.WriteString(fmt.Sprintf("⚠ %s\n", w))
	}

	p.printBox(strings.ToUpper(string(kind))+" VALIDATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintOutcome outputs every attempt of a tailoring session and the chosen section.
func (p *Printer) PrintOutcome(outcome *types.Outcome) {
	if outcome == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Session:  %s\n", outcome.SessionID))
	for _, a := range outcome.Attempts {
		mark := "✗"
		if a.Validation.Passed {
			mark = "✓"
		}
		sb.WriteString(fmt.Sprintf("Attempt %d: %s score %d, %d errors\n", a.Attempt, mark, a.Validation.Score, len(a.Validation.Errors)))
	}
	sb.WriteString(fmt.Sprintf("\nFinal (attempt %d):\n", outcome.Final.Attempt))
	if outcome.Final.Section != nil {
		for _, b := range outcome.Final.Section.Bullets {
			sb.WriteString(fmt.Sprintf("• %s\n", b.Text))
		}
	}

	title := strings.ToUpper(string(outcome.Kind)) + " TAILORING"
	if !outcome.Accepted() {
		title += " (NOT ACCEPTED)"
	}
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// SectionRow is one line of a whole-document run summary.
type SectionRow struct {
	Kind     types.SectionKind
	Status   string
	Score    int
	Attempts int
	Error    string
}

// PrintRunSummary outputs a per-section table for a whole-document run.
func (p *Printer) PrintRunSummary(runID string, rows []SectionRow, outputs []string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run: %s\n\n", runID))
	sb.WriteString(fmt.Sprintf("%-12s %-18s %6s %9s\n", "SECTION", "STATUS", "SCORE", "ATTEMPTS"))
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%-12s %-18s %6d %9d\n", r.Kind, r.Status, r.Score, r.Attempts))
		if r.Error != "" {
			sb.WriteString(fmt.Sprintf("  %s\n", r.Error))
		}
	}
	if len(outputs) > 0 {
		sb.WriteString("\nWrote:\n")
		for _, o := range outputs {
			sb.WriteString(fmt.Sprintf("  %s\n", o))
		}
	}
	p.printBox("TAILORING RUN", strings.TrimSuffix(sb.String(), "\n"))
}
