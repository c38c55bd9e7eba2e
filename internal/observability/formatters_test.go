package observability

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/section-tailor/internal/types"
)

func TestPrintJobDescription(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	minYears, maxYears := 5, 7
	jd := &types.JobDescription{
		Text:     "We need Go and Kubernetes",
		Keywords: []types.Keyword{{Term: "go", Weight: 4}, {Term: "kubernetes", Weight: 2}},
		Metadata: &types.JobMetadata{
			CompanyNames:       []string{"Acme"},
			RoleLevel:          types.RoleSenior,
			ExperienceYearsMin: &minYears,
			ExperienceYearsMax: &maxYears,
		},
	}
	p.PrintJobDescription(jd)
	output := buf.String()

	assert.Contains(t, output, "JOB DESCRIPTION")
	assert.Contains(t, output, "kubernetes")
	assert.Contains(t, output, "Acme")
	assert.Contains(t, output, "Senior")
	assert.Contains(t, output, "6+")
}

func TestPrintJobDescription_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintJobDescription(nil)
	assert.Empty(t, buf.String())
}

func TestPrintJobDescription_ManyKeywords(t *testing.T) {
	var buf bytes.Buffer
	jd := &types.JobDescription{}
	for i := 0; i < maxItemsToShow+3; i++ {
		jd.Keywords = append(jd.Keywords, types.Keyword{Term: strings.Repeat("k", i+2), Weight: 1})
	}
	NewPrinter(&buf).PrintJobDescription(jd)
	assert.Contains(t, buf.String(), "... and 3 more")
}

func TestPrintValidation(t *testing.T) {
	tests := []struct {
		name   string
		result *types.ValidationResult
		want   []string
	}{
		{
			name:   "passed",
			result: &types.ValidationResult{Passed: true, Score: 95, KeywordsMatched: []string{"go"}, Warnings: []string{"Bullet 2: lacks measurable impact"}},
			want:   []string{"SUMMARY VALIDATION", "PASSED", "95/100", "go", "⚠ Bullet 2"},
		},
		{
			name:   "failed",
			result: &types.ValidationResult{Passed: false, Score: 70, Errors: []string{"Expected exactly 4 bullets, found 3"}},
			want:   []string{"FAILED", "70/100", "✗ Expected exactly 4 bullets"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewPrinter(&buf).PrintValidation(types.KindSummary, tt.result)
			for _, w := range tt.want {
				assert.Contains(t, buf.String(), w)
			}
		})
	}
}

func TestPrintOutcome(t *testing.T) {
	var buf bytes.Buffer
	final := types.GenerationAttempt{
		Attempt:    2,
		Section:    &types.Section{Kind: types.KindExperience, Bullets: []types.Bullet{types.NewBullet("Built a Go service")}},
		Validation: types.ValidationResult{Passed: true, Score: 90},
	}
	outcome := &types.Outcome{
		SessionID: "abc-123",
		Kind:      types.KindExperience,
		Final:     final,
		Attempts: []types.GenerationAttempt{
			{Attempt: 1, Validation: types.ValidationResult{Score: 60, Errors: []string{"x", "y"}}},
			final,
		},
	}

	NewPrinter(&buf).PrintOutcome(outcome)
	output := buf.String()

	assert.Contains(t, output, "EXPERIENCE TAILORING")
	assert.NotContains(t, output, "NOT ACCEPTED")
	assert.Contains(t, output, "Attempt 1: ✗ score 60, 2 errors")
	assert.Contains(t, output, "Attempt 2: ✓ score 90, 0 errors")
	assert.Contains(t, output, "• Built a Go service")
}

func TestPrintRunSummary(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRunSummary("run-1", []SectionRow{
		{Kind: types.KindSummary, Status: "accepted", Score: 90, Attempts: 1},
		{Kind: types.KindSkills, Status: "parse_error", Error: "missing list start"},
	}, []string{"out/tailored.tex"})
	output := buf.String()

	assert.Contains(t, output, "run-1")
	assert.Contains(t, output, "parse_error")
	assert.Contains(t, output, "missing list start")
	assert.Contains(t, output, "out/tailored.tex")
}

func TestPrintBox_LongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.printBox("TITLE", strings.Repeat("é", boxWidth*2))

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Equal(t, boxWidth, utf8.RuneCountInString(line), line)
	}
	assert.Contains(t, buf.String(), "...")
}
