package tailoring

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jonathan/section-tailor/internal/prompts"
	"github.com/jonathan/section-tailor/internal/types"
	"github.com/jonathan/section-tailor/internal/validation"
)

// buildPrompt composes the first-attempt prompt for one section
func buildPrompt(logger *slog.Logger, kind types.SectionKind, oldMarkup string, jd *types.JobDescription, rs validation.RuleSet) (string, error) {
	data := map[string]string{
		"Rules":              describeRules(rs),
		"Keywords":           strings.Join(jd.TopTerms(rs.TopKeywords), ", "),
		"OldSection":         validation.GuardExternalContent(logger, "old_section", "current section", oldMarkup),
		"JobDescription":     validation.GuardExternalContent(logger, "job_description", "job description", jd.Text),
		"CompanyNames":       "Not analyzed",
		"RoleLevel":          types.RoleMid,
		"ExperienceRange":    "5+",
		"LeadershipGuidance": "Use contributor language by default.",
	}
	if meta := jd.Metadata; meta != nil {
		data["CompanyNames"] = meta.CompanyNamesString()
		if meta.RoleLevel != "" {
			data["RoleLevel"] = meta.RoleLevel
		}
		data["ExperienceRange"] = meta.SuggestedExperienceYears()
		data["LeadershipGuidance"] = meta.LeadershipGuidance()
	}

	prompt, err := prompts.Render(prompts.TailoringFile, string(kind), data)
	if err != nil {
		return "", &Error{Message: fmt.Sprintf("no prompt for section kind %s", kind), Cause: err}
	}
	return prompt, nil
}

// buildRetryPrompt wraps the first prompt with the previous output and its errors, verbatim
func buildRetryPrompt(base, previousOutput string, errs []string) (string, error) {
	var sb strings.Builder
	for _, e := range errs {
		sb.WriteString("- ")
		sb.WriteString(e)
		sb.WriteString("\n")
	}
	return prompts.Render(prompts.TailoringFile, "retry", map[string]string{
		"BasePrompt":     base,
		"PreviousOutput": previousOutput,
		"Errors":         strings.TrimRight(sb.String(), "\n"),
	})
}

// describeRules turns a rule table into the bullet list shown to the model
func describeRules(rs validation.RuleSet) string {
	var lines []string
	switch {
	case rs.MinBullets > 0 && rs.MinBullets == rs.MaxBullets:
		lines = append(lines, fmt.Sprintf("Exactly %d bullets.", rs.MinBullets))
	case rs.MinBullets > 0 && rs.MaxBullets > 0:
		lines = append(lines, fmt.Sprintf("Between %d and %d bullets.", rs.MinBullets, rs.MaxBullets))
	case rs.MinBullets > 0:
		lines = append(lines, fmt.Sprintf("At least %d bullets.", rs.MinBullets))
	}
	if rs.MaxChars > 0 {
		lines = append(lines, fmt.Sprintf("Every bullet is %d-%d characters long, counting escaped LaTeX exactly as written.", rs.MinChars, rs.MaxChars))
	}
	if rs.MaxWords > 0 {
		lines = append(lines, fmt.Sprintf("Every bullet has at most %d words.", rs.MaxWords))
	}
	if rs.ForbidTrailingPeriod {
		lines = append(lines, "No bullet ends with a period.")
	}
	if rs.RequireImpact {
		lines = append(lines, "Every bullet contains a number, % or $.")
	}
	if rs.RequireCategoryLabel {
		lines = append(lines, "Every line starts with a bold \"Category:\" label.")
	}
	if rs.MinKeywords > 0 {
		lines = append(lines, fmt.Sprintf("Use at least %d of the top %d keywords.", rs.MinKeywords, rs.TopKeywords))
	}
	if rs.MinKeywordBullets > 1 {
		lines = append(lines, fmt.Sprintf("Spread keywords across at least %d bullets.", rs.MinKeywordBullets))
	}
	if len(rs.ForbiddenPhrases) > 0 {
		lines = append(lines, "Never use: "+strings.Join(rs.ForbiddenPhrases, ", ")+".")
	}
	for i := range lines {
		lines[i] = "- " + lines[i]
	}
	return strings.Join(lines, "\n")
}
