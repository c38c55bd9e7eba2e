package validation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/section-tailor/internal/keywords"
	"github.com/jonathan/section-tailor/internal/types"
)

// checkForbiddenPhrases reports the first forbidden phrase found in each bullet
func checkForbiddenPhrases(c *collector, plain []string, phrases []string) {
	if len(phrases) == 0 {
		return
	}
	for i, text := range plain {
		for _, phrase := range phrases {
			if strings.TrimSpace(phrase) == "" {
				continue
			}
			if keywords.Contains(text, phrase) {
				c.errorf(RuleForbiddenPhrase, c.penalties.Other, i+1, "Bullet %d contains forbidden phrase: %s", i+1, phrase)
				break // one violation per bullet
			}
		}
	}
}

// LeadershipVerbs are flagged when the role does not call for leadership language
var LeadershipVerbs = []string{
	"led", "leading", "lead",
	"managed", "managing", "manage",
	"directed", "directing", "direct",
	"oversaw", "overseeing", "oversee",
	"supervised", "supervising", "supervise",
}

var yearsClaim = regexp.MustCompile(`(?i)(\d+)\+?\s*(?:yrs?|years?)\b`)

// checkSemantics applies the job-metadata rules: the target company must not appear as
// an employer, leadership verbs need a leadership role, and claimed years stay under the maximum
func checkSemantics(c *collector, plain []string, meta *types.JobMetadata) {
	for i, text := range plain {
		for _, company := range meta.CompanyNames {
			if strings.TrimSpace(company) == "" {
				continue
			}
			if keywords.Contains(text, company) {
				c.errorf(RuleCompanyName, c.penalties.Semantic, i+1,
					"Bullet %d: Company name '%s' found. Never mention the target company as if you work there", i+1, company)
			}
		}

		if !meta.LeadershipAllowed() {
			for _, verb := range LeadershipVerbs {
				if keywords.Contains(text, verb) {
					c.errorf(RuleLeadershipLanguage, c.penalties.Semantic, i+1,
						"Bullet %d: Leadership verb '%s' inappropriate for %s-level role. Use contributor language: collaborated, contributed, implemented, supported",
						i+1, verb, roleLabel(meta))
					break
				}
			}
		}

		if meta.ExperienceYearsMax != nil {
			if m := yearsClaim.FindStringSubmatch(text); m != nil {
				years, err := strconv.Atoi(m[1])
				if err == nil && years > *meta.ExperienceYearsMax {
					c.errorf(RuleExperienceYears, c.penalties.Semantic, i+1,
						"Bullet %d: Experience level '%d+ yrs' exceeds maximum %d for %s-level role",
						i+1, years, *meta.ExperienceYearsMax, roleLabel(meta))
				}
			}
		}
	}
}

func roleLabel(meta *types.JobMetadata) string {
	if meta.RoleLevel == "" {
		return "this"
	}
	return meta.RoleLevel
}
