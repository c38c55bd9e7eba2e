package parsing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/section-tailor/internal/types"
)

var companyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:at|join|for)\s+([A-Z][A-Za-z0-9]+)`),
	regexp.MustCompile(`\b([A-Z][A-Za-z0-9]+)\s+(?:is|are|seeks)\b`),
}

// Capitalized words the company patterns pick up that are never names
var notCompanyNames = map[string]bool{
	"We": true, "You": true, "The": true, "This": true, "Our": true, "It": true,
	"They": true, "There": true, "What": true, "Who": true, "If": true, "Experience": true,
}

var roleLevelPatterns = []struct {
	pattern *regexp.Regexp
	level   string
}{
	{regexp.MustCompile(`\b(?:engineer|level)\s+(?:ii|2)\b`), types.RoleMid},
	{regexp.MustCompile(`\b(?:engineer|level)\s+(?:iii|3)\b`), types.RoleSenior},
	{regexp.MustCompile(`\b(?:engineer|level)\s+(?:i|1)\b|\bjunior\b|\bentry[- ]level\b`), types.RoleJunior},
	{regexp.MustCompile(`\b(?:engineer|level)\s+(?:iv|4)\b|\bstaff\b|\bprincipal\b`), types.RoleStaff},
	{regexp.MustCompile(`\blead\b|\bmanager\b`), types.RoleLead},
	{regexp.MustCompile(`\bsenior\b|\bsr\.`), types.RoleSenior},
}

var yearsPattern = regexp.MustCompile(`\b(\d{1,2})\s*(?:(?:-|–|to)\s*(\d{1,2}))?\s*\+?\s*(?:years?|yrs?)\b`)

var leadershipPhrases = []string{
	"lead team", "lead a team", "manage team", "manage a team",
	"direct report", "people management", "people manager",
}

var responsibilityBullet = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+(.+)$`)

// HeuristicMetadata derives JobMetadata from text alone. It is the fallback
// when the model is unavailable or returns unusable JSON.
func HeuristicMetadata(text string) *types.JobMetadata {
	lower := strings.ToLower(text)
	meta := &types.JobMetadata{
		CompanyNames:        heuristicCompanies(text),
		RoleLevel:           types.RoleMid,
		KeyResponsibilities: heuristicResponsibilities(text),
	}

	for _, rl := range roleLevelPatterns {
		if rl.pattern.MatchString(lower) {
			meta.RoleLevel = rl.level
			break
		}
	}

	if m := yearsPattern.FindStringSubmatch(lower); m != nil {
		if lo, err := strconv.Atoi(m[1]); err == nil {
			meta.ExperienceYearsMin = &lo
		}
		if m[2] != "" {
			if hi, err := strconv.Atoi(m[2]); err == nil {
				meta.ExperienceYearsMax = &hi
			}
		}
	}

	for _, phrase := range leadershipPhrases {
		if strings.Contains(lower, phrase) {
			meta.LeadershipRequired = true
			break
		}
	}

	normalizeMetadata(meta)
	return meta
}

func heuristicCompanies(text string) []string {
	var names []string
	for _, pattern := range companyPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			if !notCompanyNames[m[1]] {
				names = append(names, m[1])
			}
		}
	}
	names = dedupeNonEmpty(names)
	if len(names) > 3 {
		names = names[:3]
	}
	return names
}

func heuristicResponsibilities(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if m := responsibilityBullet.FindStringSubmatch(line); m != nil {
			out = append(out, strings.TrimSpace(m[1]))
			if len(out) == 5 {
				break
			}
		}
	}
	return out
}
