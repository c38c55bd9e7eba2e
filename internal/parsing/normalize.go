package parsing

import (
	"strings"

	"github.com/jonathan/section-tailor/internal/types"
)

// roleLevelAliases maps free-form seniority labels onto the five role levels.
// Checked in order; the first matching fragment wins.
var roleLevelAliases = []struct {
	fragment string
	level    string
}{
	{"junior", types.RoleJunior},
	{"entry", types.RoleJunior},
	{"senior", types.RoleSenior},
	{"sr", types.RoleSenior},
	{"iii", types.RoleSenior},
	{"staff", types.RoleStaff},
	{"principal", types.RoleStaff},
	{"iv", types.RoleStaff},
	{"lead", types.RoleLead},
	{"manager", types.RoleLead},
}

// NormalizeRoleLevel maps a role label to Junior, Mid, Senior, Staff or Lead.
// Unclear labels (including "II") are Mid.
func NormalizeRoleLevel(level string) string {
	trimmed := strings.TrimSpace(level)
	switch trimmed {
	case types.RoleJunior, types.RoleMid, types.RoleSenior, types.RoleStaff, types.RoleLead:
		return trimmed
	}
	lower := strings.ToLower(trimmed)
	if lower == "i" {
		return types.RoleJunior
	}
	for _, alias := range roleLevelAliases {
		if strings.Contains(lower, alias.fragment) {
			return alias.level
		}
	}
	return types.RoleMid
}

// normalizeMetadata cleans model output in place
func normalizeMetadata(meta *types.JobMetadata) {
	meta.RoleLevel = NormalizeRoleLevel(meta.RoleLevel)
	meta.CompanyNames = dedupeNonEmpty(meta.CompanyNames)
	meta.KeyResponsibilities = dedupeNonEmpty(meta.KeyResponsibilities)
	if len(meta.KeyResponsibilities) > 5 {
		meta.KeyResponsibilities = meta.KeyResponsibilities[:5]
	}
	if meta.ExperienceYearsMin != nil && meta.ExperienceYearsMax != nil && *meta.ExperienceYearsMin > *meta.ExperienceYearsMax {
		meta.ExperienceYearsMin, meta.ExperienceYearsMax = meta.ExperienceYearsMax, meta.ExperienceYearsMin
	}
}

// dedupeNonEmpty trims values and drops blanks and case-insensitive repeats, keeping order
func dedupeNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
