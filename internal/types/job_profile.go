// Package types provides type definitions for structured data used throughout the section-tailor system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"strconv"
	"strings"
)

// Keyword is a ranked job-description term
type Keyword struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// JobDescription is the immutable input shared by every component of a tailoring session
type JobDescription struct {
	Text     string       `json:"text"`
	Keywords []Keyword    `json:"keywords"`
	Metadata *JobMetadata `json:"metadata,omitempty"`
}

// Terms returns the keyword terms in rank order
func (j *JobDescription) Terms() []string {
	terms := make([]string, len(j.Keywords))
	for i, k := range j.Keywords {
		terms[i] = k.Term
	}
	return terms
}

// TopTerms returns at most n keyword terms in rank order
func (j *JobDescription) TopTerms(n int) []string {
	terms := j.Terms()
	if n > 0 && n < len(terms) {
		return terms[:n]
	}
	return terms
}

// Role levels recognized in JobMetadata
const (
	RoleJunior = "Junior"
	RoleMid    = "Mid"
	RoleSenior = "Senior"
	RoleStaff  = "Staff"
	RoleLead   = "Lead"
)

// JobMetadata is structured information derived from a job description
type JobMetadata struct {
	CompanyNames        []string `json:"company_names"`
	RoleLevel           string   `json:"role_level" validate:"oneof=Junior Mid Senior Staff Lead"`
	ExperienceYearsMin  *int     `json:"experience_years_min,omitempty" validate:"omitempty,gte=0,lte=50"`
	ExperienceYearsMax  *int     `json:"experience_years_max,omitempty" validate:"omitempty,gte=0,lte=50"`
	KeyResponsibilities []string `json:"key_responsibilities"`
	LeadershipRequired  bool     `json:"leadership_required"`
}

// LeadershipAllowed reports whether leadership language fits the role
func (m *JobMetadata) LeadershipAllowed() bool {
	return m.LeadershipRequired || m.RoleLevel == RoleStaff || m.RoleLevel == RoleLead
}

// SuggestedExperienceYears returns the "N+" figure the summary should claim
func (m *JobMetadata) SuggestedExperienceYears() string {
	switch {
	case m.ExperienceYearsMin != nil && m.ExperienceYearsMax != nil:
		return strconv.Itoa((*m.ExperienceYearsMin+*m.ExperienceYearsMax)/2) + "+"
	case m.ExperienceYearsMin != nil:
		return strconv.Itoa(*m.ExperienceYearsMin) + "+"
	}
	defaults := map[string]string{
		RoleJunior: "2+",
		RoleMid:    "4+",
		RoleSenior: "7+",
		RoleStaff:  "10+",
		RoleLead:   "12+",
	}
	if years, ok := defaults[m.RoleLevel]; ok {
		return years
	}
	return "5+"
}

// LeadershipGuidance returns the prompt guidance for leadership wording
func (m *JobMetadata) LeadershipGuidance() string {
	switch {
	case m.LeadershipAllowed():
		return "Leadership language encouraged (led, managed, directed)"
	case m.RoleLevel == RoleSenior:
		return "Moderate leadership language acceptable (led small teams, mentored)"
	default:
		return "Use contributor language (collaborated, contributed, implemented, supported)"
	}
}

// CompanyNamesString joins the company names for display
func (m *JobMetadata) CompanyNamesString() string {
	if len(m.CompanyNames) == 0 {
		return "None detected"
	}
	return strings.Join(m.CompanyNames, ", ")
}
