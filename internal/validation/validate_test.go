package validation

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/section-tailor/internal/keywords"
	"github.com/jonathan/section-tailor/internal/rendering"
	"github.com/jonathan/section-tailor/internal/types"
)

const scenarioJD = "Python Python Python agents agents production LLMs LLMs pydantic-ai workflows workflows clinical clinical Docker"

// Opener as first written; 99 characters, so it falls short of the Summary range
const shortScenarioABullet = "AI Engineer with 5+ yrs building LLM agents in Python; shipped pydantic-ai tools saving 1,000 hours"

// 105 characters including the trailing period, inside the Summary range
const inRangeScenarioBBullet = "Experienced AI Engineer who has been building production-grade LLM systems for over 5 years using Python."

// 107 characters
const scenarioABullet = "AI Engineer with 5+ yrs building LLM agents in Python; shipped pydantic-ai tools saving 1,000 hours monthly"

// 116 characters with a trailing period
const scenarioBBullet = "Experienced AI Engineer who has been building production-grade LLM systems for over 5 years using Python on AWS now."

var summaryBullets = []string{
	scenarioABullet,
	"Designed clinical workflows for 120 hospitals using LLMs, cutting chart review time by 35% in production",
	"Containerized 20 evaluation services with Docker and automated regression checks across 14 model releases",
	"Partnered with 6 product teams to deploy retrieval pipelines raising answer accuracy from 71% to 89% in Q3",
}

var experienceBullets = []string{
	"Built Python agents with pydantic-ai that triaged 4,000 clinical tickets per week for 3 hospital networks",
	"Shipped Docker images for 12 LLM evaluation workflows, reducing release turnaround from 5 days to 6 hours",
	"Migrated 30 batch jobs to production Kubernetes clusters and reduced monthly compute spend by 22 percent",
}

var skillsLines = []string{
	"Languages: Python, Go, TypeScript, SQL, Bash, Rust, Java, Kotlin, Scala, C++ and R for analytics work",
	"AI/ML: pydantic-ai, LangChain, LLMs, agents, evaluation workflows, retrieval pipelines, vector search",
	"Infrastructure: Docker, Kubernetes, Terraform, AWS Lambda, GCP Cloud Run, Helm, ArgoCD, GitHub Actions",
	"Data: PostgreSQL, Redis, BigQuery, Snowflake, dbt, Airflow, Kafka, clinical data pipelines, FHIR APIs",
}

func newSection(kind types.SectionKind, texts ...string) *types.Section {
	bullets := make([]types.Bullet, len(texts))
	for i, t := range texts {
		bullets[i] = types.NewBullet(rendering.EscapeLaTeX(t))
	}
	return &types.Section{Kind: kind, Bullets: bullets}
}

func withBullet(texts []string, idx int, text string) []string {
	out := append([]string(nil), texts...)
	out[idx] = text
	return out
}

func summaryRules(t *testing.T) RuleSet {
	rs, err := DefaultRules().For(types.KindSummary)
	require.NoError(t, err)
	return rs
}

func TestValidate_SummaryPasses(t *testing.T) {
	jd := keywords.ForJob(scenarioJD, 8)

	result := Validate(newSection(types.KindSummary, summaryBullets...), jd, summaryRules(t))

	assert.True(t, result.Passed, result.Errors)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, 100, result.Score)
	assert.Len(t, result.KeywordsMatched, 8)
	assert.Equal(t, 1.0, result.KeywordCoverage)
}

func TestValidate_ScenarioA(t *testing.T) {
	section := newSection(types.KindSummary, summaryBullets...)
	require.Equal(t, 107, section.Bullets[0].CharCount)

	result := Validate(section, keywords.ForJob(scenarioJD, 8), summaryRules(t))

	for _, v := range result.Violations {
		assert.NotContains(t, []string{RuleCharRange, RuleFirstBullet, RuleTrailingPeriod}, v.Rule, v.Details)
	}
	assert.True(t, result.Passed)
}

func TestValidate_ScenarioB(t *testing.T) {
	section := newSection(types.KindSummary, withBullet(summaryBullets, 0, scenarioBBullet)...)
	require.Equal(t, 116, section.Bullets[0].CharCount)

	result := Validate(section, keywords.ForJob(scenarioJD, 8), summaryRules(t))

	assert.False(t, result.Passed)
	assert.Contains(t, result.Errors, "Bullet 1: 116 characters (must be 105-109)")
	assert.Contains(t, result.Errors, "Bullet 1: Remove trailing period")
	assert.Contains(t, result.Errors, `First bullet must match format "<Role> with <N>+ yrs ..."`)
	assert.Equal(t, 100-15-15-15, result.Score)

	var charViolation *types.Violation
	for i := range result.Violations {
		if result.Violations[i].Rule == RuleCharRange {
			charViolation = &result.Violations[i]
		}
	}
	require.NotNil(t, charViolation)
	assert.Equal(t, 1, *charViolation.BulletIndex)
	assert.Equal(t, 116, *charViolation.CharCount)
}

func TestValidate_ScenarioLiteralOpeners(t *testing.T) {
	jd := keywords.ForJob(scenarioJD, 8)

	t.Run("short opener", func(t *testing.T) {
		section := newSection(types.KindSummary, withBullet(summaryBullets, 0, shortScenarioABullet)...)
		require.Equal(t, 99, section.Bullets[0].CharCount)

		result := Validate(section, jd, summaryRules(t))

		assert.False(t, result.Passed)
		assert.Contains(t, result.Errors, "Bullet 1: 99 characters (must be 105-109)")
		assert.NotContains(t, result.Errors, "Bullet 1: Remove trailing period")
	})

	t.Run("opener with trailing period", func(t *testing.T) {
		section := newSection(types.KindSummary, withBullet(summaryBullets, 0, inRangeScenarioBBullet)...)
		require.Equal(t, 105, section.Bullets[0].CharCount)

		result := Validate(section, jd, summaryRules(t))

		assert.False(t, result.Passed)
		assert.Contains(t, result.Errors, "Bullet 1: Remove trailing period")
		for _, v := range result.Violations {
			assert.NotEqual(t, RuleCharRange, v.Rule, v.Details)
		}
	})
}

func TestValidate_SummaryBulletCount(t *testing.T) {
	result := Validate(newSection(types.KindSummary, summaryBullets[:3]...), keywords.ForJob(scenarioJD, 8), summaryRules(t))

	assert.False(t, result.Passed)
	assert.Contains(t, result.Errors, "Expected exactly 4 bullets, found 3")
}

func TestValidate_KeywordShortfall(t *testing.T) {
	jd := keywords.ForJob("Rust Haskell Erlang Elixir OCaml Zig Nim Crystal", 8)

	result := Validate(newSection(types.KindSummary, summaryBullets...), jd, summaryRules(t))

	assert.False(t, result.Passed)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "Only 0/8 top keywords found (need 5)"))
	assert.Equal(t, 100-5*15, result.Score)
	assert.Empty(t, result.KeywordsMatched)
	assert.Equal(t, 0.0, result.KeywordCoverage)
}

func TestValidate_ScoreMonotonicInKeywords(t *testing.T) {
	present := []string{"python", "agents", "clinical", "docker", "production", "workflows", "llms", "pydantic-ai"}
	absent := []string{"rust", "haskell", "erlang", "elixir", "ocaml", "zig", "nim", "crystal"}
	section := newSection(types.KindSummary, summaryBullets...)

	previous := -1
	for k := 0; k <= len(present); k++ {
		terms := append(append([]string(nil), present[:k]...), absent[:len(present)-k]...)
		jd := &types.JobDescription{}
		for _, term := range terms {
			jd.Keywords = append(jd.Keywords, types.Keyword{Term: term, Weight: 1})
		}

		result := Validate(section, jd, summaryRules(t))

		assert.GreaterOrEqual(t, result.Score, previous, fmt.Sprintf("k=%d", k))
		assert.Len(t, result.KeywordsMatched, k)
		previous = result.Score
	}
	assert.Equal(t, 100, previous)
}

func TestValidate_ScoreMonotonicWithOverriddenRules(t *testing.T) {
	present := []string{"python", "agents", "pydantic-ai", "clinical", "docker", "workflows", "production"}
	absent := []string{"rust", "haskell", "erlang", "elixir", "ocaml", "zig", "nim"}
	section := newSection(types.KindExperience, experienceBullets...)

	tests := []struct {
		name   string
		modify func(rs *RuleSet)
	}{
		{"no minimum keyword count", func(rs *RuleSet) { rs.MinKeywords = 0 }},
		{"concentration costs more than a missing keyword", func(rs *RuleSet) {
			rs.Penalties.Other = 40
			rs.Penalties.MissingKeyword = 5
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := DefaultRules()[types.KindExperience]
			rs.TopKeywords = len(present)
			tt.modify(&rs)

			previous := -1
			for k := 0; k <= len(present); k++ {
				jd := &types.JobDescription{}
				for _, term := range append(append([]string(nil), present[:k]...), absent[:len(present)-k]...) {
					jd.Keywords = append(jd.Keywords, types.Keyword{Term: term, Weight: 1})
				}

				result := Validate(section, jd, rs)

				assert.GreaterOrEqual(t, result.Score, previous, fmt.Sprintf("k=%d", k))
				assert.Len(t, result.KeywordsMatched, k)
				previous = result.Score
			}
			assert.Equal(t, 100, previous)
		})
	}
}

func TestValidate_NoMatchedKeywordsIsConcentrated(t *testing.T) {
	rs := DefaultRules()[types.KindExperience]
	rs.MinKeywords = 0
	jd := keywords.ForJob("Haskell Haskell Erlang", 8)

	result := Validate(newSection(types.KindExperience, experienceBullets...), jd, rs)

	assert.Contains(t, result.Errors, "Keywords concentrated in 0 bullet(s); spread them across at least 2")
	assert.Equal(t, 100-rs.Penalties.Other, result.Score)
}

func TestValidate_MeasurableImpact(t *testing.T) {
	noNumbers := "Designed clinical workflows for partner hospitals using LLMs and cut chart review time across production labs"
	bullets := withBullet(summaryBullets, 1, noNumbers)
	jd := keywords.ForJob(scenarioJD, 8)

	standard := Validate(newSection(types.KindSummary, bullets...), jd, summaryRules(t))
	assert.True(t, standard.Passed)
	assert.Equal(t, 95, standard.Score)
	require.Len(t, standard.Warnings, 1)
	assert.Contains(t, standard.Warnings[0], "Bullet 2")

	strict := DefaultRules().WithStrictness(StrictnessStrict)[types.KindSummary]
	strictResult := Validate(newSection(types.KindSummary, bullets...), jd, strict)
	assert.False(t, strictResult.Passed)
	assert.Equal(t, 95, strictResult.Score)
}

func TestValidate_SemanticChecks(t *testing.T) {
	maxYears := 4
	jd := keywords.ForJob(scenarioJD, 8)
	jd.Metadata = &types.JobMetadata{
		CompanyNames:       []string{"Acme Health"},
		RoleLevel:          types.RoleMid,
		ExperienceYearsMax: &maxYears,
	}
	bullets := withBullet(summaryBullets, 3, "Led 6 product teams at Acme Health to deploy retrieval pipelines raising accuracy from 71% to 89%")

	result := Validate(newSection(types.KindSummary, bullets...), jd, summaryRules(t))

	rules := map[string]int{}
	for _, v := range result.Violations {
		rules[v.Rule]++
	}
	assert.Equal(t, 1, rules[RuleCompanyName])
	assert.Equal(t, 1, rules[RuleLeadershipLanguage])
	// bullet 1 claims 5+ yrs against a maximum of 4
	assert.Equal(t, 1, rules[RuleExperienceYears])
	assert.False(t, result.Passed)
}

func TestValidate_SemanticChecksNeedMetadata(t *testing.T) {
	bullets := withBullet(summaryBullets, 3, "Led 6 product teams at Acme Health to deploy retrieval pipelines raising accuracy from 71% to 89%")
	result := Validate(newSection(types.KindSummary, bullets...), keywords.ForJob(scenarioJD, 8), summaryRules(t))

	for _, v := range result.Violations {
		assert.NotEqual(t, RuleCompanyName, v.Rule)
		assert.NotEqual(t, RuleLeadershipLanguage, v.Rule)
	}
}

func TestValidate_LeadershipAllowedForStaff(t *testing.T) {
	jd := keywords.ForJob(scenarioJD, 8)
	jd.Metadata = &types.JobMetadata{RoleLevel: types.RoleStaff}
	bullets := withBullet(summaryBullets, 3, "Led 6 product teams to deploy retrieval pipelines raising answer accuracy from 71% to 89% in Q3 2024")

	result := Validate(newSection(types.KindSummary, bullets...), jd, summaryRules(t))
	for _, v := range result.Violations {
		assert.NotEqual(t, RuleLeadershipLanguage, v.Rule)
	}
}

func TestValidate_Experience(t *testing.T) {
	rs := DefaultRules()[types.KindExperience]
	jd := keywords.ForJob(scenarioJD, 8)

	tests := []struct {
		name      string
		bullets   []string
		passed    bool
		wantRule  string
		wantError string
	}{
		{name: "valid entry", bullets: experienceBullets, passed: true},
		{
			name:      "too few bullets",
			bullets:   experienceBullets[:2],
			wantRule:  RuleBulletCount,
			wantError: "Need at least 3 bullets, found 2",
		},
		{
			name:     "word limit",
			bullets:  withBullet(experienceBullets, 2, "Moved a lot of the old nightly batch jobs over to the new production Kubernetes clusters in 3 quarters"),
			wantRule: RuleWordLimit,
		},
		{
			name:      "duplicate bullet",
			bullets:   append(append([]string(nil), experienceBullets...), strings.ToUpper(experienceBullets[0][:1])+experienceBullets[0][1:]),
			wantRule:  RuleDuplicateBullet,
			wantError: "Bullet 4 duplicates bullet 1",
		},
		{
			name:      "trailing period",
			bullets:   withBullet(experienceBullets, 2, "Migrated 30 batch jobs to production Kubernetes clusters and reduced monthly compute spend by 22 percent."),
			wantRule:  RuleTrailingPeriod,
			wantError: "Bullet 3: Remove trailing period",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(newSection(types.KindExperience, tt.bullets...), jd, rs)
			assert.Equal(t, tt.passed, result.Passed, result.Errors)
			if tt.wantRule != "" {
				found := false
				for _, v := range result.Violations {
					found = found || v.Rule == tt.wantRule
				}
				assert.True(t, found, "expected a %s violation in %v", tt.wantRule, result.Errors)
			}
			if tt.wantError != "" {
				assert.Contains(t, result.Errors, tt.wantError)
			}
		})
	}
}

func TestValidate_ExperienceKeywordConcentration(t *testing.T) {
	rs := DefaultRules()[types.KindExperience]
	jd := keywords.ForJob(scenarioJD, 8)
	bullets := []string{
		"Built Python agents with pydantic-ai that triaged 4,000 clinical tickets per week for 3 hospital networks",
		"Rebuilt the billing ledger in Go, reducing month-end reconciliation from 9 days to 2 days for finance",
		"Migrated 30 batch jobs to new Kubernetes clusters and reduced monthly compute spend by 22 percent total",
	}

	result := Validate(newSection(types.KindExperience, bullets...), jd, rs)

	assert.False(t, result.Passed)
	assert.Contains(t, result.Errors, "Keywords concentrated in 1 bullet(s); spread them across at least 2")
}

func TestValidate_ExperienceActionVerbWarning(t *testing.T) {
	rs := DefaultRules()[types.KindExperience]
	bullets := withBullet(experienceBullets, 2, "Responsible for 30 batch jobs on production Kubernetes clusters that cut monthly compute spend by 22%")

	result := Validate(newSection(types.KindExperience, bullets...), keywords.ForJob(scenarioJD, 8), rs)

	assert.Contains(t, result.Warnings, "Bullet 3: Consider starting with a strong action verb")
	assert.True(t, result.Passed)
}

func TestValidate_Skills(t *testing.T) {
	rs := DefaultRules()[types.KindSkills]
	jd := keywords.ForJob(scenarioJD, 8)

	result := Validate(newSection(types.KindSkills, skillsLines...), jd, rs)
	assert.True(t, result.Passed, result.Errors)
	assert.Empty(t, result.Warnings)

	repeated := withBullet(skillsLines, 3, "Data: PostgreSQL, Redis, BigQuery, Snowflake, dbt, Airflow, Kafka, Docker, clinical pipelines, FHIR")
	result = Validate(newSection(types.KindSkills, repeated...), jd, rs)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Errors, `Line 4: "Docker" already listed on line 3`)

	unlabeled := withBullet(skillsLines, 3, "PostgreSQL, Redis, BigQuery, Snowflake, dbt, Airflow, Kafka, clinical data pipelines, FHIR APIs too")
	result = Validate(newSection(types.KindSkills, unlabeled...), jd, rs)
	assert.True(t, result.Passed)
	assert.Len(t, result.Warnings, 1)
}

func TestValidate_PassingScoreFloor(t *testing.T) {
	rs := summaryRules(t)
	rs.Penalties.Impact = 25
	noNumbers := "Designed clinical workflows for partner hospitals using LLMs and cut chart review time across production labs"

	result := Validate(newSection(types.KindSummary, withBullet(summaryBullets, 1, noNumbers)...), keywords.ForJob(scenarioJD, 8), rs)

	assert.Equal(t, 75, result.Score)
	assert.False(t, result.Passed)
	assert.Contains(t, result.Errors, "Score 75 is below the passing threshold 80")
}

func TestValidate_ForbiddenPhrases(t *testing.T) {
	rs := summaryRules(t)
	rs.ForbiddenPhrases = []string{"rock star"}
	bullets := withBullet(summaryBullets, 2, "Rock star engineer who containerized 20 services with Docker and automated checks for 14 model releases")

	result := Validate(newSection(types.KindSummary, bullets...), keywords.ForJob(scenarioJD, 8), rs)

	assert.Contains(t, result.Errors, "Bullet 3 contains forbidden phrase: rock star")
}

func TestValidate_UnescapedWarning(t *testing.T) {
	raw := "\\section{Summary}\n\\begin{itemize}\n"
	for _, b := range summaryBullets {
		raw += "  \\item " + b + "\n"
	}
	raw += "\\end{itemize}\n"
	section, err := rendering.ParseSection(raw, types.KindSummary)
	require.NoError(t, err)

	result := Validate(section, keywords.ForJob(scenarioJD, 8), summaryRules(t))

	assert.True(t, result.Passed, result.Errors)
	assert.Contains(t, result.Warnings, "Unescaped special characters in generated text: %")
}

func TestValidate_DoesNotMutateInput(t *testing.T) {
	section := newSection(types.KindSummary, summaryBullets...)
	before := append([]types.Bullet(nil), section.Bullets...)
	jd := keywords.ForJob(scenarioJD, 8)
	terms := jd.Terms()

	_ = Validate(section, jd, summaryRules(t))

	assert.Equal(t, before, section.Bullets)
	assert.Equal(t, terms, jd.Terms())
}

func TestValidateSection_UnknownKind(t *testing.T) {
	section := newSection(types.SectionKind("education"), "x")
	_, err := ValidateSection(section, nil, DefaultRules())

	var ruleErr *RuleError
	require.True(t, errors.As(err, &ruleErr))
	assert.Equal(t, types.SectionKind("education"), ruleErr.Kind)
}
