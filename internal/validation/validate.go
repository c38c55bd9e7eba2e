package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/jonathan/section-tailor/internal/keywords"
	"github.com/jonathan/section-tailor/internal/rendering"
	"github.com/jonathan/section-tailor/internal/types"
)

// Rule names recorded on each Violation
const (
	RuleBulletCount         = "bullet_count"
	RuleCharRange           = "char_range"
	RuleWordLimit           = "word_limit"
	RuleTrailingPeriod      = "trailing_period"
	RuleImpact              = "measurable_impact"
	RuleFirstBullet         = "first_bullet_format"
	RuleActionVerb          = "action_verb"
	RuleCategoryLabel       = "category_label"
	RuleDuplicateBullet     = "duplicate_bullet"
	RuleRepeatedItem        = "repeated_item"
	RuleForbiddenPhrase     = "forbidden_phrase"
	RuleCompanyName         = "company_name"
	RuleLeadershipLanguage  = "leadership_language"
	RuleExperienceYears     = "experience_years"
	RuleKeywordCoverage     = "keyword_coverage"
	RuleKeywordConcentrated = "keyword_concentration"
	RuleUnescapedChars      = "unescaped_characters"
	RulePassingScore        = "passing_score"
)

// ValidateSection looks up the rule table for the section's kind and validates against it
func ValidateSection(section *types.Section, jd *types.JobDescription, rules Rules) (*types.ValidationResult, error) {
	rs, err := rules.For(section.Kind)
	if err != nil {
		return nil, err
	}
	return Validate(section, jd, rs), nil
}

// Validate checks a section against one rule table. It never mutates its inputs.
// Passed is true exactly when no error was recorded.
func Validate(section *types.Section, jd *types.JobDescription, rs RuleSet) *types.ValidationResult {
	c := &collector{penalties: rs.Penalties}
	plain := make([]string, len(section.Bullets))
	for i, b := range section.Bullets {
		plain[i] = rendering.Unescape(b.Text)
	}

	checkBulletCount(c, section, rs)
	for i, b := range section.Bullets {
		checkBullet(c, i+1, b, plain[i], rs)
	}
	checkFirstBullet(c, plain, rs)
	if rs.UniqueBullets {
		checkDuplicateBullets(c, plain)
	}
	if rs.UniqueItems {
		checkRepeatedItems(c, plain)
	}
	checkForbiddenPhrases(c, plain, rs.ForbiddenPhrases)
	if rs.SemanticChecks && jd != nil && jd.Metadata != nil {
		checkSemantics(c, plain, jd.Metadata)
	}
	matched := checkKeywords(c, plain, jd, rs)
	checkUnescaped(c, section)

	result := c.result(rs.PassingScore, matched)
	if jd != nil && rs.TopKeywords > 0 {
		result.KeywordCoverage = keywords.Coverage(strings.Join(plain, "\n"), jd.TopTerms(rs.TopKeywords))
	}
	return result
}

type collector struct {
	penalties  Penalties
	violations []types.Violation
}

func (c *collector) add(rule, severity string, penalty int, bullet int, details string) *types.Violation {
	v := types.Violation{Rule: rule, Severity: severity, Details: details, Penalty: penalty}
	if bullet > 0 {
		idx := bullet
		v.BulletIndex = &idx
	}
	c.violations = append(c.violations, v)
	return &c.violations[len(c.violations)-1]
}

func (c *collector) errorf(rule string, penalty int, bullet int, format string, args ...any) *types.Violation {
	return c.add(rule, types.SeverityError, penalty, bullet, fmt.Sprintf(format, args...))
}

func (c *collector) warnf(rule string, penalty int, bullet int, format string, args ...any) *types.Violation {
	return c.add(rule, types.SeverityWarning, penalty, bullet, fmt.Sprintf(format, args...))
}

func (c *collector) result(passingScore int, matched []string) *types.ValidationResult {
	score := 100
	for _, v := range c.violations {
		score -= v.Penalty
	}
	if score < 0 {
		score = 0
	}

	r := &types.ValidationResult{
		Errors:          []string{},
		Warnings:        []string{},
		Score:           score,
		KeywordsMatched: matched,
	}
	if r.KeywordsMatched == nil {
		r.KeywordsMatched = []string{}
	}
	for _, v := range c.violations {
		if v.Severity == types.SeverityError {
			r.Errors = append(r.Errors, v.Details)
		} else {
			r.Warnings = append(r.Warnings, v.Details)
		}
	}
	// a low score with no recorded error still has to fail
	if len(r.Errors) == 0 && score < passingScore {
		c.errorf(RulePassingScore, 0, 0, "Score %d is below the passing threshold %d", score, passingScore)
		r.Errors = append(r.Errors, c.violations[len(c.violations)-1].Details)
	}
	r.Violations = c.violations
	r.Passed = len(r.Errors) == 0
	return r
}

func checkBulletCount(c *collector, section *types.Section, rs RuleSet) {
	n := len(section.Bullets)
	switch {
	case rs.MinBullets > 0 && rs.MinBullets == rs.MaxBullets && n != rs.MinBullets:
		c.errorf(RuleBulletCount, c.penalties.Other, 0, "Expected exactly %d bullets, found %d", rs.MinBullets, n)
	case rs.MinBullets > 0 && n < rs.MinBullets:
		c.errorf(RuleBulletCount, c.penalties.Other, 0, "Need at least %d bullets, found %d", rs.MinBullets, n)
	case rs.MaxBullets > 0 && n > rs.MaxBullets:
		c.errorf(RuleBulletCount, c.penalties.Other, 0, "At most %d bullets allowed, found %d", rs.MaxBullets, n)
	}
}

var quantifiable = regexp.MustCompile(`[0-9%$]`)

func checkBullet(c *collector, idx int, b types.Bullet, plain string, rs RuleSet) {
	if rs.MaxChars > 0 && (b.CharCount < rs.MinChars || b.CharCount > rs.MaxChars) {
		v := c.errorf(RuleCharRange, c.penalties.CharCount, idx,
			"Bullet %d: %d characters (must be %d-%d)", idx, b.CharCount, rs.MinChars, rs.MaxChars)
		count := b.CharCount
		v.CharCount = &count
	}
	if rs.MaxWords > 0 && b.WordCount > rs.MaxWords {
		c.errorf(RuleWordLimit, c.penalties.Other, idx,
			"Bullet %d: %d words (maximum %d)", idx, b.WordCount, rs.MaxWords)
	}
	if rs.ForbidTrailingPeriod && strings.HasSuffix(strings.TrimSpace(plain), ".") {
		c.errorf(RuleTrailingPeriod, c.penalties.Other, idx, "Bullet %d: Remove trailing period", idx)
	}
	if rs.RequireImpact && !quantifiable.MatchString(plain) {
		if rs.ImpactIsError {
			c.errorf(RuleImpact, c.penalties.Impact, idx, "Bullet %d: No measurable impact (add a number, %% or $ figure)", idx)
		} else {
			c.warnf(RuleImpact, c.penalties.Impact, idx, "Bullet %d: Consider adding measurable impact (number, %% or $ figure)", idx)
		}
	}
	if rs.RequireActionVerb && !startsWithActionVerb(plain) {
		c.warnf(RuleActionVerb, 0, idx, "Bullet %d: Consider starting with a strong action verb", idx)
	}
	if rs.RequireCategoryLabel {
		if _, ok := rendering.CategoryLabel(plain); !ok {
			c.warnf(RuleCategoryLabel, 0, idx, "Line %d: Consider a category label (Languages:, Frameworks:, Tools:)", idx)
		}
	}
}

func checkFirstBullet(c *collector, plain []string, rs RuleSet) {
	if rs.FirstBulletPattern == "" || len(plain) == 0 {
		return
	}
	pattern, err := regexp.Compile(rs.FirstBulletPattern)
	if err != nil {
		c.errorf(RuleFirstBullet, c.penalties.FirstBullet, 1, "First bullet pattern is invalid: %v", err)
		return
	}
	if !pattern.MatchString(plain[0]) {
		hint := rs.FirstBulletHint
		if hint == "" {
			hint = rs.FirstBulletPattern
		}
		c.errorf(RuleFirstBullet, c.penalties.FirstBullet, 1, "First bullet must match format %s", hint)
	}
}

var actionVerbs = map[string]struct{}{}

func init() {
	for _, v := range strings.Fields(`led developed implemented designed built created managed delivered launched
		optimized improved reduced increased achieved established drove spearheaded facilitated
		deployed architected engineered collaborated coordinated automated migrated scaled shipped
		owned cut accelerated integrated streamlined analyzed mentored refactored`) {
		actionVerbs[v] = struct{}{}
	}
}

func startsWithActionVerb(plain string) bool {
	fields := strings.Fields(plain)
	if len(fields) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimFunc(fields[0], func(r rune) bool { return !unicode.IsLetter(r) }))
	_, ok := actionVerbs[first]
	return ok
}

func checkDuplicateBullets(c *collector, plain []string) {
	seen := make(map[string]int)
	for i, text := range plain {
		key := strings.ToLower(strings.Join(strings.Fields(text), " "))
		if first, dup := seen[key]; dup {
			c.errorf(RuleDuplicateBullet, c.penalties.Other, i+1, "Bullet %d duplicates bullet %d", i+1, first)
			continue
		}
		seen[key] = i + 1
	}
}

// checkRepeatedItems flags any tool listed in more than one place across category lines
func checkRepeatedItems(c *collector, plain []string) {
	seen := make(map[string]int)
	for i, line := range plain {
		items := line
		if label, ok := rendering.CategoryLabel(line); ok {
			items = strings.TrimSpace(strings.TrimPrefix(line, label))
			items = strings.TrimPrefix(items, ":")
		}
		for _, item := range strings.FieldsFunc(items, func(r rune) bool { return r == ',' || r == ';' || r == '|' }) {
			key := strings.ToLower(strings.TrimSpace(item))
			if key == "" {
				continue
			}
			if first, dup := seen[key]; dup {
				c.errorf(RuleRepeatedItem, c.penalties.Other, i+1,
					"Line %d: %q already listed on line %d", i+1, strings.TrimSpace(item), first)
				continue
			}
			seen[key] = i + 1
		}
	}
}

// checkKeywords records a single error for the keyword shortfall, penalized per missing keyword,
// and an error when matched keywords are carried by too few distinct bullets
func checkKeywords(c *collector, plain []string, jd *types.JobDescription, rs RuleSet) []string {
	if jd == nil || rs.TopKeywords <= 0 {
		return nil
	}
	top := jd.TopTerms(rs.TopKeywords)
	matched := keywords.Matched(strings.Join(plain, "\n"), top)

	if rs.MinKeywords > 0 && len(matched) < rs.MinKeywords {
		shortfall := rs.MinKeywords - len(matched)
		c.errorf(RuleKeywordCoverage, c.penalties.MissingKeyword*shortfall, 0,
			"Only %d/%d top keywords found (need %d); missing: %s",
			len(matched), len(top), rs.MinKeywords, strings.Join(missingTerms(top, matched), ", "))
	}

	// zero carriers counts as concentrated so matching a keyword never lowers the score
	if rs.MinKeywordBullets > 0 {
		carriers := 0
		for _, text := range plain {
			if len(keywords.Matched(text, matched)) > 0 {
				carriers++
			}
		}
		if carriers < rs.MinKeywordBullets {
			c.errorf(RuleKeywordConcentrated, c.penalties.Other, 0,
				"Keywords concentrated in %d bullet(s); spread them across at least %d", carriers, rs.MinKeywordBullets)
		}
	}
	return matched
}

func missingTerms(all, matched []string) []string {
	have := make(map[string]bool, len(matched))
	for _, m := range matched {
		have[m] = true
	}
	var missing []string
	for _, t := range all {
		if !have[t] {
			missing = append(missing, t)
		}
	}
	return missing
}

// checkUnescaped warns about special characters the generator left unescaped in its raw output
func checkUnescaped(c *collector, section *types.Section) {
	raw := section.RawMarkup
	if raw == "" || !strings.HasPrefix(raw, section.Preamble) || !strings.HasSuffix(raw, section.Postamble) {
		return
	}
	if len(section.Preamble)+len(section.Postamble) > len(raw) {
		return
	}
	body := raw[len(section.Preamble) : len(raw)-len(section.Postamble)]
	var kept []string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "%") {
			continue
		}
		kept = append(kept, line)
	}
	if found := rendering.UnescapedSpecials(strings.Join(kept, "\n")); len(found) > 0 {
		c.warnf(RuleUnescapedChars, 0, 0, "Unescaped special characters in generated text: %s", strings.Join(found, " "))
	}
}
