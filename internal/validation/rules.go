package validation

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/section-tailor/internal/types"
)

// Strictness adjusts every rule table without code changes
type Strictness string

const (
	StrictnessLenient  Strictness = "lenient"
	StrictnessStandard Strictness = "standard"
	StrictnessStrict   Strictness = "strict"
)

// ParseStrictness converts user input to a Strictness; empty means standard
func ParseStrictness(s string) (Strictness, error) {
	switch Strictness(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrictnessStandard:
		return StrictnessStandard, nil
	case StrictnessLenient:
		return StrictnessLenient, nil
	case StrictnessStrict:
		return StrictnessStrict, nil
	default:
		return "", &RuleError{Message: fmt.Sprintf("unknown strictness %q (want lenient, standard or strict)", s)}
	}
}

// Penalties are the points subtracted from 100 per violation
type Penalties struct {
	CharCount      int `yaml:"char_count" json:"char_count" validate:"gte=0"`
	MissingKeyword int `yaml:"missing_keyword" json:"missing_keyword" validate:"gte=0"`
	Impact         int `yaml:"impact" json:"impact" validate:"gte=0"`
	FirstBullet    int `yaml:"first_bullet" json:"first_bullet" validate:"gte=0"`
	Semantic       int `yaml:"semantic" json:"semantic" validate:"gte=0"`
	Other          int `yaml:"other" json:"other" validate:"gte=0"`
}

// DefaultPenalties is the shared scoring formula
func DefaultPenalties() Penalties {
	return Penalties{CharCount: 15, MissingKeyword: 15, Impact: 5, FirstBullet: 15, Semantic: 20, Other: 15}
}

// RuleSet is the rule table for one section kind. Zero-valued bounds disable their check.
type RuleSet struct {
	MinBullets int `yaml:"min_bullets" json:"min_bullets" validate:"gte=0"`
	MaxBullets int `yaml:"max_bullets" json:"max_bullets" validate:"omitempty,gtefield=MinBullets"`
	MinChars   int `yaml:"min_chars" json:"min_chars" validate:"gte=0"`
	MaxChars   int `yaml:"max_chars" json:"max_chars" validate:"omitempty,gtefield=MinChars"`
	MaxWords   int `yaml:"max_words" json:"max_words" validate:"gte=0"`

	FirstBulletPattern   string `yaml:"first_bullet_pattern" json:"first_bullet_pattern,omitempty"`
	FirstBulletHint      string `yaml:"first_bullet_hint" json:"first_bullet_hint,omitempty"`
	ForbidTrailingPeriod bool   `yaml:"forbid_trailing_period" json:"forbid_trailing_period"`
	RequireImpact        bool   `yaml:"require_impact" json:"require_impact"`
	ImpactIsError        bool   `yaml:"impact_is_error" json:"impact_is_error"`
	RequireActionVerb    bool   `yaml:"require_action_verb" json:"require_action_verb"`
	RequireCategoryLabel bool   `yaml:"require_category_label" json:"require_category_label"`
	UniqueBullets        bool   `yaml:"unique_bullets" json:"unique_bullets"`
	UniqueItems          bool   `yaml:"unique_items" json:"unique_items"`
	SemanticChecks       bool   `yaml:"semantic_checks" json:"semantic_checks"`

	TopKeywords       int `yaml:"top_keywords" json:"top_keywords" validate:"gte=0"`
	MinKeywords       int `yaml:"min_keywords" json:"min_keywords" validate:"gte=0,ltefield=TopKeywords"`
	MinKeywordBullets int `yaml:"min_keyword_bullets" json:"min_keyword_bullets" validate:"gte=0"`

	ForbiddenPhrases []string `yaml:"forbidden_phrases" json:"forbidden_phrases,omitempty"`

	Penalties    Penalties `yaml:"penalties" json:"penalties"`
	PassingScore int       `yaml:"passing_score" json:"passing_score" validate:"gte=0,lte=100"`
}

// Rules maps each section kind to its rule table
type Rules map[types.SectionKind]RuleSet

// SummaryFirstBulletPattern accepts "<role> with <N>+ yrs ..." openers
const SummaryFirstBulletPattern = `^[A-Za-z][A-Za-z/&\-\s]*\s+with\s+\d+\+?\s+(?:yrs?|years)\b`

// DefaultRules returns the standard rule tables
func DefaultRules() Rules {
	return Rules{
		types.KindSummary: {
			MinBullets:           4,
			MaxBullets:           4,
			MinChars:             105,
			MaxChars:             109,
			FirstBulletPattern:   SummaryFirstBulletPattern,
			FirstBulletHint:      `"<Role> with <N>+ yrs ..."`,
			ForbidTrailingPeriod: true,
			RequireImpact:        true,
			SemanticChecks:       true,
			TopKeywords:          8,
			MinKeywords:          5,
			Penalties:            DefaultPenalties(),
			PassingScore:         80,
		},
		types.KindExperience: {
			MinBullets:           3,
			MaxBullets:           4,
			MinChars:             100,
			MaxChars:             110,
			MaxWords:             17,
			ForbidTrailingPeriod: true,
			RequireImpact:        true,
			RequireActionVerb:    true,
			UniqueBullets:        true,
			TopKeywords:          8,
			MinKeywords:          3,
			MinKeywordBullets:    2,
			Penalties:            DefaultPenalties(),
			PassingScore:         80,
		},
		types.KindSkills: {
			MinBullets:           4,
			MaxBullets:           6,
			MinChars:             80,
			MaxChars:             120,
			RequireCategoryLabel: true,
			UniqueItems:          true,
			TopKeywords:          8,
			MinKeywords:          3,
			Penalties:            DefaultPenalties(),
			PassingScore:         80,
		},
	}
}

// Clone returns a deep copy so callers can adjust rules without sharing state
func (r Rules) Clone() Rules {
	out := make(Rules, len(r))
	for kind, rs := range r {
		rs.ForbiddenPhrases = append([]string(nil), rs.ForbiddenPhrases...)
		out[kind] = rs
	}
	return out
}

// For returns the rule table for kind
func (r Rules) For(kind types.SectionKind) (RuleSet, error) {
	rs, ok := r[kind]
	if !ok {
		return RuleSet{}, &RuleError{Kind: kind, Message: "no rule table for section kind"}
	}
	return rs, nil
}

// WithStrictness returns a copy of the rules adjusted for the given strictness.
// Lenient widens char ranges by 5 on both sides, adds 2 to word limits and lowers
// keyword minimums by one (never below 1). Strict turns missing impact into an error.
func (r Rules) WithStrictness(s Strictness) Rules {
	out := r.Clone()
	for kind, rs := range out {
		switch s {
		case StrictnessLenient:
			if rs.MaxChars > 0 {
				rs.MinChars = max(0, rs.MinChars-5)
				rs.MaxChars += 5
			}
			if rs.MaxWords > 0 {
				rs.MaxWords += 2
			}
			if rs.MinKeywords > 1 {
				rs.MinKeywords--
			}
		case StrictnessStrict:
			if rs.RequireImpact {
				rs.ImpactIsError = true
			}
		}
		out[kind] = rs
	}
	return out
}

// LoadOverrides reads a YAML file keyed by section kind and merges it over r.
// Fields absent from the file keep their current values.
func (r Rules) LoadOverrides(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &RuleError{Message: fmt.Sprintf("failed to read rules file: %s", path), Cause: err}
	}
	return r.MergeYAML(data)
}

// MergeYAML merges YAML overrides over a copy of r
func (r Rules) MergeYAML(data []byte) (Rules, error) {
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &RuleError{Message: "failed to parse rules YAML", Cause: err}
	}

	out := r.Clone()
	for key, node := range doc {
		kind, err := types.ParseSectionKind(key)
		if err != nil {
			return nil, &RuleError{Message: "unknown section kind in rules file", Cause: err}
		}
		rs := out[kind]
		if rs.Penalties == (Penalties{}) {
			rs.Penalties = DefaultPenalties()
		}
		if err := node.Decode(&rs); err != nil {
			return nil, &RuleError{Kind: kind, Message: "failed to decode rule table", Cause: err}
		}
		out[kind] = rs
	}
	return out, nil
}

var ruleValidator = validator.New()

// Validate checks every rule table for consistent bounds and compilable patterns
func (r Rules) Validate() error {
	for _, kind := range types.AllKinds {
		rs, ok := r[kind]
		if !ok {
			continue
		}
		if err := rs.Validate(); err != nil {
			var ruleErr *RuleError
			if errors.As(err, &ruleErr) {
				ruleErr.Kind = kind
			}
			return err
		}
	}
	return nil
}

// Validate checks a single rule table
func (rs RuleSet) Validate() error {
	if err := ruleValidator.Struct(rs); err != nil {
		return &RuleError{Message: "invalid rule table", Cause: err}
	}
	if rs.FirstBulletPattern != "" {
		if _, err := regexp.Compile(rs.FirstBulletPattern); err != nil {
			return &RuleError{Message: "invalid first_bullet_pattern", Cause: err}
		}
	}
	return nil
}
