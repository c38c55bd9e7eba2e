// Package types provides type definitions for structured data used throughout the section-tailor system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SectionKind identifies which document section a Section represents
type SectionKind string

const (
	// KindSummary is the four-bullet professional summary
	KindSummary SectionKind = "summary"
	// KindExperience is a single experience or project entry
	KindExperience SectionKind = "experience"
	// KindSkills is the categorized technical skills block
	KindSkills SectionKind = "skills"
)

// AllKinds lists the section kinds in document order
var AllKinds = []SectionKind{KindSummary, KindExperience, KindSkills}

// ParseSectionKind converts user input ("summary", "Experience", "projects") to a SectionKind
func ParseSectionKind(s string) (SectionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "summary":
		return KindSummary, nil
	case "experience", "experienceentry", "experience_entry", "projects", "project":
		return KindExperience, nil
	case "skills", "technical_skills":
		return KindSkills, nil
	default:
		return "", fmt.Errorf("unknown section kind: %q", s)
	}
}

// Bullet is a single content line of a section. Text is always in escaped markup form.
type Bullet struct {
	Text      string `json:"text"`
	CharCount int    `json:"char_count"`
	WordCount int    `json:"word_count"`
}

// NewBullet builds a Bullet from already-escaped text and derives its counts
func NewBullet(escapedText string) Bullet {
	return Bullet{
		Text:      escapedText,
		CharCount: utf8.RuneCountInString(escapedText),
		WordCount: len(strings.Fields(escapedText)),
	}
}

// Section is one parsed document section.
// Preamble holds every line before the first bullet (including the list-start marker),
// Postamble everything from the list-end marker on. Both are kept verbatim for rendering.
type Section struct {
	Kind      SectionKind `json:"kind"`
	RawMarkup string      `json:"raw_markup"`
	Bullets   []Bullet    `json:"bullets"`
	Preamble  string      `json:"preamble"`
	Postamble string      `json:"postamble"`
	Indent    string      `json:"indent,omitempty"`
}

// BulletTexts returns the escaped text of every bullet in order
func (s *Section) BulletTexts() []string {
	texts := make([]string, len(s.Bullets))
	for i, b := range s.Bullets {
		texts[i] = b.Text
	}
	return texts
}
