package rendering

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/section-tailor/internal/types"
)

// Grammar describes how one section kind is laid out in markup
type Grammar struct {
	Kind types.SectionKind

	// SectionTitles are accepted \section{...} titles. When empty, Delimiters are used instead.
	SectionTitles []string
	Delimiters    []string

	ListStart string
	ListEnd   string

	// BulletDirective introduces each bullet. Grouped directives carry their text
	// in one balanced {...} argument; ungrouped ones run to the next directive.
	BulletDirective string
	Grouped         bool

	// CategoryLabels renders a leading "Label:" as \textbf{Label:}
	CategoryLabels bool
}

var grammars = map[types.SectionKind]*Grammar{
	types.KindSummary: {
		Kind:            types.KindSummary,
		SectionTitles:   []string{"Summary", "Professional Summary"},
		ListStart:       `\begin{itemize}`,
		ListEnd:         `\end{itemize}`,
		BulletDirective: `\item`,
	},
	types.KindExperience: {
		Kind:            types.KindExperience,
		Delimiters:      []string{`\resumeSubheading`, `\resumeProjectHeading`},
		ListStart:       `\resumeItemListStart`,
		ListEnd:         `\resumeItemListEnd`,
		BulletDirective: `\resumeItem`,
		Grouped:         true,
	},
	types.KindSkills: {
		Kind:            types.KindSkills,
		SectionTitles:   []string{"Technical Skills", "Skills"},
		ListStart:       `\begin{itemize}`,
		ListEnd:         `\end{itemize}`,
		BulletDirective: `\item`,
		CategoryLabels:  true,
	},
}

// GrammarFor returns the grammar registered for kind
func GrammarFor(kind types.SectionKind) (*Grammar, error) {
	g, ok := grammars[kind]
	if !ok {
		return nil, &ParseError{Kind: kind, Message: "no grammar registered for section kind"}
	}
	return g, nil
}

// RegisterGrammar adds or replaces the grammar for a section kind
func RegisterGrammar(g *Grammar) {
	grammars[g.Kind] = g
}

// delimiterPattern matches the marker that opens the section
func (g *Grammar) delimiterPattern() *regexp.Regexp {
	if len(g.SectionTitles) > 0 {
		titles := make([]string, len(g.SectionTitles))
		for i, t := range g.SectionTitles {
			titles[i] = regexp.QuoteMeta(t)
		}
		return regexp.MustCompile(`(?i)\\section\*?\{\s*(?:` + strings.Join(titles, "|") + `)\s*\}`)
	}
	delims := make([]string, len(g.Delimiters))
	for i, d := range g.Delimiters {
		delims[i] = regexp.QuoteMeta(d)
	}
	return regexp.MustCompile(`(?:` + strings.Join(delims, "|") + `)(?:[^A-Za-z]|$)`)
}

// delimiterName describes the delimiter in error messages
func (g *Grammar) delimiterName() string {
	if len(g.SectionTitles) > 0 {
		return fmt.Sprintf(`\section{%s}`, g.SectionTitles[0])
	}
	return g.Delimiters[0]
}

// listStartPattern also accepts an optional [..] argument (\begin{itemize}[leftmargin=*])
func (g *Grammar) listStartPattern() *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(g.ListStart) + `(?:\[[^\]\n]*\])?`)
}

// directiveIndexes returns the start offsets of every bullet directive in body
func (g *Grammar) directiveIndexes(body string) []int {
	var idx []int
	offset := 0
	for {
		i := strings.Index(body[offset:], g.BulletDirective)
		if i < 0 {
			return idx
		}
		at := offset + i
		end := at + len(g.BulletDirective)
		if end >= len(body) || !isLetter(body[end]) {
			idx = append(idx, at)
		}
		offset = end
	}
}

// renderBullet writes one bullet directive for escaped text
func (g *Grammar) renderBullet(text string) string {
	if g.Grouped {
		return g.BulletDirective + "{" + text + "}"
	}
	if g.CategoryLabels {
		if end, ok := categoryLabelEnd(text); ok {
			return fmt.Sprintf(`%s \textbf{%s}%s`, g.BulletDirective, text[:end], text[end:])
		}
	}
	return g.BulletDirective + " " + text
}

// categoryLabelEnd returns the offset just past the colon of a leading "Label:"
func categoryLabelEnd(text string) (int, bool) {
	i := strings.Index(text, ":")
	if i <= 0 || i > 40 {
		return 0, false
	}
	if strings.ContainsAny(text[:i], ",;") {
		return 0, false
	}
	return i + 1, true
}

// CategoryLabel returns the "Label" of a skills line such as "Languages: Python, Go"
func CategoryLabel(text string) (string, bool) {
	end, ok := categoryLabelEnd(text)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(text[:end-1]), true
}
