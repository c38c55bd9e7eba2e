package rendering

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jonathan/section-tailor/internal/types"
)

var experienceHeading = regexp.MustCompile(`(?i)\\section\*?\{\s*(?:Professional Experience|Work Experience|Experience|Projects)\s*\}`)

// locateSection returns the byte range of the kind's section inside a full document.
// Summary and Skills run from their \section line to the end of the list-end marker;
// Experience is the first entry after the experience heading.
func locateSection(doc string, kind types.SectionKind) (int, int, error) {
	g, err := GrammarFor(kind)
	if err != nil {
		return 0, 0, err
	}

	searchFrom := 0
	if kind == types.KindExperience {
		loc := experienceHeading.FindStringIndex(doc)
		if loc == nil {
			return 0, 0, &ParseError{Kind: kind, Marker: `\section{Professional Experience}`, Message: "experience heading not found in document"}
		}
		searchFrom = loc[1]
	}

	loc := g.delimiterPattern().FindStringIndex(doc[searchFrom:])
	if loc == nil {
		return 0, 0, &ParseError{Kind: kind, Marker: g.delimiterName(), Message: "section delimiter not found in document"}
	}
	start := searchFrom + loc[0]

	endRel := strings.Index(doc[start:], g.ListEnd)
	if endRel < 0 {
		return 0, 0, &ParseError{Kind: kind, Marker: g.ListEnd, Message: "list end marker not found in document"}
	}
	return start, start + endRel + len(g.ListEnd), nil
}

// ExtractSection returns the markup of the kind's section from a full document
func ExtractSection(doc string, kind types.SectionKind) (string, error) {
	start, end, err := locateSection(doc, kind)
	if err != nil {
		return "", err
	}
	return doc[start:end], nil
}

// ReplaceSection splices markup in place of the kind's section
func ReplaceSection(doc string, kind types.SectionKind, markup string) (string, error) {
	start, end, err := locateSection(doc, kind)
	if err != nil {
		return "", err
	}
	return doc[:start] + markup + doc[end:], nil
}

// CheckDocumentStructure verifies the markers every compilable document needs
func CheckDocumentStructure(doc string) error {
	var missing []string
	for _, marker := range []string{`\documentclass`, `\begin{document}`, `\end{document}`} {
		if !strings.Contains(doc, marker) {
			missing = append(missing, marker)
		}
	}
	if len(missing) > 0 {
		return &ParseError{
			Marker:  strings.Join(missing, ", "),
			Message: fmt.Sprintf("document is missing %d required marker(s)", len(missing)),
		}
	}
	return nil
}
