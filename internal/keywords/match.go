package keywords

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Contains reports whether term occurs in text as a whole token, ignoring case.
// "go" matches "Go, Python" but not "Google".
func Contains(text, term string) bool {
	folder := cases.Fold()
	return containsFolded(folder.String(text), folder.String(strings.TrimSpace(term)))
}

// Matched returns the terms found in text, in the order given
func Matched(text string, terms []string) []string {
	folder := cases.Fold()
	folded := folder.String(text)
	var out []string
	for _, term := range terms {
		if containsFolded(folded, folder.String(strings.TrimSpace(term))) {
			out = append(out, term)
		}
	}
	return out
}

// Coverage returns the fraction of terms present in text
func Coverage(text string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	return float64(len(Matched(text, terms))) / float64(len(terms))
}

func containsFolded(text, term string) bool {
	if term == "" {
		return false
	}
	offset := 0
	for {
		idx := strings.Index(text[offset:], term)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(term)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
}

func boundaryBefore(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return !isWordRune(r)
}

func boundaryAfter(text string, pos int) bool {
	if pos >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[pos:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
