// Package rendering provides the LaTeX section model: escaping, section grammars,
// parsing sections into bullets and rendering them back.
package rendering

import (
	"strings"
	"unicode"
)

// SpecialChars are the characters that must never appear unescaped in bullet text
const SpecialChars = `%$&_{}#^~`

func isSpecial(r rune) bool {
	return strings.ContainsRune(SpecialChars, r)
}

// EscapeLaTeX escapes special LaTeX characters in text.
// Already-escaped sequences (\%, \^{}, \textbackslash{}, ...) are copied unchanged,
// so EscapeLaTeX(EscapeLaTeX(s)) == EscapeLaTeX(s).
func EscapeLaTeX(text string) string {
	if text == "" {
		return ""
	}

	runes := []rune(text)
	var result strings.Builder
	result.Grow(len(text) * 2) // Pre-allocate space for potential escaping

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\\':
			i = copyEscapeSequence(&result, runes, i)
		case r == '^':
			result.WriteString(`\^{}`)
		case r == '~':
			result.WriteString(`\~{}`)
		case isSpecial(r):
			result.WriteRune('\\')
			result.WriteRune(r)
		default:
			result.WriteRune(r)
		}
	}

	return result.String()
}

// copyEscapeSequence writes the sequence starting at the backslash runes[i]
// and returns the index of its last rune
func copyEscapeSequence(out *strings.Builder, runes []rune, i int) int {
	if i+1 >= len(runes) {
		out.WriteString(`\textbackslash{}`)
		return i
	}
	next := runes[i+1]
	switch {
	case next == '^' || next == '~':
		out.WriteRune('\\')
		out.WriteRune(next)
		out.WriteString("{}")
		if hasEmptyGroup(runes, i+2) {
			return i + 3
		}
		return i + 1
	case isSpecial(next) || next == '\\':
		out.WriteRune('\\')
		out.WriteRune(next)
		return i + 1
	case unicode.IsLetter(next):
		j := i + 1
		for j < len(runes) && unicode.IsLetter(runes[j]) {
			j++
		}
		out.WriteString(string(runes[i:j]))
		if hasEmptyGroup(runes, j) {
			out.WriteString("{}")
			return j + 1
		}
		return j - 1
	default:
		out.WriteString(`\textbackslash{}`)
		return i
	}
}

func hasEmptyGroup(runes []rune, at int) bool {
	return at+1 < len(runes) && runes[at] == '{' && runes[at+1] == '}'
}

// UnescapedSpecials returns the special characters that occur unescaped in text, in order of appearance
func UnescapedSpecials(text string) []string {
	runes := []rune(text)
	var found []string
	seen := make(map[rune]bool)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' {
			i++
			continue
		}
		if isSpecial(r) && r != '{' && r != '}' && !seen[r] {
			seen[r] = true
			found = append(found, string(r))
		}
	}
	return found
}

// Unescape converts escaped bullet text back to plain text for keyword and word matching
func Unescape(text string) string {
	runes := []rune(text)
	var result strings.Builder
	result.Grow(len(text))

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '{' || r == '}':
			continue
		case r != '\\' || i+1 >= len(runes):
			result.WriteRune(r)
		case runes[i+1] == '\\':
			result.WriteRune(' ')
			i++
		case isSpecial(runes[i+1]):
			result.WriteRune(runes[i+1])
			if (runes[i+1] == '^' || runes[i+1] == '~') && hasEmptyGroup(runes, i+2) {
				i += 2
			}
			i++
		case unicode.IsLetter(runes[i+1]):
			j := i + 1
			for j < len(runes) && unicode.IsLetter(runes[j]) {
				j++
			}
			switch string(runes[i+1 : j]) {
			case "textbackslash":
				result.WriteRune('\\')
			case "textasciitilde":
				result.WriteRune('~')
			case "textasciicircum":
				result.WriteRune('^')
			}
			if hasEmptyGroup(runes, j) {
				j += 2
			}
			i = j - 1
		default:
			result.WriteRune(runes[i+1])
			i++
		}
	}

	return result.String()
}
