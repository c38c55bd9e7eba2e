package rendering

import (
	"strings"
)

// inlineCommands are unwrapped to their last argument when bullet text is parsed.
// The value is the number of leading arguments to discard. A \href keeps only its
// link text; the URL does not survive a render.
var inlineCommands = map[string]int{
	`\textbf`:    0,
	`\textit`:    0,
	`\emph`:      0,
	`\underline`: 0,
	`\texttt`:    0,
	`\textsc`:    0,
	`\textcolor`: 1,
	`\href`:      1,
}

// checkBalanced reports the byte offset of the first unbalanced brace, or -1.
// Escaped braces do not count.
func checkBalanced(text string) int {
	depth := 0
	opened := -1
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '{':
			if depth == 0 {
				opened = i
			}
			depth++
		case '}':
			depth--
			if depth < 0 {
				return i
			}
		}
	}
	if depth != 0 {
		return opened
	}
	return -1
}

// readGroup returns the content of the balanced group opening at text[start] == '{'
// and the offset just past its closing brace
func readGroup(text string, start int) (string, int, bool) {
	if start >= len(text) || text[start] != '{' {
		return "", start, false
	}
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start+1 : i], i + 1, true
			}
		}
	}
	return "", start, false
}

// stripFormatting unwraps inline formatting commands and drops bare grouping braces.
// Text must already be balanced.
func stripFormatting(text string) string {
	var out strings.Builder
	for i := 0; i < len(text); {
		if text[i] == '\\' {
			if cmd, skip, ok := matchInlineCommand(text, i); ok {
				pos := i + len(cmd)
				for n := 0; n < skip; n++ {
					_, next, found := readGroup(text, skipSpaces(text, pos))
					if !found {
						break
					}
					pos = next
				}
				inner, next, found := readGroup(text, skipSpaces(text, pos))
				if found {
					out.WriteString(stripFormatting(inner))
					i = next
					continue
				}
			}
			// keep escape sequences and other commands intact, including a trailing {}
			j := i + 1
			for j < len(text) && isLetter(text[j]) {
				j++
			}
			if j == i+1 && j < len(text) {
				j++
			}
			if strings.HasPrefix(text[j:], "{}") {
				j += 2
			}
			out.WriteString(text[i:j])
			i = j
			continue
		}
		if text[i] == '{' || text[i] == '}' {
			i++
			continue
		}
		out.WriteByte(text[i])
		i++
	}
	return out.String()
}

func matchInlineCommand(text string, at int) (string, int, bool) {
	for cmd, skip := range inlineCommands {
		if !strings.HasPrefix(text[at:], cmd) {
			continue
		}
		end := at + len(cmd)
		if end < len(text) && isLetter(text[end]) {
			continue
		}
		return cmd, skip, true
	}
	return "", 0, false
}

func skipSpaces(text string, at int) int {
	for at < len(text) && (text[at] == ' ' || text[at] == '\t') {
		at++
	}
	return at
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// dropCommentLines removes lines whose first non-blank character is an unescaped %
func dropCommentLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "%") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// normalizeBulletText turns raw bullet markup into escaped, single-spaced bullet text
func normalizeBulletText(raw string) string {
	text := stripFormatting(dropCommentLines(raw))
	text = strings.Join(strings.Fields(text), " ")
	return EscapeLaTeX(text)
}
