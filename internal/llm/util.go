package llm

import "strings"

// CleanJSONBlock removes markdown code block wrappers and any conversational
// text around a JSON object or array.
// LLMs often wrap JSON in ```json ... ``` blocks even when instructed not to.
func CleanJSONBlock(text string) string {
	text = stripCodeFence(text)

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	var extracted string
	if text[start] == '{' {
		extracted = extractJSONObject(text[start:])
	} else {
		extracted = extractJSONArray(text[start:])
	}
	if extracted == "" {
		return text
	}
	return extracted
}

// latexStarts are the directives a generated section may begin with.
var latexStarts = []string{`\section`, `\begin`, `\item`, `\resumeSubheading`, `\resumeProjectHeading`}

// CleanLaTeXBlock strips code fences and any prose before the first markup directive.
func CleanLaTeXBlock(text string) string {
	text = stripCodeFence(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, prefix := range latexStarts {
			if strings.HasPrefix(trimmed, prefix) {
				return strings.TrimSpace(strings.Join(lines[i:], "\n"))
			}
		}
	}
	return text
}

// stripCodeFence removes one ``` fenced block wrapper, including a language
// identifier on the opening line. Text before the fence is dropped.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	open := strings.Index(text, "```")
	if open < 0 {
		return text
	}
	body := text[open+3:]
	if idx := strings.Index(body, "\n"); idx >= 0 {
		firstLine := body[:idx]
		// A language identifier is short and has no spaces or braces
		if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {[\\") {
			body = body[idx+1:]
		}
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func extractJSONObject(text string) string {
	return extractBalanced(text, '{', '}')
}

func extractJSONArray(text string) string {
	return extractBalanced(text, '[', ']')
}

// extractBalanced returns the prefix of text spanning one balanced open/close
// pair, skipping delimiters inside JSON strings.
func extractBalanced(text string, open, closing byte) string {
	if text == "" || text[0] != open {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return text[:i+1]
			}
		}
	}
	return ""
}
