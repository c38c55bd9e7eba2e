package rendering

import (
	"fmt"
	"strings"

	"github.com/jonathan/section-tailor/internal/types"
)

// ParseSection parses raw markup of the given kind into a Section.
// It fails with *ParseError when the section delimiter, the list-start marker or the
// list-end marker cannot be located, or when a bullet's braces are unbalanced.
func ParseSection(raw string, kind types.SectionKind) (*types.Section, error) {
	g, err := GrammarFor(kind)
	if err != nil {
		return nil, err
	}

	loc := g.delimiterPattern().FindStringIndex(raw)
	if loc == nil {
		return nil, &ParseError{Kind: kind, Marker: g.delimiterName(), Message: "section delimiter not found"}
	}

	startLoc := g.listStartPattern().FindStringIndex(raw[loc[0]:])
	if startLoc == nil {
		return nil, &ParseError{Kind: kind, Marker: g.ListStart, Message: "list start marker not found"}
	}
	bodyStart := loc[0] + startLoc[1]

	endRel := strings.Index(raw[bodyStart:], g.ListEnd)
	if endRel < 0 {
		return nil, &ParseError{Kind: kind, Marker: g.ListEnd, Message: "list end marker not found"}
	}
	bodyEnd := bodyStart + endRel

	bullets, indent, err := parseBullets(g, raw[bodyStart:bodyEnd])
	if err != nil {
		return nil, err
	}

	return &types.Section{
		Kind:      kind,
		RawMarkup: raw,
		Bullets:   bullets,
		Preamble:  raw[:bodyStart],
		Postamble: raw[bodyEnd:],
		Indent:    indent,
	}, nil
}

func parseBullets(g *Grammar, body string) ([]types.Bullet, string, error) {
	starts := g.directiveIndexes(body)
	bullets := make([]types.Bullet, 0, len(starts))
	indent := ""
	if len(starts) > 0 {
		indent = lineIndent(body, starts[0])
	}

	for n, at := range starts {
		textStart := at + len(g.BulletDirective)
		var rawText string
		if g.Grouped {
			groupAt := skipSpaces(body, textStart)
			if groupAt >= len(body) || body[groupAt] != '{' {
				return nil, "", &ParseError{
					Kind:    g.Kind,
					Marker:  g.BulletDirective,
					Message: fmt.Sprintf("bullet %d has no {...} argument", n+1),
				}
			}
			inner, _, ok := readGroup(body, groupAt)
			if !ok {
				return nil, "", &ParseError{
					Kind:    g.Kind,
					Marker:  "}",
					Message: fmt.Sprintf("bullet %d has an unterminated group", n+1),
				}
			}
			rawText = inner
		} else {
			textEnd := len(body)
			if n+1 < len(starts) {
				textEnd = starts[n+1]
			}
			rawText = body[textStart:textEnd]
		}

		rawText = dropCommentLines(rawText)
		if pos := checkBalanced(rawText); pos >= 0 {
			return nil, "", &ParseError{
				Kind:    g.Kind,
				Marker:  string(rawText[pos]),
				Message: fmt.Sprintf("bullet %d has unbalanced braces", n+1),
			}
		}
		bullets = append(bullets, types.NewBullet(normalizeBulletText(rawText)))
	}

	return bullets, indent, nil
}

// lineIndent returns the whitespace between the start of the line containing pos and pos
func lineIndent(text string, pos int) string {
	lineStart := strings.LastIndex(text[:pos], "\n") + 1
	prefix := text[lineStart:pos]
	if strings.TrimSpace(prefix) != "" {
		return ""
	}
	return prefix
}

// RenderSection reassembles a section: the preamble verbatim, one bullet directive per
// bullet (text escaped), then the postamble verbatim starting at the list-end marker
func RenderSection(section *types.Section) (string, error) {
	g, err := GrammarFor(section.Kind)
	if err != nil {
		return "", &RenderError{Message: "cannot render section", Cause: err}
	}

	indent := section.Indent
	if indent == "" {
		indent = closingIndent(section.Preamble) + "  "
	}

	var b strings.Builder
	b.WriteString(strings.TrimRight(section.Preamble, " \t\n"))
	b.WriteString("\n")
	for _, bullet := range section.Bullets {
		b.WriteString(indent)
		b.WriteString(g.renderBullet(EscapeLaTeX(bullet.Text)))
		b.WriteString("\n")
	}
	b.WriteString(closingIndent(section.Preamble))
	b.WriteString(section.Postamble)
	return b.String(), nil
}

// closingIndent aligns the list-end marker with the list-start line
func closingIndent(preamble string) string {
	trimmed := strings.TrimRight(preamble, " \t\n")
	lineStart := strings.LastIndex(trimmed, "\n") + 1
	line := trimmed[lineStart:]
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// BuildSection creates a Section of the given kind from plain bullet text,
// reusing template's surrounding markup
func BuildSection(template *types.Section, texts []string) (*types.Section, error) {
	bullets := make([]types.Bullet, len(texts))
	for i, t := range texts {
		bullets[i] = types.NewBullet(EscapeLaTeX(strings.Join(strings.Fields(t), " ")))
	}
	s := &types.Section{
		Kind:      template.Kind,
		Bullets:   bullets,
		Preamble:  template.Preamble,
		Postamble: template.Postamble,
		Indent:    template.Indent,
	}
	raw, err := RenderSection(s)
	if err != nil {
		return nil, err
	}
	s.RawMarkup = raw
	return s, nil
}
