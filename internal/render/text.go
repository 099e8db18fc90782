package render

import (
	"html"
	"regexp"
	"strings"
)

// escapedNewline is the two-character sequence backslash + n that upstream
// text generators leave in place of real line breaks.
const escapedNewline = `\n`

const boldMarker = "**"

var (
	// A bullet starts at the beginning of the text or of a line: optional
	// indentation, a dash, then whitespace.
	bulletSplitRe = regexp.MustCompile(`(?:^|\n)[ \t]*-[ \t]+`)

	ordinalHeaderRe = regexp.MustCompile(`^\s*\d+\.[ \t]*[^\n:]*:[ \t]*`)
	bareOrdinalRe   = regexp.MustCompile(`^\s*\d+\.[ \t]+`)
	ruleLineRe      = regexp.MustCompile(`(?m)^[ \t]*(?:-{3,}|\*{3,}|_{3,})[ \t]*$`)
)

// normalizeNewlines turns CRLF, CR and escaped newlines into "\n".
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.ReplaceAll(s, escapedNewline, "\n")
}

func stripBold(s string) string {
	return strings.ReplaceAll(s, boldMarker, "")
}

// stripOrdinalHeader removes a leading "1. Title:" header, or a bare "1. ".
func stripOrdinalHeader(s string) string {
	if loc := ordinalHeaderRe.FindStringIndex(s); loc != nil {
		return s[loc[1]:]
	}
	if loc := bareOrdinalRe.FindStringIndex(s); loc != nil {
		return s[loc[1]:]
	}
	return s
}

func stripRules(s string) string {
	return ruleLineRe.ReplaceAllString(s, "")
}

// splitBullets splits on the bullet delimiter and drops blank fragments.
func splitBullets(s string) []string {
	parts := bulletSplitRe.Split(s, -1)
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

// textHTML escapes s and turns its line breaks into <br>.
func textHTML(s string) string {
	return strings.ReplaceAll(html.EscapeString(strings.TrimSpace(s)), "\n", "<br>")
}

func paragraph(s string) string {
	return "<p>" + textHTML(s) + "</p>"
}

func unorderedList(items []string) string {
	var b strings.Builder
	b.WriteString("<ul>")
	for _, item := range items {
		b.WriteString("<li>")
		b.WriteString(textHTML(item))
		b.WriteString("</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}

func placeholder(msg string) string {
	return "<p>" + msg + "</p>"
}
