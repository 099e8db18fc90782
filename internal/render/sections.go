package render

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

const notSpecified = "Not specified."

var (
	visualCuesLabelRe = regexp.MustCompile(`(?i)visual cues:`)
	voiceoverLabelRe  = regexp.MustCompile(`(?i)voiceover/script:`)

	quoteArtifactRe = regexp.MustCompile(`\*+"|"\*+`)
	themeMarkerRe   = regexp.MustCompile(`^\s*(?:\d+\.|[-*•])\s+`)
	bareOrdinalOnly = regexp.MustCompile(`^\d+\.$`)
)

// RenderList renders a bulleted text field as a <ul>, or as a single
// paragraph when the text is not itemized.
func RenderList(content any, label string) string {
	empty := emptyList(label)

	text, ok := content.(string)
	if !ok || strings.TrimSpace(text) == "" {
		return empty
	}

	cleaned := normalizeNewlines(stripBold(text))
	cleaned = stripOrdinalHeader(cleaned)
	cleaned = strings.TrimSpace(stripRules(cleaned))
	if cleaned == "" {
		return empty
	}

	items := splitBullets(cleaned)
	if len(items) <= 1 {
		return paragraph(cleaned)
	}
	return unorderedList(items)
}

// emptyList is the fragment RenderList produces when label's field has no
// items left after cleaning.
func emptyList(label string) string {
	return placeholder("No " + strings.ToLower(label) + " provided.")
}

// RenderScript renders the "Visual Cues:" and "Voiceover/Script:" parts of a
// sample script, each under its own heading.
func RenderScript(content any) string {
	text, _ := content.(string)
	text = normalizeNewlines(stripBold(text))

	visual := labeledRegion(text, visualCuesLabelRe, voiceoverLabelRe)
	voiceover := labeledRegion(text, voiceoverLabelRe, visualCuesLabelRe)

	var b strings.Builder
	b.WriteString("<h4>Visual Cues</h4>")
	if items := splitBullets(visual); len(items) > 0 {
		b.WriteString(unorderedList(items))
	} else {
		b.WriteString(placeholder(notSpecified))
	}

	b.WriteString("<h4>Voiceover/Script</h4>")
	voiceover = strings.Trim(quoteArtifactRe.ReplaceAllString(voiceover, `"`), " \t\n*-")
	if voiceover != "" {
		b.WriteString(paragraph(voiceover))
	} else {
		b.WriteString(placeholder(notSpecified))
	}
	return b.String()
}

// labeledRegion returns the trimmed text after label up to the other label
// (when it follows) or the end of text.
func labeledRegion(text string, label, other *regexp.Regexp) string {
	loc := label.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	start := loc[1]
	end := len(text)
	if next := other.FindStringIndex(text[start:]); next != nil {
		end = start + next[0]
	}
	return strings.TrimSpace(text[start:end])
}

// RenderThemes renders content themes given as a list, a JSON array string,
// or bulleted text.
func RenderThemes(content any) string {
	var candidates []string
	switch v := content.(type) {
	case []string:
		candidates = v
	case []any:
		candidates = cast.ToStringSlice(v)
	case string:
		candidates = parseThemeText(v)
	}

	themes := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" || c == "*" || c == "--" || bareOrdinalOnly.MatchString(c) {
			continue
		}
		themes = append(themes, c)
	}

	if len(themes) == 0 {
		return placeholder("No specific themes provided.")
	}
	return unorderedList(themes)
}

func parseThemeText(s string) []string {
	var arr []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &arr); err == nil {
		return arr
	}

	parts := splitBullets(normalizeNewlines(s))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = stripBold(p)
		p = themeMarkerRe.ReplaceAllString(p, "")
		out = append(out, p)
	}
	return out
}
