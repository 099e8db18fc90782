package render

import (
	"regexp"
	"strings"
)

type hashtagLabel struct {
	heading string
	re      *regexp.Regexp
}

var hashtagLabels = []hashtagLabel{
	newHashtagLabel("Primary (Niche):"),
	newHashtagLabel("Secondary (Trending/Regional):"),
	newHashtagLabel("Broad Appeal:"),
}

// A bullet line is a dash followed by anything but another dash, so rule
// markers like "---" never count as items.
var hashtagBulletRe = regexp.MustCompile(`^\s*-(?:\s+|[^-\s])`)

func newHashtagLabel(label string) hashtagLabel {
	return hashtagLabel{
		heading: strings.TrimSuffix(label, ":"),
		re:      regexp.MustCompile(`(?i)` + regexp.QuoteMeta(label)),
	}
}

type hashtagState int

const (
	stateNoSection hashtagState = iota
	stateInSection
)

// hashtagMachine walks hashtag strategy text line by line, grouping bullets
// under the most recent label.
type hashtagMachine struct {
	state    hashtagState
	heading  string
	items    []string
	sawLabel bool
	out      strings.Builder
}

func (m *hashtagMachine) onLabel(heading, rest string) {
	m.flush()
	m.state = stateInSection
	m.heading = heading
	m.sawLabel = true
	if item := bulletText(rest); item != "" {
		m.items = append(m.items, item)
	}
}

func (m *hashtagMachine) onBullet(line string) {
	if m.state != stateInSection {
		return
	}
	if item := bulletText(line); item != "" {
		m.items = append(m.items, item)
	}
}

func (m *hashtagMachine) flush() {
	if m.state != stateInSection {
		return
	}
	m.out.WriteString("<h4>" + m.heading + "</h4>")
	if len(m.items) == 0 {
		m.out.WriteString(placeholder("No specific hashtags listed."))
	} else {
		m.out.WriteString(unorderedList(m.items))
	}
	m.state = stateNoSection
	m.heading = ""
	m.items = nil
}

func (m *hashtagMachine) result() string {
	m.flush()
	if !m.sawLabel {
		return placeholder("No hashtag strategy provided.")
	}
	return m.out.String()
}

// RenderHashtags renders a hashtag strategy grouped by its Primary,
// Secondary and Broad Appeal labels.
func RenderHashtags(content any) string {
	text, _ := content.(string)
	text = normalizeNewlines(stripBold(text))

	var m hashtagMachine
	for _, line := range strings.Split(text, "\n") {
		if heading, rest, ok := matchHashtagLabel(line); ok {
			m.onLabel(heading, rest)
			continue
		}
		if hashtagBulletRe.MatchString(line) {
			m.onBullet(line)
		}
	}
	return m.result()
}

func matchHashtagLabel(line string) (heading, rest string, ok bool) {
	for _, l := range hashtagLabels {
		if loc := l.re.FindStringIndex(line); loc != nil {
			return l.heading, line[loc[1]:], true
		}
	}
	return "", "", false
}

func bulletText(s string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(s), "-"))
}
