package render

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"vidpulse/internal/core"
)

// NoDetail is the body used when a strategy has nothing worth showing.
const NoDetail = "<p>No detailed strategy information available.</p>"

const trailerMarker = "This strategy balances"

// suppressPhrases mark a rendered section as placeholder-only.
var suppressPhrases = []string{"no information provided", "not specified", "no specific"}

var (
	brRunRe          = regexp.MustCompile(`(?:<br\s*/?>\s*){2,}`)
	emptyParagraphRe = regexp.MustCompile(`<p>\s*</p>`)
)

// Renderer turns one raw strategy field into an HTML fragment. It never
// returns an empty string.
type Renderer func(content any) string

// Section describes one slot of the strategy document.
type Section struct {
	Title  string
	Key    string
	Render Renderer
	// Empty is the renderer's own fragment for a field with nothing to show.
	Empty string
}

func listSection(title, key string) Section {
	return Section{
		Title:  title,
		Key:    key,
		Render: func(content any) string { return RenderList(content, title) },
		Empty:  emptyList(title),
	}
}

// Sections returns the document sections in display order.
func Sections() []Section {
	return []Section{
		listSection("Observations", core.KeyObservations),
		listSection("Key Takeaways", core.KeyKeyTakeaways),
		{Title: "Sample Script", Key: core.KeySampleScript, Render: RenderScript},
		listSection("Technical Specifications", core.KeyTechnicalSpecifications),
		{Title: "Content Themes", Key: core.KeyContentThemes, Render: RenderThemes},
		{Title: "Hashtag Strategy", Key: core.KeyHashtagStrategy, Render: RenderHashtags},
		listSection("Posting Frequency", core.KeyPostingFrequency),
	}
}

// Registry maps each section key to its renderer.
var Registry = func() map[string]Renderer {
	m := make(map[string]Renderer)
	for _, s := range Sections() {
		m[s.Key] = s.Render
	}
	return m
}()

// Assemble renders doc into the HTML body that sits under the strategy title.
func Assemble(doc core.StrategyDocument) string {
	if len(doc) == 0 {
		return NoDetail
	}

	var b strings.Builder
	for _, s := range Sections() {
		content, ok := sectionContent(doc, s.Key)
		if !ok {
			continue
		}
		fragment := s.Render(content)
		if fragment == s.Empty || isPlaceholder(fragment) {
			continue
		}
		b.WriteString("<h3>" + s.Title + "</h3>")
		b.WriteString(fragment)
	}

	body := b.String()
	if body == "" {
		body = NoDetail
	}
	return Cleanup(body + trailer(doc))
}

// Cleanup normalizes line breaks in a single pass. Alternating break and
// empty-paragraph runs can leave a double <br> behind.
func Cleanup(s string) string {
	s = strings.ReplaceAll(s, escapedNewline, "<br>")
	s = brRunRe.ReplaceAllString(s, "<br>")
	return emptyParagraphRe.ReplaceAllString(s, "")
}

func sectionContent(doc core.StrategyDocument, key string) (any, bool) {
	v, ok := doc[key]
	if (!ok || !present(v)) && key == core.KeyObservations {
		v, ok = doc[core.KeyRawContent]
	}
	if !ok || !present(v) {
		return nil, false
	}
	return v, true
}

func present(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) != ""
	case []string:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return false
	}
}

func isPlaceholder(fragment string) bool {
	text := fragment
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment)); err == nil {
		text = doc.Text()
	}
	text = strings.ToLower(text)
	for _, phrase := range suppressPhrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}

func trailer(doc core.StrategyDocument) string {
	freq, ok := doc[core.KeyPostingFrequency].(string)
	if !ok {
		return ""
	}
	idx := strings.Index(freq, trailerMarker)
	if idx < 0 {
		return ""
	}

	sentence := stripBold(freq[idx:])
	sentence = strings.NewReplacer(escapedNewline, " ", "\r\n", " ", "\n", " ", "\r", " ").Replace(sentence)
	return "<p>" + html.EscapeString(strings.TrimSpace(sentence)) + "</p>"
}
