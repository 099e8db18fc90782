package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderList(t *testing.T) {
	tests := []struct {
		name    string
		content any
		label   string
		want    string
	}{
		{"bullets", "- a\n- b", "X", "<ul><li>a</li><li>b</li></ul>"},
		{"escaped newlines", `- a\n- b`, "X", "<ul><li>a</li><li>b</li></ul>"},
		{"crlf", "- a\r\n- b", "X", "<ul><li>a</li><li>b</li></ul>"},
		{"empty", "", "X", "<p>No x provided.</p>"},
		{"blank", "  \n ", "Key Takeaways", "<p>No key takeaways provided.</p>"},
		{"not a string", 42, "Key Takeaways", "<p>No key takeaways provided.</p>"},
		{"nil", nil, "Observations", "<p>No observations provided.</p>"},
		{
			"ordinal header bold and rule",
			"1. Observations:\n- **Short** videos win\n- Hooks matter\n---",
			"Observations",
			"<ul><li>Short videos win</li><li>Hooks matter</li></ul>",
		},
		{"bare ordinal", "2. - x\n- y", "X", "<ul><li>x</li><li>y</li></ul>"},
		{
			"not itemized",
			"Post daily.\nAt noon & night",
			"Posting Frequency",
			"<p>Post daily.<br>At noon &amp; night</p>",
		},
		{"only a rule", "---", "X", "<p>No x provided.</p>"},
		{"escapes markup", "- <b>bold</b>\n- ok", "X", "<ul><li>&lt;b&gt;bold&lt;/b&gt;</li><li>ok</li></ul>"},
		{"hyphenated words", "- well-known\n- long-form", "X", "<ul><li>well-known</li><li>long-form</li></ul>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderList(tt.content, tt.label))
		})
	}
}

func TestRenderScript(t *testing.T) {
	content := "**Visual Cues:**\n- Close-up of product\n- Text overlay\n**Voiceover/Script:** *\"Stop scrolling!\"*"
	want := "<h4>Visual Cues</h4><ul><li>Close-up of product</li><li>Text overlay</li></ul>" +
		"<h4>Voiceover/Script</h4><p>&#34;Stop scrolling!&#34;</p>"
	assert.Equal(t, want, RenderScript(content))
}

func TestRenderScriptLabelsAnyOrderAndCase(t *testing.T) {
	content := "VOICEOVER/SCRIPT: Hello there\nvisual cues: - Wide shot"
	want := "<h4>Visual Cues</h4><ul><li>Wide shot</li></ul>" +
		"<h4>Voiceover/Script</h4><p>Hello there</p>"
	assert.Equal(t, want, RenderScript(content))
}

func TestRenderScriptMissingRegions(t *testing.T) {
	want := "<h4>Visual Cues</h4><p>Not specified.</p><h4>Voiceover/Script</h4><p>Not specified.</p>"
	assert.Equal(t, want, RenderScript(nil))
	assert.Equal(t, want, RenderScript("just some text"))
	assert.Equal(t, want, RenderScript([]string{"Visual Cues: x"}))
}

func TestRenderThemes(t *testing.T) {
	tests := []struct {
		name    string
		content any
		want    string
	}{
		{"json array", `["Theme A","Theme B"]`, "<ul><li>Theme A</li><li>Theme B</li></ul>"},
		{"string slice", []string{"A", " ", "B"}, "<ul><li>A</li><li>B</li></ul>"},
		{"decoded json slice", []any{"A", "", "*", "--", "3."}, "<ul><li>A</li></ul>"},
		{
			"bulleted text",
			"1. **Behind the scenes**\n- 2. Tutorials\n- --\n- 3.\n- * Customer stories",
			"<ul><li>Behind the scenes</li><li>Tutorials</li><li>Customer stories</li></ul>",
		},
		{"empty json", "[]", "<p>No specific themes provided.</p>"},
		{"nil", nil, "<p>No specific themes provided.</p>"},
		{"number", 7, "<p>No specific themes provided.</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderThemes(tt.content))
		})
	}
}

func TestRenderHashtags(t *testing.T) {
	content := "**Primary (Niche):** #coffeelover\n" +
		"- #latteart\n" +
		"- #baristalife\n" +
		"(e.g. local shops)\n" +
		"Secondary (Trending/Regional):\n" +
		"---\n" +
		"Broad Appeal:\n" +
		"- #foodie"

	want := "<h4>Primary (Niche)</h4><ul><li>#coffeelover</li><li>#latteart</li><li>#baristalife</li></ul>" +
		"<h4>Secondary (Trending/Regional)</h4><p>No specific hashtags listed.</p>" +
		"<h4>Broad Appeal</h4><ul><li>#foodie</li></ul>"
	assert.Equal(t, want, RenderHashtags(content))
}

func TestRenderHashtagsIgnoresBulletsBeforeFirstLabel(t *testing.T) {
	content := `- #stray\n1.\n- primary (niche): - #a`
	assert.Equal(t, "<h4>Primary (Niche)</h4><ul><li>#a</li></ul>", RenderHashtags(content))
}

func TestRenderHashtagsWithoutLabels(t *testing.T) {
	assert.Equal(t, "<p>No hashtag strategy provided.</p>", RenderHashtags("no labels here"))
	assert.Equal(t, "<p>No hashtag strategy provided.</p>", RenderHashtags(nil))
}

func TestRenderersAreIdempotent(t *testing.T) {
	inputs := []any{"- a\n- b", `["x"]`, "Primary (Niche): #a", "Visual Cues: - x Voiceover/Script: y", nil, 3}
	for key, render := range Registry {
		for _, in := range inputs {
			assert.Equal(t, render(in), render(in), "renderer %s", key)
			assert.NotEmpty(t, render(in), "renderer %s", key)
		}
	}
}
