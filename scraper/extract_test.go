package scraper

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const extractHTML = `
<html><body>
  <article class="item">
    <h2 class="title"><a href="/stiri/axpo-1" data-slug="axpo">  AXPO   Energy preia clienti  </a></h2>
    <span class="date">acum 5 minute</span>
    <span class="tag" data-label="Energie regenerabila">en</span>
    <img src="/img.jpg">
  </article>
</body></html>`

// Test helper: the first article element of a document
func firstArticle(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	el := doc.Find("article").First()
	require.Equal(t, 1, el.Length())
	return el
}

// TestParseSelector verifies the path@attr form
func TestParseSelector(t *testing.T) {
	tests := []struct {
		in   string
		want Selector
	}{
		{"h2.title a", Selector{Path: "h2.title a"}},
		{"h2.title a@href", Selector{Path: "h2.title a", Attr: "href"}},
		{"@href", Selector{Attr: "href"}},
		{"time@datetime", Selector{Path: "time", Attr: "datetime"}},
		{"a[href*='@']", Selector{Path: "a[href*='@']"}},
		{"a[data-x='a@b']@href", Selector{Path: "a[data-x='a@b']", Attr: "href"}},
		{"a@", Selector{Path: "a@"}},
		{"  span.date  ", Selector{Path: "span.date"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseSelector(tt.in)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestSelector_String verifies text form round trip
func TestSelector_String(t *testing.T) {
	for _, s := range []string{"h2 a@href", "span.date", "@data-id"} {
		assert.Equal(t, s, ParseSelector(s).String())
	}
}

// TestExtract_Text verifies trimmed, whitespace-normalized text
func TestExtract_Text(t *testing.T) {
	el := firstArticle(t, extractHTML)

	f := Extract(el, TextSelector("h2.title a"))
	assert.True(t, f.Found)
	assert.Equal(t, "AXPO Energy preia clienti", f.Value)
}

// TestExtract_LinkAttributeStaysExact verifies href is never replaced by text
func TestExtract_LinkAttributeStaysExact(t *testing.T) {
	el := firstArticle(t, extractHTML)

	f := Extract(el, AttributeSelector("h2.title a", "href"))
	assert.True(t, f.Found)
	assert.Equal(t, "/stiri/axpo-1", f.Value)
}

// TestExtract_LongerTextWins verifies the text is preferred over a shorter slug
func TestExtract_LongerTextWins(t *testing.T) {
	el := firstArticle(t, extractHTML)

	f := Extract(el, AttributeSelector("h2.title a", "data-slug"))
	assert.Equal(t, Found("AXPO Energy preia clienti"), f)
}

// TestExtract_LongerAttributeWins verifies the attribute is kept when richer
func TestExtract_LongerAttributeWins(t *testing.T) {
	el := firstArticle(t, extractHTML)

	f := Extract(el, AttributeSelector("span.tag", "data-label"))
	assert.Equal(t, Found("Energie regenerabila"), f)
}

// TestExtract_NotFound verifies missing elements and attributes
func TestExtract_NotFound(t *testing.T) {
	el := firstArticle(t, extractHTML)

	tests := []struct {
		name string
		sel  Selector
	}{
		{"missing element", TextSelector("h3.none")},
		{"missing href on empty element", AttributeSelector("img", "href")},
		{"missing attribute on element with text", AttributeSelector("h2.title", "data-id")},
		{"missing attribute on the element itself", AttributeSelector("", "data-sponsored")},
		{"malformed css", TextSelector("h2[")},
		{"zero selector", Selector{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, NotFound, Extract(el, tt.sel))
		})
	}
}

// TestExtract_ElementItself verifies an empty path targets the element
func TestExtract_ElementItself(t *testing.T) {
	el := firstArticle(t, `<article data-id="42"><p>x</p></article>`)

	assert.Equal(t, Found("42"), Extract(el, AttributeSelector("", "data-id")))
}

// TestExtract_NilElement verifies a nil selection is absent
func TestExtract_NilElement(t *testing.T) {
	assert.Equal(t, NotFound, Extract(nil, TextSelector("a")))
}

// TestPreferText verifies the attribute-vs-text policy
func TestPreferText(t *testing.T) {
	tests := []struct {
		text, attr, name string
		want             bool
	}{
		{"Long readable title", "slug", "data-slug", true},
		{"short", "much longer attribute", "title", false},
		{"same", "four", "title", false},
		{"A very long link text", "/a", "href", false},
		{"A very long link text", "/a", "HREF", false},
		{"ăîșțâ", "abcd", "title", true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PreferText(tt.text, tt.attr, tt.name), "%q vs %q (%s)", tt.text, tt.attr, tt.name)
	}
}

// TestExcluded verifies the exclusion selector
func TestExcluded(t *testing.T) {
	el := firstArticle(t, extractHTML)
	rule := &SourceRule{}

	assert.False(t, Excluded(el, rule), "no exclusion selector")

	sel := TextSelector("span.tag")
	rule.Exclude = &sel
	assert.True(t, Excluded(el, rule))

	missing := TextSelector(".sponsored")
	rule.Exclude = &missing
	assert.False(t, Excluded(el, rule))

	// Attribute forms exclude only elements carrying the attribute
	attr := ParseSelector("@data-sponsored")
	rule.Exclude = &attr
	assert.False(t, Excluded(el, rule))

	tagged := ParseSelector("span.tag@data-label")
	rule.Exclude = &tagged
	assert.True(t, Excluded(el, rule))
}

// TestResolveLink verifies relative links become absolute
func TestResolveLink(t *testing.T) {
	base, err := url.Parse("https://www.digi24.ro/cautare?q=axpo")
	require.NoError(t, err)

	assert.Equal(t, "https://www.digi24.ro/stiri/axpo-1", ResolveLink(base, "/stiri/axpo-1"))
	assert.Equal(t, "https://other.ro/a", ResolveLink(base, "https://other.ro/a"))
	assert.Equal(t, "/x", ResolveLink(nil, "/x"))
	assert.Equal(t, "", ResolveLink(base, "  "))
}
