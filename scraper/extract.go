package scraper

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Field is the outcome of extracting one value from an element: either
// Found with a value, or not found.
type Field struct {
	Value string
	Found bool
}

// NotFound is the absent field.
var NotFound = Field{}

// Found wraps an extracted value.
func Found(v string) Field {
	return Field{Value: v, Found: true}
}

// Present reports whether the field was found with a non-empty value.
func (f Field) Present() bool {
	return f.Found && f.Value != ""
}

// Extract pulls the value addressed by s out of the element el. It never
// panics and never errors: an element that doesn't match, an invalid CSS
// path or a missing attribute all yield NotFound.
func Extract(el *goquery.Selection, s Selector) (f Field) {
	defer func() {
		if recover() != nil {
			f = NotFound
		}
	}()

	if el == nil || s.IsZero() {
		return NotFound
	}

	target := el
	if s.Path != "" {
		target = el.Find(s.Path).First()
	}
	if target.Length() == 0 {
		return NotFound
	}

	text := normalizeSpace(target.Text())
	if !s.IsAttr() {
		return Found(text)
	}

	attr, ok := target.Attr(s.Attr)
	if !ok {
		return NotFound
	}
	attr = strings.TrimSpace(attr)
	if PreferText(text, attr, s.Attr) {
		return Found(text)
	}
	return Found(attr)
}

// PreferText decides between an element's text and one of its attribute
// values when a selector targets an attribute the element has. Some markup repeats a
// readable string in the text and a slug in the attribute, so the longer
// text wins, except for the link attribute whose value must stay exact.
func PreferText(text, attrValue, attrName string) bool {
	if strings.EqualFold(attrName, LinkAttr) {
		return false
	}
	return utf8.RuneCountInString(text) > utf8.RuneCountInString(attrValue)
}

// Excluded reports whether the rule's exclusion selector matches el.
func Excluded(el *goquery.Selection, rule *SourceRule) bool {
	if rule.Exclude == nil || rule.Exclude.IsZero() {
		return false
	}
	return Extract(el, *rule.Exclude).Found
}

// ResolveLink makes href absolute against base. Unparseable links are
// returned as they are.
func ResolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if base == nil || href == "" {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// normalizeSpace collapses runs of whitespace into single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
