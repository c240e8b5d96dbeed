package reader

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// metaSource names an element holding a value and the attribute it is in.
type metaSource struct {
	selector string
	attr     string
}

var titleMeta = []metaSource{
	{`meta[property="og:title"]`, "content"},
	{`meta[name="twitter:title"]`, "content"},
}

var authorMeta = []metaSource{
	{`meta[name="author"]`, "content"},
	{`meta[property="article:author"]`, "content"},
	{`[itemprop="author"] [itemprop="name"]`, ""},
	{`[rel="author"]`, ""},
}

var dateMeta = []metaSource{
	{`meta[property="article:published_time"]`, "content"},
	{`meta[itemprop="datePublished"]`, "content"},
	{`meta[name="pubdate"]`, "content"},
	{`meta[name="publishdate"]`, "content"},
	{`meta[name="date"]`, "content"},
	{`[itemprop="datePublished"]`, "datetime"},
	{`time[datetime]`, "datetime"},
}

// dateLayouts are tried in order when normalizing a publish date.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// PublishDate returns the page's publish date, as RFC 3339 when it can be
// parsed and as written otherwise. It is "" when the page has none.
func PublishDate(doc *goquery.Document) string {
	raw := firstMeta(doc, dateMeta)
	if raw == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(time.RFC3339)
		}
	}
	return raw
}

// firstMeta returns the first non-empty value among sources.
func firstMeta(doc *goquery.Document, sources []metaSource) string {
	for _, src := range sources {
		el := doc.Find(src.selector).First()
		if el.Length() == 0 {
			continue
		}

		var value string
		if src.attr == "" {
			value = el.Text()
		} else {
			value = el.AttrOr(src.attr, "")
		}
		if value = normalizeSpace(value); value != "" {
			return value
		}
	}
	return ""
}

// ParseAuthors splits a byline into individual authors on ", ", " and "
// or the Romanian " și ". A leading "de" or "by" is dropped.
func ParseAuthors(authorText string) []string {
	authorText = strings.TrimSpace(authorText)
	for _, prefix := range []string{"de ", "De ", "by ", "By "} {
		authorText = strings.TrimPrefix(authorText, prefix)
	}
	if authorText == "" {
		return []string{}
	}

	for _, delim := range []string{", ", " and ", " și ", " si "} {
		if !strings.Contains(authorText, delim) {
			continue
		}
		authors := []string{}
		for part := range strings.SplitSeq(authorText, delim) {
			part = strings.TrimSpace(part)
			if part != "" {
				authors = append(authors, part)
			}
		}
		return authors
	}

	// No delimiters found, return as single author
	return []string{authorText}
}
