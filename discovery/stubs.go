package discovery

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/pevans/newshound/newsfeed"
	"github.com/pevans/newshound/scraper"
)

// ExtractStubs pulls article stubs out of a rendered result page. Elements
// without a title or link, and elements the rule excludes, are skipped.
func ExtractStubs(doc *goquery.Document, task Task, pageURL string, dates *scraper.DateNormalizer) []newsfeed.ArticleStub {
	rule := task.Rule
	base := rule.PageBase(pageURL)

	var stubs []newsfeed.ArticleStub
	doc.Find(rule.ElementSelector).Each(func(_ int, el *goquery.Selection) {
		if scraper.Excluded(el, rule) {
			return
		}

		title := scraper.Extract(el, rule.Title)
		link := scraper.Extract(el, rule.Link)
		if !title.Present() || !link.Present() {
			return
		}

		date := scraper.Extract(el, rule.Date).Value
		if dates != nil {
			date = dates.Normalize(date, rule.Name)
		}

		stubs = append(stubs, newsfeed.ArticleStub{
			Title:  title.Value,
			URL:    scraper.ResolveLink(base, link.Value),
			Date:   date,
			Source: rule.Name,
			Entity: task.Entity,
			Query:  task.Alias,
		})
	})

	return stubs
}
