package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/pevans/newshound/browser"
	"github.com/pevans/newshound/logger"
	"github.com/pevans/newshound/newsfeed"
	"github.com/pevans/newshound/scraper"
)

// DefaultFeedTimeout bounds a single feed request.
const DefaultFeedTimeout = 15 * time.Second

// FeedSearch searches sources whose search URL returns an RSS or Atom
// feed. No rendering session is needed.
type FeedSearch struct {
	Dates     *scraper.DateNormalizer
	UserAgent string
	Timeout   time.Duration

	log *zap.Logger
}

// NewFeedSearch creates a feed searcher with the default timeout.
func NewFeedSearch(dates *scraper.DateNormalizer, log *zap.Logger) *FeedSearch {
	return &FeedSearch{
		Dates:   dates,
		Timeout: DefaultFeedTimeout,
		log:     logger.OrNop(log),
	}
}

// Search fetches the task's feed and turns its items into stubs. An empty
// feed is reported as browser.ErrNoContent.
func (f *FeedSearch) Search(ctx context.Context, task Task) ([]newsfeed.ArticleStub, error) {
	feedURL := task.Rule.BuildSearchURL(task.Query, 1)

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	// Parsers keep state while parsing, so each search gets its own
	fp := gofeed.NewParser()
	if f.UserAgent != "" {
		fp.UserAgent = f.UserAgent
	}

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNavigation, feedURL, err)
	}
	if len(feed.Items) == 0 {
		return nil, browser.ErrNoContent
	}

	base := task.Rule.PageBase(feedURL)
	stubs := make([]newsfeed.ArticleStub, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.Join(strings.Fields(item.Title), " ")
		link := scraper.ResolveLink(base, item.Link)
		if title == "" || link == "" {
			continue
		}

		stubs = append(stubs, newsfeed.ArticleStub{
			Title:  title,
			URL:    link,
			Date:   f.itemDate(item, task.Rule.Name),
			Source: task.Rule.Name,
			Entity: task.Entity,
			Query:  task.Alias,
		})
	}

	return stubs, nil
}

// itemDate prefers the parsed publish time, then the update time, then
// the raw text through the normalizer.
func (f *FeedSearch) itemDate(item *gofeed.Item, source string) string {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC().Format(time.RFC3339)
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC().Format(time.RFC3339)
	case f.Dates != nil:
		return f.Dates.Normalize(item.Published, source)
	default:
		return item.Published
	}
}
