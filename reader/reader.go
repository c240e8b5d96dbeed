// Package reader fetches article pages and extracts their title, authors,
// publish date and body text.
package reader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/pevans/newshound/logger"
)

// Reader defaults.
const (
	DefaultTimeout        = 15 * time.Second
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultAcceptLanguage = "ro-RO,ro;q=0.9,en-US;q=0.8,en;q=0.7"
)

// ErrEmptyPage is returned when the server answers with no body.
var ErrEmptyPage = errors.New("empty page")

// Article is what the reader extracts from an article page. Any field may
// be empty.
type Article struct {
	URL         string
	Title       string
	Authors     []string
	PublishDate string
	Text        string
}

// Reader downloads and parses article pages. It is safe for concurrent use.
type Reader struct {
	UserAgent      string
	AcceptLanguage string
	Timeout        time.Duration

	log *zap.Logger
}

// New creates a reader with the default headers and timeout.
func New(log *zap.Logger) *Reader {
	return &Reader{
		UserAgent:      DefaultUserAgent,
		AcceptLanguage: DefaultAcceptLanguage,
		Timeout:        DefaultTimeout,
		log:            logger.OrNop(log),
	}
}

// Read fetches pageURL and extracts the article on it. Non-2xx responses
// and transport failures are errors; an article without text is not.
func (r *Reader) Read(ctx context.Context, pageURL string) (*Article, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid article URL: %w", err)
	}

	body, err := r.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	return Extract(body, parsedURL)
}

// fetch downloads a page with a one-shot collector, so concurrent reads
// share no state.
func (r *Reader) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	opts := []colly.CollectorOption{
		colly.StdlibContext(ctx),
		colly.AllowURLRevisit(),
		colly.DetectCharset(),
	}
	if r.UserAgent != "" {
		opts = append(opts, colly.UserAgent(r.UserAgent))
	}

	c := colly.NewCollector(opts...)
	if r.Timeout > 0 {
		c.SetRequestTimeout(r.Timeout)
	}

	c.OnRequest(func(req *colly.Request) {
		if r.AcceptLanguage != "" {
			req.Headers.Set("Accept-Language", r.AcceptLanguage)
		}
		req.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	})

	var body []byte
	c.OnResponse(func(resp *colly.Response) {
		body = resp.Body
	})

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, ErrEmptyPage)
	}

	r.logger().Debug("fetched article page", zap.String("url", pageURL), zap.Int("bytes", len(body)))
	return body, nil
}

func (r *Reader) logger() *zap.Logger {
	return logger.OrNop(r.log)
}

// Extract parses an article page that has already been downloaded.
func Extract(html []byte, pageURL *url.URL) (*Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	article := &Article{URL: pageURL.String()}

	parsed, err := readability.FromReader(bytes.NewReader(html), pageURL)
	if err == nil {
		article.Title = normalizeSpace(parsed.Title)
		article.Text = strings.TrimSpace(parsed.TextContent)
		article.Authors = ParseAuthors(normalizeSpace(parsed.Byline))
	}

	// Fill gaps from the page metadata
	if article.Title == "" {
		article.Title = firstMeta(doc, titleMeta)
	}
	if article.Title == "" {
		article.Title = normalizeSpace(doc.Find("title").First().Text())
	}
	if len(article.Authors) == 0 {
		article.Authors = ParseAuthors(firstMeta(doc, authorMeta))
	}
	article.PublishDate = PublishDate(doc)

	return article, nil
}

// normalizeSpace collapses runs of whitespace into single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
