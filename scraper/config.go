package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
)

// Source kinds.
const (
	// KindRendered sources are searched through a rendering session.
	KindRendered = "rendered"
	// KindFeed sources expose search results as an RSS or Atom feed.
	KindFeed = "feed"
)

// DefaultQuerySeparator joins the words of a multi-word alias.
const DefaultQuerySeparator = "+"

var (
	ErrMissingName        = errors.New("source name is required")
	ErrInvalidKind        = errors.New("kind must be rendered or feed")
	ErrMissingQuery       = errors.New("search_url must contain {query}")
	ErrUnknownPlaceholder = errors.New("search_url contains an unknown placeholder")
	ErrMissingSelector    = errors.New("element, title and link selectors are required")
	ErrInvalidSelector    = errors.New("invalid selector")
)

var placeholderPattern = regexp.MustCompile(`\{[^{}]*\}`)

// SourceRule defines how to search a single news site and pull article
// stubs out of its result pages. Rules are loaded once and shared read-only
// between all search tasks.
type SourceRule struct {
	Name            string    `yaml:"name" json:"name"`
	Kind            string    `yaml:"kind,omitempty" json:"kind,omitempty"`
	SearchURL       string    `yaml:"search_url" json:"search_url"` // {query} and optional {page}
	BaseURL         string    `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	QuerySeparator  string    `yaml:"query_separator,omitempty" json:"query_separator,omitempty"`
	ElementSelector string    `yaml:"element_selector" json:"element_selector"`
	Title           Selector  `yaml:"title_selector" json:"title_selector"`
	Date            Selector  `yaml:"date_selector,omitempty" json:"date_selector,omitempty"`
	Link            Selector  `yaml:"link_selector" json:"link_selector"`
	Exclude         *Selector `yaml:"exclude_selector,omitempty" json:"exclude_selector,omitempty"`
	MaxPages        int       `yaml:"max_pages,omitempty" json:"max_pages,omitempty"` // Default: 1
	Disabled        bool      `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// QueryFormatter turns the words of a multi-word alias into the query
// string a search endpoint expects.
type QueryFormatter func(terms []string) string

// JoinFormatter escapes each term and joins them with sep.
func JoinFormatter(sep string) QueryFormatter {
	return func(terms []string) string {
		escaped := make([]string, 0, len(terms))
		for _, term := range terms {
			escaped = append(escaped, url.QueryEscape(term))
		}
		return strings.Join(escaped, sep)
	}
}

// IsFeed reports whether the source is searched through a feed.
func (r *SourceRule) IsFeed() bool {
	return r.Kind == KindFeed
}

// Pages returns the number of result pages to visit per query.
func (r *SourceRule) Pages() int {
	if r.MaxPages < 1 || !strings.Contains(r.SearchURL, "{page}") {
		return 1
	}
	return r.MaxPages
}

// QueryFormatter returns the formatter for multi-word aliases.
func (r *SourceRule) QueryFormatter() QueryFormatter {
	sep := r.QuerySeparator
	if sep == "" {
		sep = DefaultQuerySeparator
	}
	return JoinFormatter(sep)
}

// FormatQuery formats an alias for this source. Single-word aliases are used
// as they are; multi-word aliases go through the source's formatter.
func (r *SourceRule) FormatQuery(alias string) string {
	terms := strings.Fields(alias)
	if len(terms) <= 1 {
		return url.QueryEscape(strings.TrimSpace(alias))
	}
	return r.QueryFormatter()(terms)
}

// BuildSearchURL fills the search template with an already formatted query
// and a 1-based page number.
func (r *SourceRule) BuildSearchURL(query string, page int) string {
	if page < 1 {
		page = 1
	}
	return strings.NewReplacer(
		"{query}", query,
		"{page}", strconv.Itoa(page),
	).Replace(r.SearchURL)
}

// PageBase returns the URL that relative links on a result page resolve
// against: BaseURL when configured, otherwise the page itself.
func (r *SourceRule) PageBase(pageURL string) *url.URL {
	raw := pageURL
	if r.BaseURL != "" {
		raw = r.BaseURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return u
}

// Validate checks a rule before it is shared with search tasks.
func (r *SourceRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if r.Kind != "" && r.Kind != KindRendered && r.Kind != KindFeed {
		return fmt.Errorf("%s: %w", r.Name, ErrInvalidKind)
	}
	if !strings.Contains(r.SearchURL, "{query}") {
		return fmt.Errorf("%s: %w", r.Name, ErrMissingQuery)
	}
	for _, ph := range placeholderPattern.FindAllString(r.SearchURL, -1) {
		if ph != "{query}" && ph != "{page}" {
			return fmt.Errorf("%s: %w: %s", r.Name, ErrUnknownPlaceholder, ph)
		}
	}
	if _, err := url.Parse(r.BuildSearchURL("x", 1)); err != nil {
		return fmt.Errorf("%s: invalid search_url: %w", r.Name, err)
	}

	// Feed sources don't use selectors.
	if r.IsFeed() {
		return nil
	}

	if r.ElementSelector == "" || r.Title.IsZero() || r.Link.IsZero() {
		return fmt.Errorf("%s: %w", r.Name, ErrMissingSelector)
	}
	paths := []string{r.ElementSelector, r.Title.Path, r.Date.Path, r.Link.Path}
	if r.Exclude != nil {
		paths = append(paths, r.Exclude.Path)
	}
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := cascadia.Compile(path); err != nil {
			return fmt.Errorf("%s: %w %q: %v", r.Name, ErrInvalidSelector, path, err)
		}
	}
	return nil
}
