package newsfeed

import (
	"sort"
	"time"
)

// ArticleStub is a search hit: the minimal record of an article found on a
// source's result page.
type ArticleStub struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Date   string `json:"date"`
	Source string `json:"source"`
	Entity string `json:"entity,omitempty"`
	Query  string `json:"query,omitempty"`
}

// Valid reports whether the stub carries the fields every stub must have.
func (s ArticleStub) Valid() bool {
	return s.Title != "" && s.URL != ""
}

// CandidatePair keeps the value seen on the result page next to the value
// the article page itself reports.
type CandidatePair struct {
	Stub    string `json:"stub"`
	Fetched string `json:"fetched"`
}

// Best returns the fetched value when present, else the stub value.
func (p CandidatePair) Best() string {
	if p.Fetched != "" {
		return p.Fetched
	}
	return p.Stub
}

// EnrichedArticle is a stub after its full text has been retrieved.
type EnrichedArticle struct {
	URL       string        `json:"url"`
	Source    string        `json:"source"`
	Entity    string        `json:"entity,omitempty"`
	Title     CandidatePair `json:"title"`
	Date      CandidatePair `json:"date"`
	Authors   []string      `json:"authors"`
	Content   string        `json:"content"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// Dedupe folds stubs into one entry per URL. When a URL repeats, the later
// stub replaces the earlier one. The result is sorted by URL.
func Dedupe(stubs []ArticleStub) []ArticleStub {
	byURL := make(map[string]ArticleStub, len(stubs))
	for _, s := range stubs {
		byURL[s.URL] = s
	}

	result := make([]ArticleStub, 0, len(byURL))
	for _, s := range byURL {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].URL < result[j].URL
	})
	return result
}
