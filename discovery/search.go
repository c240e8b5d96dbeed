// Package discovery runs the search phase: every alias of every entity is
// searched on every source, and the hits are collected into a
// deduplicated set of article stubs.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pevans/newshound/browser"
	"github.com/pevans/newshound/logger"
	"github.com/pevans/newshound/newsfeed"
	"github.com/pevans/newshound/scraper"
	"github.com/pevans/newshound/sources"
)

// Search defaults.
const (
	DefaultWorkers      = 3
	DefaultAwaitTimeout = 10 * time.Second
	DefaultSettlePause  = 2 * time.Second
)

var (
	// ErrNavigation means the search page could not be loaded.
	ErrNavigation = errors.New("navigation failed")
	// ErrTaskPanic means a task crashed; its siblings keep running.
	ErrTaskPanic = errors.New("search task panicked")
	// ErrNoSessions is returned for rendered tasks when no pool is set.
	ErrNoSessions = errors.New("no session pool for rendered source")
)

// Task is one unit of search work: one alias on one source.
type Task struct {
	Entity string
	Alias  string
	Query  string // Alias formatted for Rule
	Rule   *scraper.SourceRule
}

func (t Task) String() string {
	return fmt.Sprintf("%s/%s", t.Rule.Name, t.Alias)
}

// Plan builds the task list: the cross product of every entity alias with
// every rule, ordered entity, alias, rule.
func Plan(entities []scraper.Entity, rules []*scraper.SourceRule) []Task {
	var tasks []Task
	for _, entity := range entities {
		for _, alias := range entity.Aliases {
			alias = strings.TrimSpace(alias)
			if alias == "" {
				continue
			}
			for _, rule := range rules {
				tasks = append(tasks, Task{
					Entity: entity.Name,
					Alias:  alias,
					Query:  rule.FormatQuery(alias),
					Rule:   rule,
				})
			}
		}
	}
	return tasks
}

// TaskResult is the outcome of one task. Err is nil, wraps
// browser.ErrNoContent for searches without results, or describes the
// failure.
type TaskResult struct {
	Task     Task
	Stubs    []newsfeed.ArticleStub
	Err      error
	Duration time.Duration
}

// NoContent reports whether the search ran but found nothing to wait for.
func (r TaskResult) NoContent() bool {
	return errors.Is(r.Err, browser.ErrNoContent)
}

// Failed reports whether the task ended in an error other than no content.
func (r TaskResult) Failed() bool {
	return r.Err != nil && !r.NoContent()
}

// SearchResult holds the deduplicated stubs and the per-task outcomes in
// task order.
type SearchResult struct {
	Stubs []newsfeed.ArticleStub
	Tasks []TaskResult
}

// Outcomes summarizes the tasks per source, in the order sources first
// appear.
func (r *SearchResult) Outcomes() []sources.Outcome {
	var (
		order []string
		byKey = map[string]*sources.Outcome{}
	)
	for _, tr := range r.Tasks {
		name := tr.Task.Rule.Name
		o, ok := byKey[name]
		if !ok {
			o = &sources.Outcome{Source: name}
			byKey[name] = o
			order = append(order, name)
		}

		o.Tasks++
		o.Stubs += len(tr.Stubs)
		switch {
		case tr.NoContent():
			o.NoContent++
		case tr.Err != nil:
			o.Failed++
			o.LastError = tr.Err.Error()
		}
	}

	outcomes := make([]sources.Outcome, 0, len(order))
	for _, name := range order {
		outcomes = append(outcomes, *byKey[name])
	}
	return outcomes
}

// Searcher runs search tasks concurrently. Rendered sources go through
// the session pool; feed sources are fetched directly.
type Searcher struct {
	Pool         *browser.Pool
	Navigator    *browser.Navigator
	Dates        *scraper.DateNormalizer
	Feeds        *FeedSearch
	Workers      int
	AwaitTimeout time.Duration
	SettlePause  time.Duration

	log *zap.Logger
}

// NewSearcher creates a searcher over pool with default settings.
func NewSearcher(pool *browser.Pool, log *zap.Logger) *Searcher {
	log = logger.OrNop(log)
	dates := scraper.NewDateNormalizer(log)
	return &Searcher{
		Pool:         pool,
		Navigator:    browser.NewNavigator(log),
		Dates:        dates,
		Feeds:        NewFeedSearch(dates, log),
		Workers:      DefaultWorkers,
		AwaitTimeout: DefaultAwaitTimeout,
		SettlePause:  DefaultSettlePause,
		log:          log,
	}
}

// workers returns the worker count, never more than the pool has sessions.
func (s *Searcher) workers() int {
	n := s.Workers
	if n < 1 {
		n = DefaultWorkers
	}
	if s.Pool != nil && n > s.Pool.Size() {
		s.log.Warn("more workers than sessions, clamping",
			zap.Int("workers", n),
			zap.Int("sessions", s.Pool.Size()),
		)
		n = s.Pool.Size()
	}
	return n
}

// Search runs every task and folds the stubs they found into one
// deduplicated set. A task failing never affects the others; the only
// error returned is ctx's, when the run was cancelled.
func (s *Searcher) Search(ctx context.Context, tasks []Task) (*SearchResult, error) {
	results := make([]TaskResult, len(tasks))

	var g errgroup.Group
	g.SetLimit(s.workers())

	for i, task := range tasks {
		if ctx.Err() != nil {
			results[i] = TaskResult{Task: task, Err: ctx.Err()}
			continue
		}
		g.Go(func() error {
			results[i] = s.runTask(ctx, task)
			return nil
		})
	}
	_ = g.Wait()

	// Fold in task order; later hits for a URL replace earlier ones
	var all []newsfeed.ArticleStub
	for _, r := range results {
		all = append(all, r.Stubs...)
	}

	result := &SearchResult{
		Stubs: newsfeed.Dedupe(all),
		Tasks: results,
	}

	s.log.Info("search finished",
		zap.Int("tasks", len(tasks)),
		zap.Int("hits", len(all)),
		zap.Int("unique", len(result.Stubs)),
	)
	return result, ctx.Err()
}

func (s *Searcher) runTask(ctx context.Context, task Task) (res TaskResult) {
	log := s.log.With(
		zap.String("source", task.Rule.Name),
		zap.String("entity", task.Entity),
		zap.String("query", task.Alias),
	)
	start := time.Now()
	res.Task = task

	defer func() {
		if r := recover(); r != nil {
			res.Stubs = nil
			res.Err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
			log.Error("search task crashed", zap.Any("panic", r), zap.Stack("stack"))
		}
		res.Duration = time.Since(start)
	}()

	var stubs []newsfeed.ArticleStub
	var err error
	if task.Rule.IsFeed() {
		stubs, err = s.Feeds.Search(ctx, task)
	} else {
		stubs, err = s.searchRendered(ctx, task, log)
	}

	switch {
	case errors.Is(err, browser.ErrNoContent):
		log.Warn("no results before timeout")
	case err != nil:
		log.Warn("search task failed", zap.Error(err))
	default:
		log.Info("search task finished", zap.Int("stubs", len(stubs)))
	}

	res.Stubs = stubs
	res.Err = err
	return res
}

// searchRendered visits the result pages of a rendered source with an
// exclusively held session.
func (s *Searcher) searchRendered(ctx context.Context, task Task, log *zap.Logger) ([]newsfeed.ArticleStub, error) {
	if s.Pool == nil {
		return nil, ErrNoSessions
	}

	var stubs []newsfeed.ArticleStub
	err := s.Pool.With(ctx, func(sess browser.Session) error {
		for page := 1; page <= task.Rule.Pages(); page++ {
			found, err := s.searchPage(ctx, sess, task, page)
			if err != nil {
				// Later pages running dry is the normal end of paging
				if page > 1 {
					log.Debug("stopped paging", zap.Int("page", page), zap.Error(err))
					return nil
				}
				return err
			}
			if len(found) == 0 {
				return nil
			}
			stubs = append(stubs, found...)
		}
		return nil
	})
	return stubs, err
}

func (s *Searcher) searchPage(ctx context.Context, sess browser.Session, task Task, page int) ([]newsfeed.ArticleStub, error) {
	rule := task.Rule
	pageURL := rule.BuildSearchURL(task.Query, page)

	if !s.Navigator.Navigate(ctx, sess, pageURL) {
		return nil, fmt.Errorf("%w: %s", ErrNavigation, pageURL)
	}

	if err := s.Navigator.AwaitSelector(ctx, sess, rule.ElementSelector, s.AwaitTimeout); err != nil {
		return nil, err
	}

	if _, err := s.Navigator.SettlePage(ctx, sess, s.SettlePause); err != nil {
		// Extract whatever rendered so far
		s.log.Warn("page did not settle", zap.String("url", pageURL), zap.Error(err))
	}

	html, err := sess.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return ExtractStubs(doc, task, pageURL, s.Dates), nil
}
