// Package newshound finds news articles that mention a set of entities
// across several news sites and retrieves their full text.
//
// A run has two phases. The search phase visits every source's search page
// for every alias of every entity and collects article stubs, deduplicated
// by URL. The content phase fetches the full text of each stub within a
// time budget and writes the results to a sink as they arrive.
package newshound

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pevans/newshound/browser"
	"github.com/pevans/newshound/config"
	"github.com/pevans/newshound/content"
	"github.com/pevans/newshound/discovery"
	"github.com/pevans/newshound/logger"
	"github.com/pevans/newshound/newsfeed"
	"github.com/pevans/newshound/reader"
	"github.com/pevans/newshound/scraper"
	"github.com/pevans/newshound/sources"
)

// ErrNothingToSearch is returned when the selection yields no tasks.
var ErrNothingToSearch = errors.New("no search tasks: check sources and entities")

// Selection narrows a run to some sources and entities. Empty lists mean
// every enabled source and every entity.
type Selection struct {
	Sources  []string
	Entities []string
}

// Summary describes a finished run.
type Summary struct {
	RunID   string
	Search  *discovery.SearchResult
	Content *content.Report
}

// Runner wires the configured components into runs.
type Runner struct {
	cfg     *config.Config
	factory browser.Factory
	reader  content.ArticleReader
	now     func() time.Time
	log     *zap.Logger

	// Hooks for tests
	tuneNavigator func(*browser.Navigator)
	contentClock  content.Clock
}

// Option customizes a Runner.
type Option func(*Runner)

// WithFactory replaces the Chrome session factory.
func WithFactory(f browser.Factory) Option {
	return func(r *Runner) { r.factory = f }
}

// WithReader replaces the article reader.
func WithReader(rd content.ArticleReader) Option {
	return func(r *Runner) { r.reader = rd }
}

// WithClock replaces the wall clock used for dates and budgets.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a runner for a validated configuration.
func NewRunner(cfg *config.Config, log *zap.Logger, opts ...Option) *Runner {
	log = logger.OrNop(log)

	r := &Runner{
		cfg: cfg,
		factory: browser.NewChromeFactory(browser.ChromeOptions{
			Headless:        cfg.Browser.Headless,
			UserAgent:       cfg.Browser.UserAgent,
			ChromePath:      cfg.Browser.ChromePath,
			Language:        cfg.Browser.Language,
			PageLoadTimeout: cfg.Browser.PageLoadTimeout.Std(),
			WindowWidth:     1920,
			WindowHeight:    1080,
		}),
		now: time.Now,
		log: log,
	}

	rd := reader.New(log)
	if cfg.Browser.UserAgent != "" {
		rd.UserAgent = cfg.Browser.UserAgent
	}
	if cfg.Content.AcceptLanguage != "" {
		rd.AcceptLanguage = cfg.Content.AcceptLanguage
	}
	if cfg.Content.RequestTimeout > 0 {
		rd.Timeout = cfg.Content.RequestTimeout.Std()
	}
	r.reader = rd

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search runs the search phase only and writes the stubs file.
func (r *Runner) Search(ctx context.Context, sel Selection) (*Summary, error) {
	return r.run(ctx, sel, false)
}

// Run runs both phases.
func (r *Runner) Run(ctx context.Context, sel Selection) (*Summary, error) {
	return r.run(ctx, sel, true)
}

// Content runs the content phase over stubs read from a previous search.
func (r *Runner) Content(ctx context.Context, stubs []newsfeed.ArticleStub) (*Summary, error) {
	runID := uuid.NewString()
	report, err := r.fetchContent(ctx, runID, stubs)
	return &Summary{RunID: runID, Content: report}, err
}

func (r *Runner) run(ctx context.Context, sel Selection, withContent bool) (*Summary, error) {
	runID := uuid.NewString()
	log := r.log.With(zap.String("run_id", runID))

	rules, err := r.cfg.SelectSources(sel.Sources)
	if err != nil {
		return nil, err
	}
	entities, err := r.cfg.SelectEntities(sel.Entities)
	if err != nil {
		return nil, err
	}

	tasks := discovery.Plan(entities, rules)
	if len(tasks) == 0 {
		return nil, ErrNothingToSearch
	}

	pool, err := r.openPool(ctx, rules, log)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser sessions: %w", err)
	}
	if pool != nil {
		defer pool.Shutdown()
	}

	summary := &Summary{RunID: runID}

	log.Info("search starting",
		zap.Int("tasks", len(tasks)),
		zap.Int("sources", len(rules)),
		zap.Int("entities", len(entities)),
	)
	result, err := r.searcher(pool, log).Search(ctx, tasks)
	summary.Search = result
	r.recordHealth(runID, result, log)

	if writeErr := newsfeed.WriteStubs(r.cfg.Output.Stubs, result.Stubs); writeErr != nil {
		return summary, writeErr
	}
	log.Info("stubs written", zap.String("path", r.cfg.Output.Stubs), zap.Int("stubs", len(result.Stubs)))

	if err != nil {
		return summary, fmt.Errorf("search interrupted: %w", err)
	}
	if !withContent {
		return summary, nil
	}

	report, err := r.fetchContent(ctx, runID, result.Stubs)
	summary.Content = report
	return summary, err
}

// openPool starts the session pool when any rule needs rendering.
func (r *Runner) openPool(ctx context.Context, rules []*scraper.SourceRule, log *zap.Logger) (*browser.Pool, error) {
	needed := false
	for _, rule := range rules {
		if !rule.IsFeed() {
			needed = true
			break
		}
	}
	if !needed {
		return nil, nil
	}
	return browser.NewPool(ctx, r.factory, r.cfg.Browser.Sessions, log)
}

func (r *Runner) searcher(pool *browser.Pool, log *zap.Logger) *discovery.Searcher {
	s := discovery.NewSearcher(pool, log)
	s.Dates.Now = r.now
	s.Workers = r.cfg.Search.Workers
	s.AwaitTimeout = r.cfg.Search.AwaitTimeout.Std()
	s.SettlePause = r.cfg.Search.SettlePause.Std()

	s.Navigator.MinDelay = r.cfg.Search.MinDelay.Std()
	s.Navigator.MaxDelay = r.cfg.Search.MaxDelay.Std()
	s.Navigator.MaxSettleSteps = r.cfg.Search.MaxSettleSteps
	if r.tuneNavigator != nil {
		r.tuneNavigator(s.Navigator)
	}

	if r.cfg.Browser.UserAgent != "" {
		s.Feeds.UserAgent = r.cfg.Browser.UserAgent
	}
	if r.cfg.Search.FeedTimeout > 0 {
		s.Feeds.Timeout = r.cfg.Search.FeedTimeout.Std()
	}
	return s
}

// recordHealth folds the search outcomes into the health ledger. Ledger
// problems are logged and never fail the run.
func (r *Runner) recordHealth(runID string, result *discovery.SearchResult, log *zap.Logger) {
	if r.cfg.Output.Health == "" || result == nil {
		return
	}

	store, err := sources.NewHealthStore(r.cfg.Output.Health)
	if err != nil {
		log.Warn("failed to open health ledger", zap.Error(err))
		return
	}
	defer store.Close()

	if err := store.RecordRun(runID, r.now(), result.Outcomes()); err != nil {
		log.Warn("failed to record source health", zap.Error(err))
	}
}

func (r *Runner) fetchContent(ctx context.Context, runID string, stubs []newsfeed.ArticleStub) (*content.Report, error) {
	log := r.log.With(zap.String("run_id", runID))

	sink, err := newsfeed.OpenSink(r.cfg.Output.Content, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to open content sink: %w", err)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			log.Warn("failed to close content sink", zap.Error(err))
		}
	}()

	f := content.NewFetcher(r.reader, log)
	f.Budget = r.cfg.Content.Budget.Std()
	f.Workers = r.cfg.Content.Workers
	f.Now = r.now
	if r.contentClock != nil {
		f.Clock = r.contentClock
	}

	log.Info("content fetch starting", zap.Int("stubs", len(stubs)), zap.Duration("budget", f.Budget))
	report, err := f.Fetch(ctx, stubs, sink)
	return &report, err
}
