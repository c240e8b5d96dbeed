// Package content runs the full-text phase: article pages are fetched
// concurrently for a fixed time budget and every article read is handed
// to a sink as soon as it is available.
package content

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pevans/newshound/logger"
	"github.com/pevans/newshound/newsfeed"
	"github.com/pevans/newshound/reader"
)

// Fetcher defaults.
const (
	DefaultBudget  = 60 * time.Second
	DefaultWorkers = 5
)

// ArticleReader retrieves an article page.
type ArticleReader interface {
	Read(ctx context.Context, url string) (*reader.Article, error)
}

// Clock tells the fetcher the time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Report summarizes a fetch run.
type Report struct {
	Submitted int
	Skipped   int // Not started because the budget ran out
	Failed    int
	Written   int
}

// Fetcher enriches stubs with their full text.
type Fetcher struct {
	Reader  ArticleReader
	Budget  time.Duration
	Workers int
	Clock   Clock            // Budget checks only
	Now     func() time.Time // Stamps FetchedAt

	log *zap.Logger
}

// NewFetcher creates a fetcher with the default budget and workers.
func NewFetcher(r ArticleReader, log *zap.Logger) *Fetcher {
	return &Fetcher{
		Reader:  r,
		Budget:  DefaultBudget,
		Workers: DefaultWorkers,
		Clock:   systemClock{},
		Now:     time.Now,
		log:     logger.OrNop(log),
	}
}

// Fetch reads the article behind each stub and appends the result to sink.
//
// The budget is checked before each submission. Submission waits for a
// free worker, so a task that passed the check may start just after the
// budget ends; submitted tasks always run to completion. Failed reads are logged and dropped. If the
// sink rejects an article, no more are appended, what was appended is
// flushed on a best-effort basis and the append error is returned.
// Otherwise the sink is flushed once at the end.
func (f *Fetcher) Fetch(ctx context.Context, stubs []newsfeed.ArticleStub, sink newsfeed.Sink) (Report, error) {
	var (
		report  Report
		mu      sync.Mutex
		sinkErr error
	)

	workers := f.Workers
	if workers < 1 {
		workers = DefaultWorkers
	}
	budget := f.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}

	var g errgroup.Group
	g.SetLimit(workers)

	clock := f.clock()
	start := clock.Now()

	for i, stub := range stubs {
		if elapsed := clock.Now().Sub(start); elapsed >= budget || ctx.Err() != nil {
			report.Skipped = len(stubs) - i
			f.logger().Warn("content budget exhausted, skipping remaining articles",
				zap.Duration("elapsed", elapsed),
				zap.Int("skipped", report.Skipped),
			)
			break
		}

		// Go blocks while every worker is busy
		report.Submitted++
		g.Go(func() error {
			article, ok := f.read(ctx, stub)

			mu.Lock()
			defer mu.Unlock()

			if !ok {
				report.Failed++
				return nil
			}
			if sinkErr != nil {
				return nil
			}
			if err := sink.Append(article); err != nil {
				sinkErr = err
				return nil
			}
			report.Written++
			return nil
		})
	}
	_ = g.Wait()

	if sinkErr != nil {
		if err := sink.Flush(); err != nil {
			f.logger().Error("failed to flush after sink error", zap.Error(err))
		}
		return report, fmt.Errorf("failed to write article: %w", sinkErr)
	}

	if err := sink.Flush(); err != nil {
		return report, fmt.Errorf("failed to flush articles: %w", err)
	}

	f.logger().Info("content fetch finished",
		zap.Int("submitted", report.Submitted),
		zap.Int("written", report.Written),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

// read fetches one article. Failures are logged and reported as !ok.
func (f *Fetcher) read(ctx context.Context, stub newsfeed.ArticleStub) (article newsfeed.EnrichedArticle, ok bool) {
	log := f.logger().With(zap.String("url", stub.URL), zap.String("source", stub.Source))

	defer func() {
		if r := recover(); r != nil {
			log.Error("article read crashed", zap.Any("panic", r))
			ok = false
		}
	}()

	fetched, err := f.Reader.Read(ctx, stub.URL)
	if err != nil {
		log.Warn("failed to read article", zap.Error(err))
		return article, false
	}

	return newsfeed.EnrichedArticle{
		URL:       stub.URL,
		Source:    stub.Source,
		Entity:    stub.Entity,
		Title:     newsfeed.CandidatePair{Stub: stub.Title, Fetched: fetched.Title},
		Date:      newsfeed.CandidatePair{Stub: stub.Date, Fetched: fetched.PublishDate},
		Authors:   fetched.Authors,
		Content:   fetched.Text,
		FetchedAt: f.now(),
	}, true
}

func (f *Fetcher) clock() Clock {
	if f.Clock == nil {
		return systemClock{}
	}
	return f.Clock
}

func (f *Fetcher) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

func (f *Fetcher) logger() *zap.Logger {
	return logger.OrNop(f.log)
}
