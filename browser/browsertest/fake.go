// Package browsertest provides an in-memory rendering backend for tests.
package browsertest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"

	"github.com/pevans/newshound/browser"
)

// ErrUnknownPage is returned when navigating to a URL the backend has no
// page for.
var ErrUnknownPage = errors.New("browsertest: unknown page")

// Page is what a fake session renders for a URL.
type Page struct {
	HTML string
	// Heights are returned by successive PageHeight calls; the last one
	// repeats. Empty means a constant height.
	Heights []int64
	// NavigateErr fails the visit.
	NavigateErr error
	// Panic makes HTML panic with this value.
	Panic any
}

// Backend is a browser.Factory whose sessions render canned pages.
type Backend struct {
	// Pages maps exact URLs to pages.
	Pages map[string]Page
	// Handler is consulted for URLs missing from Pages.
	Handler func(url string) (Page, bool)
	// FailAfter makes NewSession fail once this many sessions exist.
	// Zero disables it.
	FailAfter int
	// CloseErr is returned by every session Close.
	CloseErr error

	mu         sync.Mutex
	sessions   []*Session
	visits     []string
	violations int
}

// NewSession implements browser.Factory.
func (b *Backend) NewSession(ctx context.Context) (browser.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailAfter > 0 && len(b.sessions) >= b.FailAfter {
		return nil, errors.New("browsertest: session limit reached")
	}
	s := &Session{backend: b, id: len(b.sessions)}
	b.sessions = append(b.sessions, s)
	return s, nil
}

// Created returns how many sessions were created.
func (b *Backend) Created() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// Closed returns how many sessions were closed at least once.
func (b *Backend) Closed() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, s := range b.sessions {
		if s.closed.Load() {
			n++
		}
	}
	return n
}

// Visits returns every URL navigated to, in call order.
func (b *Backend) Visits() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.visits...)
}

// Violations counts calls made on a session that another goroutine was
// already using.
func (b *Backend) Violations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.violations
}

func (b *Backend) lookup(url string) (Page, bool) {
	b.mu.Lock()
	b.visits = append(b.visits, url)
	page, ok := b.Pages[url]
	handler := b.Handler
	b.mu.Unlock()

	if ok {
		return page, true
	}
	if handler != nil {
		return handler(url)
	}
	return Page{}, false
}

// Session is a fake browser.Session.
type Session struct {
	backend *Backend
	id      int
	busy    atomic.Bool
	closed  atomic.Bool

	page      Page
	heightIdx int
}

// ID is the creation index of the session.
func (s *Session) ID() int {
	return s.id
}

// enter flags concurrent use of the same session.
func (s *Session) enter() func() {
	if !s.busy.CompareAndSwap(false, true) {
		s.backend.mu.Lock()
		s.backend.violations++
		s.backend.mu.Unlock()
		return func() {}
	}
	return func() { s.busy.Store(false) }
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	defer s.enter()()

	if err := ctx.Err(); err != nil {
		return err
	}
	page, ok := s.backend.lookup(url)
	if !ok {
		return ErrUnknownPage
	}
	if page.NavigateErr != nil {
		return page.NavigateErr
	}
	s.page = page
	s.heightIdx = 0
	return nil
}

// WaitReady returns immediately when the selector matches the current page
// and otherwise blocks until ctx is done.
func (s *Session) WaitReady(ctx context.Context, selector string) error {
	defer s.enter()()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s.page.HTML))
	if err == nil && doc.Find(selector).Length() > 0 {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *Session) PageHeight(ctx context.Context) (int64, error) {
	defer s.enter()()

	heights := s.page.Heights
	if len(heights) == 0 {
		return 1000, nil
	}
	h := heights[min(s.heightIdx, len(heights)-1)]
	s.heightIdx++
	return h, nil
}

func (s *Session) ScrollToBottom(ctx context.Context) error {
	defer s.enter()()
	return ctx.Err()
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	defer s.enter()()

	if s.page.Panic != nil {
		panic(s.page.Panic)
	}
	return s.page.HTML, nil
}

func (s *Session) Close() error {
	s.closed.Store(true)
	return s.backend.CloseErr
}
