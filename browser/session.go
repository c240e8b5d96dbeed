// Package browser manages rendering sessions: a fixed pool of headless
// browser tabs that search tasks check out exclusively, plus the navigation
// helpers used to load dynamic result pages.
package browser

import (
	"context"
	"errors"
)

var (
	// ErrNoContent is returned when the awaited elements never appear. It is
	// an expected outcome for searches without results, not a failure.
	ErrNoContent = errors.New("no matching content before timeout")
	// ErrPoolClosed is returned by Acquire after Shutdown.
	ErrPoolClosed = errors.New("session pool is shut down")
	// ErrInvalidPoolSize is returned when a pool is created with size < 1.
	ErrInvalidPoolSize = errors.New("session pool size must be at least 1")
)

// Session is a reusable rendering context able to load and interact with
// JavaScript-rendered pages. A session is used by one task at a time.
type Session interface {
	// Navigate loads url and waits for the page load event.
	Navigate(ctx context.Context, url string) error
	// WaitReady blocks until an element matching the CSS selector exists
	// or ctx is done.
	WaitReady(ctx context.Context, selector string) error
	// PageHeight returns the current document scroll height.
	PageHeight(ctx context.Context) (int64, error)
	// ScrollToBottom scrolls the window to the end of the document.
	ScrollToBottom(ctx context.Context) error
	// HTML returns a snapshot of the rendered document.
	HTML(ctx context.Context) (string, error)
	// Close releases the underlying browser resources.
	Close() error
}

// Factory creates sessions for a pool.
type Factory interface {
	NewSession(ctx context.Context) (Session, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context) (Session, error)

// NewSession calls f.
func (f FactoryFunc) NewSession(ctx context.Context) (Session, error) {
	return f(ctx)
}
