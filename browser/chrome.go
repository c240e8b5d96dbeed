package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeOptions configures the headless Chrome instances behind sessions.
type ChromeOptions struct {
	Headless        bool
	UserAgent       string
	ChromePath      string
	Language        string
	PageLoadTimeout time.Duration
	WindowWidth     int
	WindowHeight    int
}

// DefaultChromeOptions returns the options used when none are configured.
func DefaultChromeOptions() ChromeOptions {
	return ChromeOptions{
		Headless:        true,
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		Language:        "ro-RO",
		PageLoadTimeout: 30 * time.Second,
		WindowWidth:     1920,
		WindowHeight:    1080,
	}
}

// ChromeFactory starts one Chrome process per session.
type ChromeFactory struct {
	opts ChromeOptions
}

// NewChromeFactory creates a factory with the given options.
func NewChromeFactory(opts ChromeOptions) *ChromeFactory {
	return &ChromeFactory{opts: opts}
}

// NewSession launches a browser and opens its first tab. The browser lives
// until Close is called or ctx is cancelled.
func (f *ChromeFactory) NewSession(ctx context.Context) (Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.opts.Headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if f.opts.Language != "" {
		allocOpts = append(allocOpts, chromedp.Flag("lang", f.opts.Language))
	}
	if f.opts.WindowWidth > 0 && f.opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(f.opts.WindowWidth, f.opts.WindowHeight))
	}
	if f.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(f.opts.UserAgent))
	}
	if f.opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(f.opts.ChromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// The first Run on a fresh context starts the browser
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &chromeSession{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		loadTimeout: f.opts.PageLoadTimeout,
	}, nil
}

type chromeSession struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	loadTimeout time.Duration
}

// run executes actions on the session's tab. Cancelling ctx (or hitting
// timeout) aborts the actions without closing the tab.
func (s *chromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(s.ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(s.ctx)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	if err := s.run(ctx, s.loadTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

func (s *chromeSession) WaitReady(ctx context.Context, selector string) error {
	return s.run(ctx, 0, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (s *chromeSession) PageHeight(ctx context.Context) (int64, error) {
	var height int64
	err := s.run(ctx, 0, chromedp.Evaluate(`document.body.scrollHeight`, &height))
	return height, err
}

func (s *chromeSession) ScrollToBottom(ctx context.Context) error {
	return s.run(ctx, 0, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight);`, nil))
}

func (s *chromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *chromeSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	s.allocCancel()
	return err
}
