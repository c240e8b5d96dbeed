package browser

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/pevans/newshound/logger"
)

// Navigator defaults.
const (
	DefaultMinDelay       = 1 * time.Second
	DefaultMaxDelay       = 3 * time.Second
	DefaultMaxSettleSteps = 20
)

// Navigator drives a session through the steps of loading a dynamic page:
// visit, wait for content, scroll until the page stops growing.
type Navigator struct {
	MinDelay       time.Duration
	MaxDelay       time.Duration
	MaxSettleSteps int

	// Sleep waits for d or until ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
	// Int64N returns a uniform random number in [0, n).
	Int64N func(n int64) int64

	log *zap.Logger
}

// NewNavigator creates a navigator with the default delays and settle cap.
func NewNavigator(log *zap.Logger) *Navigator {
	return &Navigator{
		MinDelay:       DefaultMinDelay,
		MaxDelay:       DefaultMaxDelay,
		MaxSettleSteps: DefaultMaxSettleSteps,
		Sleep:          sleepContext,
		Int64N:         rand.Int64N,
		log:            logger.OrNop(log),
	}
}

// Navigate visits url and then pauses for a random delay so requests don't
// arrive in lockstep. It returns false when the visit failed.
func (n *Navigator) Navigate(ctx context.Context, s Session, url string) bool {
	if err := s.Navigate(ctx, url); err != nil {
		n.logger().Warn("navigation failed", zap.String("url", url), zap.Error(err))
		return false
	}

	if err := n.sleep(ctx, n.jitter()); err != nil {
		n.logger().Warn("navigation interrupted", zap.String("url", url), zap.Error(err))
		return false
	}
	return true
}

// AwaitSelector waits up to timeout for an element matching selector.
// A timeout yields ErrNoContent; other failures are returned as they are.
func (n *Navigator) AwaitSelector(ctx context.Context, s Session, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := s.WaitReady(waitCtx, selector)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return ErrNoContent
	}
	return err
}

// SettlePage scrolls to the bottom until two consecutive height readings
// match, so lazily loaded results get rendered. It gives up after
// MaxSettleSteps scrolls and returns the number of steps taken.
func (n *Navigator) SettlePage(ctx context.Context, s Session, pause time.Duration) (int, error) {
	last, err := s.PageHeight(ctx)
	if err != nil {
		return 0, err
	}

	maxSteps := n.MaxSettleSteps
	if maxSteps < 1 {
		maxSteps = DefaultMaxSettleSteps
	}

	for step := 1; step <= maxSteps; step++ {
		if err := s.ScrollToBottom(ctx); err != nil {
			return step, err
		}
		if err := n.sleep(ctx, pause); err != nil {
			return step, err
		}

		height, err := s.PageHeight(ctx)
		if err != nil {
			return step, err
		}
		if height == last {
			return step, nil
		}
		last = height
	}

	n.logger().Warn("page height never settled", zap.Int("steps", maxSteps))
	return maxSteps, nil
}

func (n *Navigator) jitter() time.Duration {
	lo, hi := n.MinDelay, n.MaxDelay
	if hi <= lo {
		return lo
	}
	draw := rand.Int64N
	if n.Int64N != nil {
		draw = n.Int64N
	}
	return lo + time.Duration(draw(int64(hi-lo)+1))
}

func (n *Navigator) sleep(ctx context.Context, d time.Duration) error {
	if n.Sleep == nil {
		return sleepContext(ctx, d)
	}
	return n.Sleep(ctx, d)
}

func (n *Navigator) logger() *zap.Logger {
	return logger.OrNop(n.log)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
