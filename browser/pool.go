package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/pevans/newshound/logger"
)

// Pool is a fixed-size set of sessions. Tasks check a session out with
// Acquire (or With) and own it exclusively until Release.
type Pool struct {
	sessions chan Session
	done     chan struct{}
	size     int
	inUse    atomic.Int64
	log      *zap.Logger

	mu     sync.Mutex
	out    map[Session]struct{} // Checked out, guarded by mu
	closed bool
}

// NewPool creates size sessions up front. If any of them fails to start,
// the ones already created are closed and the error is returned.
func NewPool(ctx context.Context, factory Factory, size int, log *zap.Logger) (*Pool, error) {
	if size < 1 {
		return nil, ErrInvalidPoolSize
	}

	p := &Pool{
		sessions: make(chan Session, size),
		done:     make(chan struct{}),
		size:     size,
		log:      logger.OrNop(log),
		out:      make(map[Session]struct{}, size),
	}

	for i := 0; i < size; i++ {
		s, err := factory.NewSession(ctx)
		if err != nil {
			p.Shutdown()
			return nil, fmt.Errorf("failed to create session %d of %d: %w", i+1, size, err)
		}
		p.sessions <- s
	}

	p.log.Info("session pool ready", zap.Int("size", size))
	return p, nil
}

// Size returns the number of sessions the pool was created with.
func (p *Pool) Size() int {
	return p.size
}

// InUse returns the number of sessions currently checked out.
func (p *Pool) InUse() int {
	return int(p.inUse.Load())
}

// Acquire blocks until a session is free, ctx is done or the pool is shut
// down.
func (p *Pool) Acquire(ctx context.Context) (Session, error) {
	select {
	case <-p.done:
		return nil, ErrPoolClosed
	default:
	}

	select {
	case s := <-p.sessions:
		p.mu.Lock()
		p.out[s] = struct{}{}
		p.mu.Unlock()
		p.inUse.Add(1)
		return s, nil
	case <-p.done:
		return nil, ErrPoolClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a session to the pool. Sessions released after Shutdown
// are closed instead. Releasing a session that is not checked out is
// logged and ignored.
func (p *Pool) Release(s Session) {
	if s == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.out[s]; !ok {
		p.log.Warn("released a session that is not checked out")
		return
	}
	delete(p.out, s)
	p.inUse.Add(-1)

	if p.closed {
		p.closeSession(s)
		return
	}

	select {
	case p.sessions <- s:
	default:
		p.log.Warn("session pool full, closing surplus session")
		p.closeSession(s)
	}
}

// With runs fn with an exclusively held session. The session is released
// on every path, panics included.
func (p *Pool) With(ctx context.Context, fn func(Session) error) error {
	s, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(s)

	return fn(s)
}

// Shutdown closes every idle session. Close errors are logged and
// swallowed. Calling Shutdown more than once is safe.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.done)

	closed := 0
	for {
		select {
		case s := <-p.sessions:
			p.closeSession(s)
			closed++
		default:
			p.log.Info("session pool shut down",
				zap.Int("closed", closed),
				zap.Int("in_use", p.InUse()),
			)
			return
		}
	}
}

func (p *Pool) closeSession(s Session) {
	if err := s.Close(); err != nil {
		p.log.Warn("failed to close session", zap.Error(err))
	}
}
