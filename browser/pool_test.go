package browser_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pevans/newshound/browser"
	"github.com/pevans/newshound/browser/browsertest"
)

// Test helper: a pool over the fake backend
func createTestPool(t *testing.T, backend *browsertest.Backend, size int) *browser.Pool {
	t.Helper()
	pool, err := browser.NewPool(context.Background(), backend, size, nil)
	require.NoError(t, err)
	t.Cleanup(pool.Shutdown)
	return pool
}

// TestNewPool verifies all sessions are created up front
func TestNewPool(t *testing.T) {
	backend := &browsertest.Backend{}
	pool := createTestPool(t, backend, 3)

	assert.Equal(t, 3, pool.Size())
	assert.Equal(t, 0, pool.InUse())
	assert.Equal(t, 3, backend.Created())
}

// TestNewPool_InvalidSize verifies a zero-sized pool is rejected
func TestNewPool_InvalidSize(t *testing.T) {
	_, err := browser.NewPool(context.Background(), &browsertest.Backend{}, 0, nil)
	assert.ErrorIs(t, err, browser.ErrInvalidPoolSize)
}

// TestNewPool_CreationFailure verifies partial pools are torn down
func TestNewPool_CreationFailure(t *testing.T) {
	backend := &browsertest.Backend{FailAfter: 2}

	pool, err := browser.NewPool(context.Background(), backend, 3, nil)
	require.Error(t, err)
	assert.Nil(t, pool)
	assert.Equal(t, 2, backend.Created())
	assert.Equal(t, 2, backend.Closed())
}

// TestPool_AcquireBlocksWhenEmpty verifies callers wait for a free session
func TestPool_AcquireBlocksWhenEmpty(t *testing.T) {
	pool := createTestPool(t, &browsertest.Backend{}, 1)

	s, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pool.InUse())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	pool.Release(s)
	assert.Equal(t, 0, pool.InUse())

	s2, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, s, s2)
	pool.Release(s2)
}

// TestPool_With_ReleasesOnPanic verifies the session returns after a panic
func TestPool_With_ReleasesOnPanic(t *testing.T) {
	pool := createTestPool(t, &browsertest.Backend{}, 1)

	assert.Panics(t, func() {
		_ = pool.With(context.Background(), func(browser.Session) error {
			panic("boom")
		})
	})
	assert.Equal(t, 0, pool.InUse())

	want := errors.New("task failed")
	err := pool.With(context.Background(), func(browser.Session) error { return want })
	assert.ErrorIs(t, err, want)
	assert.Equal(t, 0, pool.InUse())
}

// TestPool_ExclusiveUse verifies no session is shared and InUse stays bounded
func TestPool_ExclusiveUse(t *testing.T) {
	backend := &browsertest.Backend{
		Handler: func(string) (browsertest.Page, bool) {
			return browsertest.Page{HTML: "<html></html>"}, true
		},
	}
	pool := createTestPool(t, backend, 3)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		maxSeen int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.With(context.Background(), func(s browser.Session) error {
				mu.Lock()
				maxSeen = max(maxSeen, pool.InUse())
				mu.Unlock()

				_ = s.Navigate(context.Background(), "https://example.com")
				_, err := s.HTML(context.Background())
				return err
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxSeen, pool.Size())
	assert.Equal(t, 0, backend.Violations())
	assert.Equal(t, 0, pool.InUse())
}

// TestPool_Shutdown verifies every session closes despite close errors
func TestPool_Shutdown(t *testing.T) {
	backend := &browsertest.Backend{CloseErr: errors.New("close failed")}
	pool, err := browser.NewPool(context.Background(), backend, 3, nil)
	require.NoError(t, err)

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	pool.Shutdown()
	assert.Equal(t, 2, backend.Closed())

	// Sessions returned after shutdown are closed instead of pooled
	pool.Release(held)
	assert.Equal(t, 3, backend.Closed())

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, browser.ErrPoolClosed)

	assert.NotPanics(t, pool.Shutdown)
}

// TestPool_ReleaseTwice verifies a repeated release neither skews InUse nor
// blocks Shutdown
func TestPool_ReleaseTwice(t *testing.T) {
	backend := &browsertest.Backend{}
	pool, err := browser.NewPool(context.Background(), backend, 1, nil)
	require.NoError(t, err)

	s, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	pool.Release(s)
	pool.Release(s)
	assert.Equal(t, 0, pool.InUse())

	// A session that never came from this pool is ignored
	other, err := (&browsertest.Backend{}).NewSession(context.Background())
	require.NoError(t, err)
	pool.Release(other)
	assert.Equal(t, 0, pool.InUse())

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Shutdown blocked")
	}
	assert.Equal(t, 1, backend.Closed())
}
