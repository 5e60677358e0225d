package periodic_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/clubkit/pkg/logger"
	"github.com/dmitrymomot/clubkit/pkg/periodic"
)

type stubLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	released atomic.Int32
	err      error
}

func (l *stubLocker) TryLock(_ context.Context, name string, _ time.Duration) (func(context.Context) error, bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return nil, false, nil
	}
	l.held[name] = true
	return func(context.Context) error {
		l.mu.Lock()
		delete(l.held, name)
		l.mu.Unlock()
		l.released.Add(1)
		return nil
	}, true, nil
}

func TestRunner_Register(t *testing.T) {
	t.Parallel()

	r := periodic.NewRunner(periodic.WithLogger(logger.Discard()))
	noop := func(context.Context) error { return nil }

	require.NoError(t, r.Register("b", periodic.Every(time.Minute), noop))
	require.NoError(t, r.Register("a", periodic.Every(time.Minute), noop))
	assert.ErrorIs(t, r.Register("a", periodic.Every(time.Minute), noop), periodic.ErrTaskAlreadyRegistered)
	assert.ErrorIs(t, r.Register("", periodic.Every(time.Minute), noop), periodic.ErrInvalidTask)
	assert.ErrorIs(t, r.Register("c", nil, noop), periodic.ErrInvalidTask)
	assert.ErrorIs(t, r.Register("c", periodic.Every(time.Minute), nil), periodic.ErrInvalidTask)

	assert.Equal(t, []string{"a", "b"}, r.Tasks())
}

func TestRunner_Start(t *testing.T) {
	t.Parallel()

	t.Run("no tasks", func(t *testing.T) {
		t.Parallel()
		err := periodic.NewRunner(periodic.WithLogger(logger.Discard())).Start(context.Background())
		assert.ErrorIs(t, err, periodic.ErrNoTasks)
	})

	t.Run("ticks until canceled and survives failures", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		r := periodic.NewRunner(periodic.WithLogger(logger.Discard()))
		require.NoError(t, r.Register("sweep", periodic.Every(5*time.Millisecond), func(context.Context) error {
			calls.Add(1)
			return errors.New("transient")
		}, periodic.RunOnStart()))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- r.Start(ctx) }()

		assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			require.Fail(t, "runner did not stop")
		}
	})
}

func TestRunner_RunNow(t *testing.T) {
	t.Parallel()

	t.Run("unknown task", func(t *testing.T) {
		t.Parallel()
		r := periodic.NewRunner(periodic.WithLogger(logger.Discard()))
		assert.ErrorIs(t, r.RunNow(context.Background(), "missing"), periodic.ErrTaskNotFound)
	})

	t.Run("lock held elsewhere skips the run", func(t *testing.T) {
		t.Parallel()

		locker := &stubLocker{held: map[string]bool{"sweep": true}}
		var calls atomic.Int32
		r := periodic.NewRunner(periodic.WithLogger(logger.Discard()), periodic.WithLocker(locker))
		require.NoError(t, r.Register("sweep", periodic.Every(time.Hour), func(context.Context) error {
			calls.Add(1)
			return nil
		}))

		require.NoError(t, r.RunNow(context.Background(), "sweep"))
		assert.Zero(t, calls.Load())
	})

	t.Run("lock is released after run", func(t *testing.T) {
		t.Parallel()

		locker := &stubLocker{held: map[string]bool{}}
		boom := errors.New("boom")
		r := periodic.NewRunner(periodic.WithLogger(logger.Discard()), periodic.WithLocker(locker))
		require.NoError(t, r.Register("sweep", periodic.Every(time.Hour), func(context.Context) error { return boom }))

		assert.ErrorIs(t, r.RunNow(context.Background(), "sweep"), boom)
		assert.Equal(t, int32(1), locker.released.Load())
		assert.ErrorIs(t, r.RunNow(context.Background(), "sweep"), boom, "lock must be free again")
	})

	t.Run("lock error", func(t *testing.T) {
		t.Parallel()

		locker := &stubLocker{err: errors.New("redis down")}
		r := periodic.NewRunner(periodic.WithLogger(logger.Discard()), periodic.WithLocker(locker))
		require.NoError(t, r.Register("sweep", periodic.Every(time.Hour), func(context.Context) error { return nil }))

		err := r.RunNow(context.Background(), "sweep")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis down")
	})

	t.Run("timeout bounds the run", func(t *testing.T) {
		t.Parallel()

		r := periodic.NewRunner(periodic.WithLogger(logger.Discard()))
		require.NoError(t, r.Register("slow", periodic.Every(time.Hour), func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}, periodic.WithTimeout(10*time.Millisecond)))

		assert.ErrorIs(t, r.RunNow(context.Background(), "slow"), context.DeadlineExceeded)
	})
}
