package periodic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/clubkit/pkg/logger"
)

// Func is the unit of work executed on every tick.
type Func func(ctx context.Context) error

// Locker guards a run across replicas. TryLock reports ok=false without an
// error when another owner holds the lock.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

type task struct {
	name       string
	schedule   Schedule
	fn         Func
	timeout    time.Duration
	runOnStart bool
}

// Runner executes registered tasks on their schedules until its context ends.
type Runner struct {
	mu     sync.RWMutex
	tasks  map[string]*task
	logger *slog.Logger
	locker Locker
	now    func() time.Time
}

// NewRunner returns an empty Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		tasks:  make(map[string]*task),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a task. Names must be unique.
func (r *Runner) Register(name string, schedule Schedule, fn Func, opts ...TaskOption) error {
	if name == "" || schedule == nil || fn == nil {
		return ErrInvalidTask
	}

	t := &task{name: name, schedule: schedule, fn: fn, timeout: 5 * time.Minute}
	for _, opt := range opts {
		opt(t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[name]; exists {
		return fmt.Errorf("%w: %s", ErrTaskAlreadyRegistered, name)
	}
	r.tasks[name] = t

	r.logger.Info("registered periodic task",
		logger.TaskName(name),
		slog.String("schedule", schedule.String()))
	return nil
}

// Tasks returns registered task names in order.
func (r *Runner) Tasks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start runs every task on its schedule and blocks until ctx is canceled.
// Task failures are logged and never stop the runner.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.RLock()
	tasks := make([]*task, 0, len(r.tasks))
	for _, t := range r.tasks {
		tasks = append(tasks, t)
	}
	r.mu.RUnlock()

	if len(tasks) == 0 {
		return ErrNoTasks
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		g.Go(func() error {
			r.loop(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	r.logger.Info("periodic runner stopped")
	return ctx.Err()
}

// RunNow executes the named task once, honoring the lock and timeout.
func (r *Runner) RunNow(ctx context.Context, name string) error {
	r.mu.RLock()
	t, ok := r.tasks[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	return r.run(ctx, t)
}

func (r *Runner) loop(ctx context.Context, t *task) {
	if t.runOnStart {
		r.runLogged(ctx, t)
	}

	for {
		now := r.now()
		wait := t.schedule.Next(now).Sub(now)
		timer := time.NewTimer(max(wait, 0))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			r.runLogged(ctx, t)
		}
	}
}

func (r *Runner) runLogged(ctx context.Context, t *task) {
	if err := r.run(ctx, t); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.ErrorContext(ctx, "periodic task failed",
			logger.TaskName(t.name),
			logger.Error(err))
	}
}

func (r *Runner) run(ctx context.Context, t *task) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if r.locker != nil {
		unlock, ok, err := r.locker.TryLock(ctx, t.name, t.timeout)
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			r.logger.DebugContext(ctx, "periodic task skipped, lock held elsewhere", logger.TaskName(t.name))
			return nil
		}
		defer func() {
			// the run context may be done already, releasing must still reach the server
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				r.logger.WarnContext(ctx, "failed to release periodic task lock",
					logger.TaskName(t.name),
					logger.Error(err))
			}
		}()
	}

	start := r.now()
	err := t.fn(ctx)
	r.logger.DebugContext(ctx, "periodic task finished",
		logger.TaskName(t.name),
		logger.Duration(r.now().Sub(start)))
	return err
}
