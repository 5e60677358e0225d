package periodic

import (
	"log/slog"
	"time"
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithLocker makes every run acquire a lock named after the task first, so
// only one replica executes a given tick. Runs that lose the race are skipped.
func WithLocker(l Locker) Option {
	return func(r *Runner) { r.locker = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// TaskOption configures a single task.
type TaskOption func(*task)

// WithTimeout bounds a single run. The lock TTL follows it.
func WithTimeout(d time.Duration) TaskOption {
	return func(t *task) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// RunOnStart executes the task once as soon as the runner starts.
func RunOnStart() TaskOption {
	return func(t *task) { t.runOnStart = true }
}
