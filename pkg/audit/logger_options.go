package audit

import (
	"context"
	"time"
)

// Option configures Logger behavior during initialization
type Option func(*Logger)

// Context extractors enable automatic population of audit events from request context.
// If extraction fails, the corresponding event field stays empty.

func WithClubIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) {
		l.clubIDExtractor = fn
	}
}

func WithActorIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) {
		l.actorIDExtractor = fn
	}
}

func WithRequestIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) {
		l.requestIDExtractor = fn
	}
}

// WithClock overrides the timestamp source, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}
