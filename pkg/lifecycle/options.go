package lifecycle

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/clubkit/pkg/audit"
)

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now. Tests use it to move through trial phases.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAuditStorage records every committed change and every rejected
// operation in storage.
func WithAuditStorage(storage audit.Storage) Option {
	return func(s *Service) {
		if storage == nil {
			return
		}
		s.audit = audit.NewLogger(storage,
			audit.WithActorIDExtractor(ActorFromContext),
			audit.WithRequestIDExtractor(RequestIDFromContext),
			audit.WithClock(func() time.Time { return s.now() }),
		)
		s.history = audit.NewReader(storage)
	}
}

// WithNotifier sets who tells club administrators about proposals.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithMembershipChecker restricts proposal acceptance to club members.
// Without one the caller's identity is trusted as is.
func WithMembershipChecker(m MembershipChecker) Option {
	return func(s *Service) {
		if m != nil {
			s.members = m
		}
	}
}

// WithBoundaryResolver lets the service ask the payment processor for the
// renewal date of paid clubs that have none on record.
func WithBoundaryResolver(r BoundaryResolver) Option {
	return func(s *Service) {
		if r != nil {
			s.boundaries = r
		}
	}
}
