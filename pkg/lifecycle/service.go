package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/clubkit/pkg/audit"
	"github.com/dmitrymomot/clubkit/pkg/logger"
	"github.com/dmitrymomot/clubkit/pkg/statemachine"
)

const auditResource = "club_subscription"

// Service owns every state change of club subscriptions.
// It is safe for concurrent use; writes race through the store's
// compare-and-set and losers re-read and re-check before retrying.
type Service struct {
	store       Store
	metrics     MetricsStore
	policy      Policy
	transitions *statemachine.Table

	now    func() time.Time
	logger *slog.Logger

	audit   *audit.Logger
	history *audit.Reader

	notifier   Notifier
	members    MembershipChecker
	boundaries BoundaryResolver
}

// NewService panics on nil stores and fails on an invalid policy.
func NewService(store Store, metrics MetricsStore, policy Policy, opts ...Option) (*Service, error) {
	if store == nil {
		panic("lifecycle: store is required")
	}
	if metrics == nil {
		panic("lifecycle: metrics store is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		store:       store,
		metrics:     metrics,
		policy:      policy,
		transitions: newTransitionTable(policy.ReopenExpired),
		now:         time.Now,
		logger:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("lifecycle"))
	return s, nil
}

// CreateOption configures a new subscription.
type CreateOption func(*Subscription)

// WithContact sets who receives extension proposals.
func WithContact(email, clubName string) CreateOption {
	return func(sub *Subscription) {
		sub.ContactEmail = email
		sub.ClubName = clubName
	}
}

// WithTrialStart backdates the trial, for clubs migrated from elsewhere.
func WithTrialStart(t time.Time) CreateOption {
	return func(sub *Subscription) {
		sub.TrialStartedAt = t.UTC()
	}
}

// CreateClubSubscription opens a trial for a new club.
func (s *Service) CreateClubSubscription(ctx context.Context, clubID uuid.UUID, opts ...CreateOption) (*View, error) {
	const action = "subscription.created"
	if clubID == uuid.Nil {
		return nil, fmt.Errorf("%w: club id is required", ErrInvalidEvent)
	}

	now := s.now().UTC()
	sub := &Subscription{
		ClubID:          clubID,
		Status:          StatusTrialing,
		TrialStartedAt:  now,
		StatusChangedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, opt := range opts {
		opt(sub)
	}
	sub.TrialEndsAt = sub.TrialStartedAt.Add(s.policy.TrialLength)

	// a backdated trial may already be past its end
	s.advance(ctx, sub, now)

	if err := s.store.Create(ctx, sub); err != nil {
		err = s.storeError(err)
		s.recordFailure(ctx, action, clubID, err)
		return nil, err
	}

	s.record(ctx, action, nil, sub)
	s.logger.InfoContext(ctx, "club subscription created",
		logger.ClubID(clubID),
		logger.Status(sub.Status.String()),
		slog.Time("trial_ends_at", sub.TrialEndsAt),
	)
	return s.view(sub, now), nil
}

// GetClubSubscription returns the subscription with its grace status computed
// at call time. Time-driven transitions that came due are persisted first.
func (s *Service) GetClubSubscription(ctx context.Context, clubID uuid.UUID) (*View, error) {
	sub, _, err := s.mutate(ctx, clubID, "subscription.refreshed", func(*Subscription, time.Time) (*Extension, error) {
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(sub, s.now()), nil
}

// UpdateContact changes who receives extension proposals.
func (s *Service) UpdateContact(ctx context.Context, clubID uuid.UUID, email, clubName string) (*View, error) {
	sub, _, err := s.mutate(ctx, clubID, "subscription.contact_updated", func(sub *Subscription, _ time.Time) (*Extension, error) {
		sub.ContactEmail = email
		sub.ClubName = clubName
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(sub, s.now()), nil
}

// DeleteClubSubscription removes the club's record, extension and metrics.
func (s *Service) DeleteClubSubscription(ctx context.Context, clubID uuid.UUID) error {
	const action = "subscription.deleted"

	prev, err := s.store.Get(ctx, clubID)
	if err != nil {
		err = s.storeError(err)
		s.recordFailure(ctx, action, clubID, err)
		return err
	}
	if err := s.store.Delete(ctx, clubID); err != nil {
		err = s.storeError(err)
		s.recordFailure(ctx, action, clubID, err)
		return err
	}
	if err := s.metrics.Delete(ctx, clubID); err != nil {
		s.logger.WarnContext(ctx, "failed to delete engagement metrics",
			logger.ClubID(clubID),
			logger.Error(err),
		)
	}

	s.record(ctx, action, prev, nil)
	s.logger.InfoContext(ctx, "club subscription deleted", logger.ClubID(clubID))
	return nil
}

// History returns the club's audit trail, newest first.
// It is empty when the service runs without audit storage.
func (s *Service) History(ctx context.Context, clubID uuid.UUID, limit, offset int) ([]audit.Event, error) {
	if s.history == nil {
		return []audit.Event{}, nil
	}
	events, err := s.history.Find(ctx, audit.Criteria{
		ClubID: clubID.String(),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}
	return events, nil
}

// mutation edits a fresh copy of the record after time-driven transitions
// were applied. Returning an extension routes the write through
// Store.GrantExtension. Any error aborts without writing.
type mutation func(sub *Subscription, now time.Time) (*Extension, error)

// mutate runs fn against the latest record and commits the result with a
// compare-and-set. On a version conflict the whole read-check-write cycle
// repeats, up to Policy.MaxRetries extra attempts. It reports whether a
// write happened.
func (s *Service) mutate(ctx context.Context, clubID uuid.UUID, action string, fn mutation) (*Subscription, bool, error) {
	var conflict error
	for attempt := 0; attempt <= s.policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		sub, err := s.store.Get(ctx, clubID)
		if err != nil {
			err = s.storeError(err)
			s.recordFailure(ctx, action, clubID, err)
			return nil, false, err
		}
		prev := sub.Clone()
		now := s.now().UTC()

		s.advance(ctx, sub, now)
		ext, err := fn(sub, now)
		if err != nil {
			s.recordFailure(ctx, action, clubID, err)
			return nil, false, err
		}
		if reflect.DeepEqual(prev, sub) {
			return sub, false, nil
		}

		sub.UpdatedAt = now
		if ext != nil {
			err = s.store.GrantExtension(ctx, sub, prev.Version, *ext)
		} else {
			err = s.store.Update(ctx, sub, prev.Version)
		}
		if errors.Is(err, ErrVersionConflict) {
			conflict = err
			s.logger.DebugContext(ctx, "version conflict, retrying",
				logger.ClubID(clubID),
				logger.Event(action),
				slog.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			err = s.storeError(err)
			s.recordFailure(ctx, action, clubID, err)
			return nil, false, err
		}

		s.record(ctx, action, prev, sub)
		if prev.Status != sub.Status {
			s.logger.InfoContext(ctx, "subscription status changed",
				logger.ClubID(clubID),
				logger.Event(action),
				logger.Transition(prev.Status.String(), sub.Status.String()),
			)
		}
		return sub, true, nil
	}

	err := errors.Join(ErrPersistence, conflict)
	s.recordFailure(ctx, action, clubID, err)
	return nil, false, err
}

// advance applies time-driven transitions and due plan changes to sub.
// The clock only ever moves a club forward along trialing, grace, expired.
func (s *Service) advance(ctx context.Context, sub *Subscription, now time.Time) {
	s.commitPendingPlan(sub, now)

	implied := CalculateGrace(sub.TrialEndsAt, now, s.policy.GraceWindow).Phase
	if sub.Status.rank() < 0 || implied.rank() <= sub.Status.rank() {
		return
	}

	event := eventGraceEnded
	if implied == StatusGrace {
		event = eventTrialEnded
	}
	if err := s.fire(ctx, sub, event, now); err != nil {
		// unreachable with the transition table as declared
		s.logger.ErrorContext(ctx, "time-driven transition failed",
			logger.ClubID(sub.ClubID),
			logger.Status(sub.Status.String()),
			logger.Error(err),
		)
	}
}

// fire moves sub through the transition table.
func (s *Service) fire(ctx context.Context, sub *Subscription, event transitionEvent, now time.Time) error {
	return s.fireWith(ctx, event, transitionInput{sub: sub, now: now})
}

func (s *Service) fireWith(ctx context.Context, event transitionEvent, in transitionInput) error {
	sub := in.sub
	next, err := s.transitions.Fire(ctx, sub.Status, event, in)
	if err != nil {
		return fmt.Errorf("%w: %s on %s: %w", ErrInvalidTransition, sub.Status, event, err)
	}
	status, ok := next.(Status)
	if !ok {
		return fmt.Errorf("%w: unexpected state %v", ErrInvalidTransition, next)
	}
	sub.Status = status
	sub.StatusChangedAt = in.now
	return nil
}

func (s *Service) view(sub *Subscription, now time.Time) *View {
	return &View{
		Subscription: sub,
		Grace:        CalculateGrace(sub.TrialEndsAt, now, s.policy.GraceWindow),
	}
}

// storeError keeps the store's sentinels and wraps anything else as a
// persistence failure.
func (s *Service) storeError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrSubscriptionExists),
		errors.Is(err, ErrAlreadyExtended),
		errors.Is(err, ErrVersionConflict),
		errors.Is(err, ErrPersistence),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return errors.Join(ErrPersistence, err)
}

// record writes the audit entry for a committed change. The change is
// already durable, so audit failures are logged and swallowed.
func (s *Service) record(ctx context.Context, action string, prev, curr *Subscription) {
	if s.audit == nil {
		return
	}
	clubID := clubIDOf(prev, curr)
	before, after := diffFields(auditFields(prev), auditFields(curr))
	if err := s.audit.Log(ctx, action,
		audit.WithClubID(clubID.String()),
		audit.WithResource(auditResource, clubID.String()),
		audit.WithChange(before, after),
	); err != nil {
		s.logger.WarnContext(ctx, "failed to write audit entry",
			logger.ClubID(clubID),
			logger.Event(action),
			logger.Error(err),
		)
	}
}

// recordFailure audits a rejected operation. Missing clubs are not audited.
func (s *Service) recordFailure(ctx context.Context, action string, clubID uuid.UUID, cause error) {
	if s.audit == nil || errors.Is(cause, ErrNotFound) {
		return
	}
	if err := s.audit.LogError(ctx, action, cause,
		audit.WithClubID(clubID.String()),
		audit.WithResource(auditResource, clubID.String()),
	); err != nil {
		s.logger.WarnContext(ctx, "failed to write audit entry",
			logger.ClubID(clubID),
			logger.Event(action),
			logger.Error(err),
		)
	}
}

func clubIDOf(subs ...*Subscription) uuid.UUID {
	for _, sub := range subs {
		if sub != nil {
			return sub.ClubID
		}
	}
	return uuid.Nil
}

// auditFields flattens the audited part of sub into strings, bools and ints.
func auditFields(sub *Subscription) map[string]any {
	if sub == nil {
		return map[string]any{}
	}
	return map[string]any{
		"status":                    sub.Status.String(),
		"trial_ends_at":             formatTime(&sub.TrialEndsAt),
		"plan_cycle":                sub.PlanCycle.String(),
		"pending_plan_cycle":        sub.PendingPlanCycle.String(),
		"pending_plan_effective_at": formatTime(sub.PendingPlanEffectiveAt),
		"current_period_ends_at":    formatTime(sub.CurrentPeriodEndsAt),
		"extension_kind":            string(sub.ExtensionKind),
		"extension_proposed":        sub.ExtensionProposed,
		"extension_days":            sub.ExtensionProposedDays,
		"extension_accepted_at":     formatTime(sub.ExtensionAcceptedAt),
		"provider_subscription_id":  sub.ProviderSubscriptionID,
		"contact_email":             sub.ContactEmail,
		"activated_at":              formatTime(sub.ActivatedAt),
		"canceled_at":               formatTime(sub.CanceledAt),
	}
}

// diffFields keeps only the keys whose values differ.
func diffFields(prev, curr map[string]any) (map[string]any, map[string]any) {
	before := make(map[string]any)
	after := make(map[string]any)
	for k, v := range curr {
		if old, ok := prev[k]; !ok || old != v {
			before[k] = prev[k]
			after[k] = v
		}
	}
	for k, v := range prev {
		if _, ok := curr[k]; !ok {
			before[k] = v
			after[k] = nil
		}
	}
	return before, after
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
