package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/clubkit/pkg/logger"
)

// ScheduleActivation picks the plan cycle of a club. Clubs without a running
// paid period switch at once. Clubs in the middle of a paid period keep
// their cycle until the period ends, and the change is committed at that
// boundary. Asking for the cycle already in force cancels a pending change.
func (s *Service) ScheduleActivation(ctx context.Context, clubID uuid.UUID, cycle PlanCycle) (*View, error) {
	const action = "plan.scheduled"
	if !cycle.Valid() {
		err := fmt.Errorf("%w: %q", ErrInvalidPlanCycle, cycle)
		s.recordFailure(ctx, action, clubID, err)
		return nil, err
	}

	boundary, err := s.resolveBoundary(ctx, clubID)
	if err != nil {
		s.recordFailure(ctx, action, clubID, err)
		return nil, err
	}

	sub, _, err := s.mutate(ctx, clubID, action, func(sub *Subscription, now time.Time) (*Extension, error) {
		if sub.Status.Terminal() {
			return nil, fmt.Errorf("%w: cannot schedule a plan for a %s club", ErrInvalidTransition, sub.Status)
		}
		if boundary != nil && sub.CurrentPeriodEndsAt == nil && sub.Status == StatusActive {
			sub.CurrentPeriodEndsAt = boundary
		}

		if !s.inPaidPeriod(sub, now) {
			sub.PlanCycle = cycle
			clearPendingPlan(sub)
			return nil, nil
		}

		switch cycle {
		case sub.PlanCycle:
			clearPendingPlan(sub)
		case sub.PendingPlanCycle:
		default:
			sub.PendingPlanCycle = cycle
			sub.PendingPlanEffectiveAt = cloneTime(sub.CurrentPeriodEndsAt)
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "plan cycle scheduled",
		logger.ClubID(clubID),
		logger.PlanCycle(cycle.String()),
		logger.Group("current", logger.PlanCycle(sub.PlanCycle.String())),
	)
	return s.view(sub, s.now()), nil
}

// ActivateSubscription converts a trialing or grace club to paid on the
// cycle it picked, or Policy.DefaultCycle if it never picked one.
// Activating an active club is a no-op.
func (s *Service) ActivateSubscription(ctx context.Context, clubID uuid.UUID) (*View, error) {
	sub, _, err := s.mutate(ctx, clubID, "subscription.activated", func(sub *Subscription, now time.Time) (*Extension, error) {
		if sub.Status == StatusActive {
			return nil, nil
		}
		if err := s.fire(ctx, sub, eventPaymentConfirmed, now); err != nil {
			return nil, err
		}
		s.startPaidPeriod(sub, "", nil, now)
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return s.view(sub, s.now()), nil
}

// startPaidPeriod fills in the paid fields of a freshly activated club.
// cycle and periodEnd override the club's choice when the processor sent them.
func (s *Service) startPaidPeriod(sub *Subscription, cycle PlanCycle, periodEnd *time.Time, now time.Time) {
	switch {
	case cycle.Valid():
	case sub.PlanCycle.Valid():
		cycle = sub.PlanCycle
	default:
		cycle = s.policy.DefaultCycle
	}
	sub.PlanCycle = cycle
	clearPendingPlan(sub)
	sub.ActivatedAt = ptr(now)
	sub.CanceledAt = nil
	if periodEnd != nil {
		sub.CurrentPeriodEndsAt = ptr(periodEnd.UTC())
	} else {
		sub.CurrentPeriodEndsAt = ptr(cycle.Next(now))
	}
}

func (s *Service) inPaidPeriod(sub *Subscription, now time.Time) bool {
	return sub.Status == StatusActive &&
		sub.PlanCycle.Valid() &&
		sub.CurrentPeriodEndsAt != nil &&
		sub.CurrentPeriodEndsAt.After(now)
}

// resolveBoundary asks the payment processor for the renewal date of a paid
// club that has none on record. It returns nil when there is nothing to ask.
func (s *Service) resolveBoundary(ctx context.Context, clubID uuid.UUID) (*time.Time, error) {
	if s.boundaries == nil {
		return nil, nil
	}
	sub, err := s.store.Get(ctx, clubID)
	if err != nil {
		return nil, s.storeError(err)
	}
	if sub.Status != StatusActive || sub.CurrentPeriodEndsAt != nil || sub.ProviderSubscriptionID == "" {
		return nil, nil
	}
	b, err := s.boundaries.RenewalBoundary(ctx, sub.ProviderSubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("resolve renewal boundary: %w", err)
	}
	if b.IsZero() {
		return nil, nil
	}
	return ptr(b.UTC()), nil
}

// commitPendingPlan makes a scheduled cycle current once its boundary has
// passed and rolls the period end forward by one new cycle. It is a no-op
// when nothing is due, so it can run on every read.
func (s *Service) commitPendingPlan(sub *Subscription, now time.Time) bool {
	if sub.PendingPlanCycle == "" || sub.PendingPlanEffectiveAt == nil {
		return false
	}
	if now.Before(*sub.PendingPlanEffectiveAt) {
		return false
	}
	boundary := *sub.PendingPlanEffectiveAt
	sub.PlanCycle = sub.PendingPlanCycle
	sub.CurrentPeriodEndsAt = ptr(sub.PlanCycle.Next(boundary))
	clearPendingPlan(sub)
	return true
}

func clearPendingPlan(sub *Subscription) {
	sub.PendingPlanCycle = ""
	sub.PendingPlanEffectiveAt = nil
}
