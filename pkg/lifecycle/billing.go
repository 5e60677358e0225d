package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/clubkit/pkg/logger"
)

// BillingEventType is a normalized payment processor notification.
type BillingEventType string

const (
	BillingPaymentSucceeded     BillingEventType = "payment_succeeded"
	BillingPaymentFailed        BillingEventType = "payment_failed"
	BillingPeriodUpdated        BillingEventType = "period_updated"
	BillingSubscriptionCanceled BillingEventType = "subscription_canceled"
)

// Valid reports whether t is a known type.
func (t BillingEventType) Valid() bool {
	switch t {
	case BillingPaymentSucceeded, BillingPaymentFailed, BillingPeriodUpdated, BillingSubscriptionCanceled:
		return true
	}
	return false
}

// BillingEvent is what payment adapters hand to the service.
type BillingEvent struct {
	ID                     string           `json:"id"`
	ClubID                 uuid.UUID        `json:"club_id"`
	Type                   BillingEventType `json:"type"`
	Cycle                  PlanCycle        `json:"cycle,omitempty"`
	PeriodEndsAt           *time.Time       `json:"period_ends_at,omitempty"`
	ProviderSubscriptionID string           `json:"provider_subscription_id,omitempty"`
	OccurredAt             time.Time        `json:"occurred_at,omitzero"`
}

// Validate checks the fields every event needs.
func (e BillingEvent) Validate() error {
	if e.ClubID == uuid.Nil {
		return fmt.Errorf("%w: club id is required", ErrInvalidEvent)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown billing event type %q", ErrInvalidEvent, e.Type)
	}
	if e.Cycle != "" && !e.Cycle.Valid() {
		return fmt.Errorf("%w: %w %q", ErrInvalidEvent, ErrInvalidPlanCycle, e.Cycle)
	}
	return nil
}

// HandleBillingEvent applies a processor notification. Events that are not
// newer than the last one applied are ignored, which makes redelivery and
// out-of-order delivery harmless.
func (s *Service) HandleBillingEvent(ctx context.Context, ev BillingEvent) (*View, error) {
	action := "billing." + string(ev.Type)
	if err := ev.Validate(); err != nil {
		s.recordFailure(ctx, action, ev.ClubID, err)
		return nil, err
	}

	sub, changed, err := s.mutate(ctx, ev.ClubID, action, func(sub *Subscription, now time.Time) (*Extension, error) {
		if !ev.OccurredAt.IsZero() && sub.LastBillingEventAt != nil && !ev.OccurredAt.After(*sub.LastBillingEventAt) {
			return nil, nil
		}

		switch ev.Type {
		case BillingPaymentSucceeded:
			if err := s.applyPayment(ctx, sub, ev, now); err != nil {
				return nil, err
			}
		case BillingPaymentFailed:
			// the processor retries on its own; status stays as is
		case BillingPeriodUpdated:
			if sub.Status.Terminal() {
				return nil, nil
			}
			syncPeriod(sub, ev)
		case BillingSubscriptionCanceled:
			if sub.Status == StatusCanceled {
				return nil, nil
			}
			if err := s.fire(ctx, sub, eventCanceled, now); err != nil {
				return nil, err
			}
			sub.CanceledAt = ptr(now)
			clearPendingPlan(sub)
		}

		if ev.ProviderSubscriptionID != "" {
			sub.ProviderSubscriptionID = ev.ProviderSubscriptionID
		}
		if !ev.OccurredAt.IsZero() {
			sub.LastBillingEventAt = ptr(ev.OccurredAt.UTC())
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "billing event handled",
		logger.ClubID(ev.ClubID),
		logger.Event(string(ev.Type)),
		logger.Status(sub.Status.String()),
		slog.String("billing_event_id", ev.ID),
		slog.Bool("applied", changed),
	)
	return s.view(sub, s.now()), nil
}

func (s *Service) applyPayment(ctx context.Context, sub *Subscription, ev BillingEvent, now time.Time) error {
	switch sub.Status {
	case StatusTrialing, StatusGrace, StatusExpired:
		// an expired club only reactivates when the payment predates the end of grace
		err := s.fireWith(ctx, eventPaymentConfirmed, transitionInput{
			sub:         sub,
			now:         now,
			paidAt:      ev.OccurredAt,
			graceEndsAt: sub.TrialEndsAt.Add(s.policy.GraceWindow),
		})
		if err != nil {
			return err
		}
		s.startPaidPeriod(sub, ev.Cycle, ev.PeriodEndsAt, now)
		return nil
	case StatusActive:
		syncPeriod(sub, ev)
		return nil
	}
	return fmt.Errorf("%w: payment for a %s club", ErrInvalidTransition, sub.Status)
}

// syncPeriod copies the processor's view of the cycle and renewal date.
// Only a renewal date past the stored one is newer than local state; an
// older or equal one must not undo a plan change committed at the boundary.
func syncPeriod(sub *Subscription, ev BillingEvent) {
	if ev.PeriodEndsAt == nil {
		return
	}
	if sub.CurrentPeriodEndsAt != nil && !ev.PeriodEndsAt.After(*sub.CurrentPeriodEndsAt) {
		return
	}
	sub.CurrentPeriodEndsAt = ptr(ev.PeriodEndsAt.UTC())
	if ev.Cycle.Valid() && ev.Cycle != sub.PlanCycle {
		sub.PlanCycle = ev.Cycle
		if sub.PendingPlanCycle == ev.Cycle {
			clearPendingPlan(sub)
		}
	}
}
