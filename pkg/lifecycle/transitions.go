package lifecycle

import (
	"context"
	"time"

	"github.com/dmitrymomot/clubkit/pkg/statemachine"
)

// transitionEvent is an input to the status machine.
type transitionEvent string

func (e transitionEvent) Name() string { return string(e) }

const (
	eventTrialEnded        transitionEvent = "trial_ended"
	eventGraceEnded        transitionEvent = "grace_ended"
	eventPaymentConfirmed  transitionEvent = "payment_confirmed"
	eventCanceled          transitionEvent = "canceled"
	eventExtensionAccepted transitionEvent = "extension_accepted"
)

// transitionInput is the data handed to guards.
type transitionInput struct {
	sub *Subscription
	now time.Time

	// paidAt is when the processor took the payment, zero if unknown.
	paidAt      time.Time
	graceEndsAt time.Time
}

// trialReopened lets an accepted extension pull a lapsed club back into its
// trial, but only when the extended end date still lies ahead.
func trialReopened(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
	in, ok := data.(transitionInput)
	return ok && in.sub.TrialEndsAt.After(in.now)
}

// paidInGrace admits a payment that reaches an expired club late although
// the processor took it before the grace window closed.
func paidInGrace(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
	in, ok := data.(transitionInput)
	return ok && !in.paidAt.IsZero() && in.paidAt.Before(in.graceEndsAt)
}

func newTransitionTable(reopenExpired bool) *statemachine.Table {
	opts := []statemachine.Option{
		statemachine.WithTransition(StatusTrialing, StatusGrace, eventTrialEnded),
		statemachine.WithTransition(StatusGrace, StatusExpired, eventGraceEnded),
		// the clock can skip the whole grace window between two reads
		statemachine.WithTransition(StatusTrialing, StatusExpired, eventGraceEnded),

		statemachine.WithTransition(StatusTrialing, StatusActive, eventPaymentConfirmed),
		statemachine.WithTransition(StatusGrace, StatusActive, eventPaymentConfirmed),
		statemachine.WithTransition(StatusExpired, StatusActive, eventPaymentConfirmed,
			statemachine.WithGuard(paidInGrace)),

		statemachine.WithTransition(StatusActive, StatusCanceled, eventCanceled),

		statemachine.WithTransition(StatusGrace, StatusTrialing, eventExtensionAccepted,
			statemachine.WithGuard(trialReopened)),
	}
	if reopenExpired {
		opts = append(opts, statemachine.WithTransition(StatusExpired, StatusTrialing, eventExtensionAccepted,
			statemachine.WithGuard(trialReopened)))
	}
	return statemachine.MustNew(opts...)
}
