package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/clubkit/pkg/lifecycle"
)

func TestService_HandleBillingEvent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, lifecycle.DefaultPolicy())
	ctx := context.Background()
	id := h.create(t)
	periodEnd := epoch.AddDate(1, 0, 0)

	v, err := h.svc.HandleBillingEvent(ctx, lifecycle.BillingEvent{
		ID:                     "evt_1",
		ClubID:                 id,
		Type:                   lifecycle.BillingPaymentSucceeded,
		Cycle:                  lifecycle.PlanCycleAnnual,
		PeriodEndsAt:           &periodEnd,
		ProviderSubscriptionID: "sub_01",
		OccurredAt:             epoch,
	})
	require.NoError(t, err)
	sub := v.Subscription
	assert.Equal(t, lifecycle.StatusActive, sub.Status)
	assert.Equal(t, lifecycle.PlanCycleAnnual, sub.PlanCycle)
	assert.Equal(t, periodEnd, *sub.CurrentPeriodEndsAt)
	assert.Equal(t, "sub_01", sub.ProviderSubscriptionID)

	// redelivery of the same event is ignored
	v, err = h.svc.HandleBillingEvent(ctx, lifecycle.BillingEvent{
		ID: "evt_1", ClubID: id, Type: lifecycle.BillingPaymentSucceeded, OccurredAt: epoch,
	})
	require.NoError(t, err)
	assert.Equal(t, sub.Version, v.Subscription.Version)

	// a late cancellation older than the payment is ignored too
	_, err = h.svc.HandleBillingEvent(ctx, lifecycle.BillingEvent{
		ID: "evt_0", ClubID: id, Type: lifecycle.BillingSubscriptionCanceled, OccurredAt: epoch.Add(-time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusActive, h.get(t, id).Status)

	v, err = h.svc.HandleBillingEvent(ctx, lifecycle.BillingEvent{
		ID: "evt_2", ClubID: id, Type: lifecycle.BillingPaymentFailed, OccurredAt: epoch.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusActive, v.Subscription.Status)

	v, err = h.svc.HandleBillingEvent(ctx, lifecycle.BillingEvent{
		ID: "evt_3", ClubID: id, Type: lifecycle.BillingSubscriptionCanceled, OccurredAt: epoch.Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCanceled, v.Subscription.Status)
	assert.NotNil(t, v.Subscription.CanceledAt)

	_, err = h.svc.HandleBillingEvent(ctx, lifecycle.BillingEvent{
		ID: "evt_4", ClubID: id, Type: lifecycle.BillingPaymentSucceeded, OccurredAt: epoch.Add(3 * time.Hour),
	})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestService_HandleBillingEvent_PeriodUpdated(t *testing.T) {
	t.Parallel()

	h := newHarness(t, lifecycle.DefaultPolicy())
	ctx := context.Background()
	id := h.create(t)
	_, err := h.svc.ActivateSubscription(ctx, id)
	require.NoError(t, err)
	_, err = h.svc.ScheduleActivation(ctx, id, lifecycle.PlanCycleAnnual)
	require.NoError(t, err)

	next := epoch.AddDate(0, 2, 0)
	v, err := h.svc.HandleBillingEvent(ctx, lifecycle.BillingEvent{
		ClubID: id, Type: lifecycle.BillingPeriodUpdated, PeriodEndsAt: &next, OccurredAt: epoch.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, next, *v.Subscription.CurrentPeriodEndsAt)

	// renewal dates never move backwards
	earlier := epoch.Add(day)
	v, err = h.svc.HandleBillingEvent(ctx, lifecycle.BillingEvent{
		ClubID: id, Type: lifecycle.BillingPeriodUpdated, PeriodEndsAt: &earlier, OccurredAt: epoch.Add(2 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, next, *v.Subscription.CurrentPeriodEndsAt)

	// a cycle without a newer renewal date is stale
	v, err = h.svc.HandleBillingEvent(ctx, lifecycle.BillingEvent{
		ClubID: id, Type: lifecycle.BillingPeriodUpdated, Cycle: lifecycle.PlanCycleAnnual, OccurredAt: epoch.Add(3 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.PlanCycleMonthly, v.Subscription.PlanCycle)
	assert.Equal(t, lifecycle.PlanCycleAnnual, v.Subscription.PendingPlanCycle)

	// the processor already switched the cycle
	renewal := next.AddDate(1, 0, 0)
	v, err = h.svc.HandleBillingEvent(ctx, lifecycle.BillingEvent{
		ClubID: id, Type: lifecycle.BillingPeriodUpdated, Cycle: lifecycle.PlanCycleAnnual, PeriodEndsAt: &renewal, OccurredAt: epoch.Add(4 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.PlanCycleAnnual, v.Subscription.PlanCycle)
	assert.Empty(t, v.Subscription.PendingPlanCycle)
	assert.Equal(t, renewal, *v.Subscription.CurrentPeriodEndsAt)
}

func TestService_RenewalKeepsCommittedPlanChange(t *testing.T) {
	t.Parallel()

	h := newHarness(t, lifecycle.DefaultPolicy())
	ctx := context.Background()
	id := h.create(t)

	v, err := h.svc.ActivateSubscription(ctx, id)
	require.NoError(t, err)
	boundary := *v.Subscription.CurrentPeriodEndsAt

	h.clock.Set(boundary.Add(-10 * day))
	_, err = h.svc.ScheduleActivation(ctx, id, lifecycle.PlanCycleAnnual)
	require.NoError(t, err)

	h.clock.Set(boundary.Add(time.Hour))
	_, err = h.svc.Sweep(ctx)
	require.NoError(t, err)

	// the processor renews on the cycle it still knows about
	monthlyRenewal := boundary.AddDate(0, 1, 0)
	v, err = h.svc.HandleBillingEvent(ctx, lifecycle.BillingEvent{
		ID:           "evt_renewal",
		ClubID:       id,
		Type:         lifecycle.BillingPaymentSucceeded,
		Cycle:        lifecycle.PlanCycleMonthly,
		PeriodEndsAt: &monthlyRenewal,
		OccurredAt:   boundary.Add(time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusActive, v.Subscription.Status)
	assert.Equal(t, lifecycle.PlanCycleAnnual, v.Subscription.PlanCycle)
	assert.Equal(t, boundary.AddDate(1, 0, 0), *v.Subscription.CurrentPeriodEndsAt)
}

func TestService_HandleBillingEvent_Invalid(t *testing.T) {
	t.Parallel()

	h := newHarness(t, lifecycle.DefaultPolicy())
	ctx := context.Background()
	id := h.create(t)

	tests := []lifecycle.BillingEvent{
		{Type: lifecycle.BillingPaymentSucceeded},
		{ClubID: id, Type: "refund_issued"},
		{ClubID: id, Type: lifecycle.BillingPaymentSucceeded, Cycle: "weekly"},
	}
	for _, ev := range tests {
		_, err := h.svc.HandleBillingEvent(ctx, ev)
		assert.ErrorIs(t, err, lifecycle.ErrInvalidEvent)
	}

	_, err := h.svc.HandleBillingEvent(ctx, lifecycle.BillingEvent{ClubID: uuid.New(), Type: lifecycle.BillingPaymentFailed})
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)

	// a trialing club cannot be canceled by the processor
	_, err = h.svc.HandleBillingEvent(ctx, lifecycle.BillingEvent{ClubID: id, Type: lifecycle.BillingSubscriptionCanceled})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestService_PaymentDuringGrace(t *testing.T) {
	t.Parallel()

	h := newHarness(t, lifecycle.DefaultPolicy())
	ctx := context.Background()
	id := h.create(t)
	h.clock.Advance(15 * day)

	v, err := h.svc.HandleBillingEvent(ctx, lifecycle.BillingEvent{
		ClubID: id, Type: lifecycle.BillingPaymentSucceeded, OccurredAt: h.clock.Now(),
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusActive, v.Subscription.Status)
	assert.Equal(t, lifecycle.PlanCycleMonthly, v.Subscription.PlanCycle)
}

func TestService_LatePaymentFromGrace(t *testing.T) {
	t.Parallel()

	graceEnds := epoch.Add(14*day + 48*time.Hour)

	tests := []struct {
		name       string
		sweepFirst bool
		paidAt     time.Time
		want       lifecycle.Status
		wantErr    error
	}{
		{"paid in grace, delivered after", false, graceEnds.Add(-time.Hour), lifecycle.StatusActive, nil},
		{"paid in grace, expiry already stored", true, graceEnds.Add(-time.Hour), lifecycle.StatusActive, nil},
		{"paid during trial, delivered after grace", true, epoch.Add(10 * day), lifecycle.StatusActive, nil},
		{"paid after grace", true, graceEnds.Add(time.Minute), lifecycle.StatusExpired, lifecycle.ErrInvalidTransition},
		{"no payment time", true, time.Time{}, lifecycle.StatusExpired, lifecycle.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, lifecycle.DefaultPolicy())
			ctx := context.Background()
			id := h.create(t)

			h.clock.Set(graceEnds.Add(time.Hour))
			if tt.sweepFirst {
				_, err := h.svc.Sweep(ctx)
				require.NoError(t, err)
				stored, err := h.store.Get(ctx, id)
				require.NoError(t, err)
				require.Equal(t, lifecycle.StatusExpired, stored.Status)
			}

			_, err := h.svc.HandleBillingEvent(ctx, lifecycle.BillingEvent{
				ID:         "evt_late",
				ClubID:     id,
				Type:       lifecycle.BillingPaymentSucceeded,
				OccurredAt: tt.paidAt,
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			sub := h.get(t, id)
			assert.Equal(t, tt.want, sub.Status)
			if tt.want == lifecycle.StatusActive {
				assert.NotNil(t, sub.ActivatedAt)
				assert.Equal(t, lifecycle.PlanCycleMonthly, sub.PlanCycle)
			}
		})
	}
}
