package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	future := transitionInput{sub: &Subscription{TrialEndsAt: now.Add(time.Hour)}, now: now}
	past := transitionInput{sub: &Subscription{TrialEndsAt: now.Add(-time.Hour)}, now: now}

	t.Run("declared events", func(t *testing.T) {
		t.Parallel()

		table := newTransitionTable(false)
		assert.Equal(t, []string{"grace_ended", "payment_confirmed", "trial_ended"}, table.Events(StatusTrialing))
		assert.Equal(t, []string{"canceled"}, table.Events(StatusActive))
		assert.Equal(t, []string{"payment_confirmed"}, table.Events(StatusExpired))
		assert.Empty(t, table.Events(StatusCanceled))

		_, err := table.Fire(ctx, StatusCanceled, eventPaymentConfirmed, nil)
		assert.Error(t, err)
	})

	t.Run("expired is terminal for extensions by default", func(t *testing.T) {
		t.Parallel()

		table := newTransitionTable(false)
		_, err := table.Fire(ctx, StatusExpired, eventExtensionAccepted, future)
		assert.Error(t, err)

		next, err := table.Fire(ctx, StatusGrace, eventExtensionAccepted, future)
		require.NoError(t, err)
		assert.Equal(t, StatusTrialing, next)
	})

	t.Run("reopening expired clubs", func(t *testing.T) {
		t.Parallel()

		table := newTransitionTable(true)
		next, err := table.Fire(ctx, StatusExpired, eventExtensionAccepted, future)
		require.NoError(t, err)
		assert.Equal(t, StatusTrialing, next)

		_, err = table.Fire(ctx, StatusExpired, eventExtensionAccepted, past)
		assert.Error(t, err)
	})

	t.Run("payment reaching an expired club", func(t *testing.T) {
		t.Parallel()

		table := newTransitionTable(false)
		graceEnds := now.Add(-time.Hour)
		sub := &Subscription{TrialEndsAt: graceEnds.Add(-48 * time.Hour)}

		next, err := table.Fire(ctx, StatusExpired, eventPaymentConfirmed,
			transitionInput{sub: sub, now: now, paidAt: graceEnds.Add(-time.Minute), graceEndsAt: graceEnds})
		require.NoError(t, err)
		assert.Equal(t, StatusActive, next)

		_, err = table.Fire(ctx, StatusExpired, eventPaymentConfirmed,
			transitionInput{sub: sub, now: now, paidAt: graceEnds, graceEndsAt: graceEnds})
		assert.Error(t, err)

		_, err = table.Fire(ctx, StatusExpired, eventPaymentConfirmed,
			transitionInput{sub: sub, now: now, graceEndsAt: graceEnds})
		assert.Error(t, err)
	})
}

func TestAdvanceIsForwardOnly(t *testing.T) {
	t.Parallel()

	svc, err := NewService(NewMemoryStore(), NewMemoryMetricsStore(), DefaultPolicy())
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		status Status
		ends   time.Time
		want   Status
	}{
		{"trialing stays before end", StatusTrialing, now.Add(time.Hour), StatusTrialing},
		{"trialing to grace", StatusTrialing, now, StatusGrace},
		{"trialing to expired", StatusTrialing, now.Add(-72 * time.Hour), StatusExpired},
		{"grace to expired", StatusGrace, now.Add(-48 * time.Hour), StatusExpired},
		{"expired never goes back", StatusExpired, now.Add(240 * time.Hour), StatusExpired},
		{"grace never goes back", StatusGrace, now.Add(240 * time.Hour), StatusGrace},
		{"active ignores the clock", StatusActive, now.Add(-720 * time.Hour), StatusActive},
		{"canceled ignores the clock", StatusCanceled, now.Add(-720 * time.Hour), StatusCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sub := &Subscription{Status: tt.status, TrialEndsAt: tt.ends}
			svc.advance(ctx, sub, now)
			assert.Equal(t, tt.want, sub.Status)
			if tt.want != tt.status {
				assert.Equal(t, now, sub.StatusChangedAt)
			}
		})
	}
}

func TestCommitPendingPlan(t *testing.T) {
	t.Parallel()

	svc, err := NewService(NewMemoryStore(), NewMemoryMetricsStore(), DefaultPolicy())
	require.NoError(t, err)

	boundary := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	sub := &Subscription{
		Status:                 StatusActive,
		PlanCycle:              PlanCycleMonthly,
		PendingPlanCycle:       PlanCycleAnnual,
		PendingPlanEffectiveAt: ptr(boundary),
		CurrentPeriodEndsAt:    ptr(boundary),
	}

	assert.False(t, svc.commitPendingPlan(sub, boundary.Add(-time.Second)))
	assert.Equal(t, PlanCycleMonthly, sub.PlanCycle)

	assert.True(t, svc.commitPendingPlan(sub, boundary))
	assert.Equal(t, PlanCycleAnnual, sub.PlanCycle)
	assert.Equal(t, boundary.AddDate(1, 0, 0), *sub.CurrentPeriodEndsAt)
	assert.Nil(t, sub.PendingPlanEffectiveAt)

	assert.False(t, svc.commitPendingPlan(sub, boundary.AddDate(2, 0, 0)))
}

func TestDiffFields(t *testing.T) {
	t.Parallel()

	before, after := diffFields(
		map[string]any{"status": "trialing", "plan_cycle": "", "extension_proposed": false},
		map[string]any{"status": "grace", "plan_cycle": "", "extension_proposed": true},
	)
	assert.Equal(t, map[string]any{"status": "trialing", "extension_proposed": false}, before)
	assert.Equal(t, map[string]any{"status": "grace", "extension_proposed": true}, after)
}
