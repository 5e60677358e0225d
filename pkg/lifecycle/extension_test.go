package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/clubkit/pkg/audit"
	"github.com/dmitrymomot/clubkit/pkg/lifecycle"
)

const day = 24 * time.Hour

func TestService_GrantAutoExtension(t *testing.T) {
	t.Parallel()

	h := newHarness(t, lifecycle.DefaultPolicy())
	ctx := context.Background()
	id := h.create(t)

	v, err := h.svc.GrantAutoExtension(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(29*day), v.Subscription.TrialEndsAt)
	assert.Equal(t, lifecycle.ExtensionAuto, v.Subscription.ExtensionKind)
	assert.False(t, v.Subscription.ExtensionProposed)

	ext, ok := h.store.Extension(id)
	require.True(t, ok)
	assert.Equal(t, lifecycle.ExtensionAuto, ext.Kind)
	assert.Equal(t, 15, ext.Days)

	_, err = h.svc.GrantAutoExtension(ctx, id)
	require.ErrorIs(t, err, lifecycle.ErrAlreadyExtended)
	assert.Equal(t, epoch.Add(29*day), h.get(t, id).TrialEndsAt)

	_, err = h.svc.ProposeExtension(ctx, id)
	assert.ErrorIs(t, err, lifecycle.ErrAlreadyExtended)
}

func TestService_GrantAutoExtension_NotTrialing(t *testing.T) {
	t.Parallel()

	h := newHarness(t, lifecycle.DefaultPolicy())
	id := h.create(t)
	h.clock.Advance(15 * day)

	_, err := h.svc.GrantAutoExtension(context.Background(), id)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
	_, ok := h.store.Extension(id)
	assert.False(t, ok)
}

func TestService_ConcurrentGrantsApplyOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, lifecycle.DefaultPolicy())
	id := h.create(t)

	var wg sync.WaitGroup
	var ok, extended atomic.Int32
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.GrantAutoExtension(context.Background(), id)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, lifecycle.ErrAlreadyExtended):
				extended.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, ok.Load())
	assert.EqualValues(t, 15, extended.Load())
	assert.Equal(t, epoch.Add(29*day), h.get(t, id).TrialEndsAt)
}

func TestService_ProposeAndAccept(t *testing.T) {
	t.Parallel()

	h := newHarness(t, lifecycle.DefaultPolicy())
	ctx := lifecycle.WithActor(context.Background(), "user-1")
	id := h.create(t)

	v, err := h.svc.ProposeExtension(ctx, id)
	require.NoError(t, err)
	assert.True(t, v.Subscription.ExtensionProposed)
	assert.Equal(t, 15, v.Subscription.ExtensionProposedDays)
	assert.Equal(t, epoch.Add(14*day), v.Subscription.TrialEndsAt)

	h.clock.Advance(day)
	v, err = h.svc.AcceptProposedExtension(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(29*day), v.Subscription.TrialEndsAt)
	require.NotNil(t, v.Subscription.ExtensionAcceptedAt)
	assert.Equal(t, epoch.Add(day), *v.Subscription.ExtensionAcceptedAt)

	ext, ok := h.store.Extension(id)
	require.True(t, ok)
	require.NotNil(t, ext.AcceptedAt)

	h.clock.Advance(time.Hour)
	_, err = h.svc.AcceptProposedExtension(ctx, id)
	require.ErrorIs(t, err, lifecycle.ErrNoProposalPending)
	assert.ErrorIs(t, err, lifecycle.ErrExtensionAlreadyAccepted)
	assert.Equal(t, epoch.Add(29*day), h.get(t, id).TrialEndsAt)

	events, err := h.audit.Query(ctx, audit.Criteria{ClubID: id.String(), Action: "extension.accepted"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, audit.ResultError, events[0].Result)
	assert.Equal(t, audit.ResultSuccess, events[1].Result)
	assert.Equal(t, "user-1", events[1].ActorID)
	assert.Equal(t, epoch.Add(14*day).Format(time.RFC3339), events[1].Previous["trial_ends_at"])
	assert.Equal(t, epoch.Add(29*day).Format(time.RFC3339), events[1].Current["trial_ends_at"])
}

func TestService_AcceptWithoutProposal(t *testing.T) {
	t.Parallel()

	h := newHarness(t, lifecycle.DefaultPolicy())
	id := h.create(t)

	_, err := h.svc.AcceptProposedExtension(context.Background(), id)
	assert.ErrorIs(t, err, lifecycle.ErrNoProposalPending)

	_, err = h.svc.AcceptProposedExtension(context.Background(), uuid.New())
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
}

func TestService_ConcurrentAcceptAddsDaysOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, lifecycle.DefaultPolicy())
	ctx := context.Background()
	id := h.create(t)
	_, err := h.svc.ProposeExtension(ctx, id)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var accepted, rejected atomic.Int32
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.AcceptProposedExtension(ctx, id)
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, lifecycle.ErrNoProposalPending):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, accepted.Load())
	assert.EqualValues(t, 9, rejected.Load())
	assert.Equal(t, epoch.Add(29*day), h.get(t, id).TrialEndsAt)
}

func TestService_AcceptMembership(t *testing.T) {
	t.Parallel()

	members := lifecycle.MembershipCheckerFunc(func(_ context.Context, userID string, _ uuid.UUID) (bool, error) {
		if userID == "broken" {
			return false, errors.New("directory unavailable")
		}
		return userID == "admin", nil
	})
	h := newHarness(t, lifecycle.DefaultPolicy(), lifecycle.WithMembershipChecker(members))
	id := h.create(t)
	_, err := h.svc.ProposeExtension(context.Background(), id)
	require.NoError(t, err)

	_, err = h.svc.AcceptProposedExtension(context.Background(), id)
	assert.ErrorIs(t, err, lifecycle.ErrUnauthorized)

	// a missing club is reported as such, whoever asks
	_, err = h.svc.AcceptProposedExtension(lifecycle.WithActor(context.Background(), "stranger"), uuid.New())
	assert.ErrorIs(t, err, lifecycle.ErrNotFound)
	assert.NotErrorIs(t, err, lifecycle.ErrUnauthorized)

	_, err = h.svc.AcceptProposedExtension(lifecycle.WithActor(context.Background(), "stranger"), id)
	assert.ErrorIs(t, err, lifecycle.ErrUnauthorized)

	_, err = h.svc.AcceptProposedExtension(lifecycle.WithActor(context.Background(), "broken"), id)
	require.Error(t, err)
	assert.NotErrorIs(t, err, lifecycle.ErrUnauthorized)

	assert.Nil(t, h.get(t, id).ExtensionAcceptedAt)

	_, err = h.svc.AcceptProposedExtension(lifecycle.WithActor(context.Background(), "admin"), id)
	require.NoError(t, err)
}

func TestService_AcceptAfterTrialEnded(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		lapse   lifecycle.LapsePolicy
		reopen  bool
		advance time.Duration
		want    lifecycle.Status
		wantErr error
	}{
		{"grace reopens trial under never", lifecycle.LapseNever, false, 15 * day, lifecycle.StatusTrialing, nil},
		{"expired stays terminal by default", lifecycle.LapseNever, false, 20 * day, lifecycle.StatusExpired, lifecycle.ErrInvalidTransition},
		{"expired reopens when allowed", lifecycle.LapseNever, true, 20 * day, lifecycle.StatusTrialing, nil},
		{"grace lapses under grace policy", lifecycle.LapseOnGrace, false, 15 * day, lifecycle.StatusGrace, lifecycle.ErrProposalLapsed},
		{"grace still accepted under expiry policy", lifecycle.LapseOnExpiry, false, 15 * day, lifecycle.StatusTrialing, nil},
		{"expired lapses under expiry policy", lifecycle.LapseOnExpiry, true, 17 * day, lifecycle.StatusExpired, lifecycle.ErrProposalLapsed},
		{"too late to reopen", lifecycle.LapseNever, true, 40 * day, lifecycle.StatusExpired, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := lifecycle.DefaultPolicy()
			p.ProposalLapse = tt.lapse
			p.ReopenExpired = tt.reopen
			h := newHarness(t, p)
			ctx := context.Background()
			id := h.create(t)
			_, err := h.svc.ProposeExtension(ctx, id)
			require.NoError(t, err)

			h.clock.Advance(tt.advance)
			v, err := h.svc.AcceptProposedExtension(ctx, id)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.want, h.get(t, id).Status)
				assert.Equal(t, epoch.Add(14*day), h.get(t, id).TrialEndsAt)
				assert.Nil(t, h.get(t, id).ExtensionAcceptedAt)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Subscription.Status)
			assert.Equal(t, epoch.Add(29*day), v.Subscription.TrialEndsAt)
		})
	}
}

func TestService_AcceptOnPaidClub(t *testing.T) {
	t.Parallel()

	h := newHarness(t, lifecycle.DefaultPolicy())
	ctx := context.Background()
	id := h.create(t)
	_, err := h.svc.ProposeExtension(ctx, id)
	require.NoError(t, err)
	_, err = h.svc.ActivateSubscription(ctx, id)
	require.NoError(t, err)

	_, err = h.svc.AcceptProposedExtension(ctx, id)
	assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestService_ProposalNotificationFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("smtp down")
	var calls atomic.Int32
	notifier := lifecycle.NotifierFunc(func(_ context.Context, sub lifecycle.Subscription) error {
		calls.Add(1)
		assert.True(t, sub.ExtensionProposed)
		return boom
	})
	h := newHarness(t, lifecycle.DefaultPolicy(), lifecycle.WithNotifier(notifier))
	id := h.create(t)

	_, err := h.svc.ProposeExtension(context.Background(), id)
	require.ErrorIs(t, err, lifecycle.ErrNotificationFailed)
	assert.ErrorIs(t, err, boom)
	assert.EqualValues(t, 1, calls.Load())

	sub := h.get(t, id)
	assert.False(t, sub.ExtensionProposed)
	assert.False(t, sub.HasExtension())
	_, ok := h.store.Extension(id)
	assert.False(t, ok, "extension record must be removed with the proposal")

	// the slot is free again
	_, err = h.svc.GrantAutoExtension(context.Background(), id)
	assert.NoError(t, err)
}
