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

func TestMemoryStore_CompareAndSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := lifecycle.NewMemoryStore()
	id := uuid.New()

	require.NoError(t, store.Create(ctx, &lifecycle.Subscription{ClubID: id, Status: lifecycle.StatusTrialing}))
	assert.ErrorIs(t, store.Create(ctx, &lifecycle.Subscription{ClubID: id}), lifecycle.ErrSubscriptionExists)

	a, err := store.Get(ctx, id)
	require.NoError(t, err)
	b, err := store.Get(ctx, id)
	require.NoError(t, err)

	a.Status = lifecycle.StatusGrace
	require.NoError(t, store.Update(ctx, a, 1))
	assert.EqualValues(t, 2, a.Version)

	b.Status = lifecycle.StatusActive
	assert.ErrorIs(t, store.Update(ctx, b, 1), lifecycle.ErrVersionConflict)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusGrace, got.Status)

	// returned records are copies
	got.Status = lifecycle.StatusCanceled
	again, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusGrace, again.Status)
}

func TestMemoryStore_GrantExtension(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := lifecycle.NewMemoryStore()
	id := uuid.New()
	require.NoError(t, store.Create(ctx, &lifecycle.Subscription{ClubID: id, Status: lifecycle.StatusTrialing}))

	sub, err := store.Get(ctx, id)
	require.NoError(t, err)
	sub.ExtensionKind = lifecycle.ExtensionAuto
	ext := lifecycle.Extension{ClubID: id, Kind: lifecycle.ExtensionAuto, Days: 15}
	require.NoError(t, store.GrantExtension(ctx, sub, 1, ext))

	// the record guards the slot even if the row were out of step
	sub.ExtensionKind = lifecycle.ExtensionNone
	assert.ErrorIs(t, store.GrantExtension(ctx, sub, 2, ext), lifecycle.ErrAlreadyExtended)

	require.NoError(t, store.Update(ctx, sub, 2))
	_, ok := store.Extension(id)
	assert.False(t, ok)
}

func TestMemoryStore_ListSweepCandidates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := lifecycle.NewMemoryStore()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	var want []uuid.UUID
	for _, st := range []lifecycle.Status{lifecycle.StatusTrialing, lifecycle.StatusGrace, lifecycle.StatusActive, lifecycle.StatusExpired} {
		sub := &lifecycle.Subscription{ClubID: uuid.New(), Status: st}
		if st == lifecycle.StatusActive {
			sub.PendingPlanCycle = lifecycle.PlanCycleAnnual
			sub.PendingPlanEffectiveAt = &now
		}
		require.NoError(t, store.Create(ctx, sub))
		if st != lifecycle.StatusExpired {
			want = append(want, sub.ClubID)
		}
	}
	require.NoError(t, store.Create(ctx, &lifecycle.Subscription{ClubID: uuid.New(), Status: lifecycle.StatusActive}))

	var got []uuid.UUID
	after := uuid.Nil
	for {
		page, err := store.ListSweepCandidates(ctx, now, after, 2)
		require.NoError(t, err)
		got = append(got, page...)
		if len(page) < 2 {
			break
		}
		after = page[len(page)-1]
	}
	assert.ElementsMatch(t, want, got)
}

func TestMemoryMetricsStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := lifecycle.NewMemoryMetricsStore()
	id := uuid.New()
	t1 := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	ok, err := store.Record(ctx, id, lifecycle.EngagementEvent{Kind: lifecycle.EngagementPlayerCreated, EventID: "p1", OccurredAt: t1})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Record(ctx, id, lifecycle.EngagementEvent{Kind: lifecycle.EngagementPlayerCreated, EventID: "p1", OccurredAt: t1})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Record(ctx, id, lifecycle.EngagementEvent{Kind: lifecycle.EngagementMatchLogged, OccurredAt: t1.Add(-time.Hour)})
	require.NoError(t, err)

	m, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.PlayersInvited)
	assert.EqualValues(t, 1, m.MatchesLogged)
	assert.Equal(t, t1, m.LastActivityAt)

	require.NoError(t, store.Delete(ctx, id))
	m, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, m.PlayersInvited)
}
