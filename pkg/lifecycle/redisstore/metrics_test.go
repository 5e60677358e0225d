package redisstore_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/clubkit/pkg/lifecycle"
	"github.com/dmitrymomot/clubkit/pkg/lifecycle/redisstore"
	"github.com/dmitrymomot/clubkit/pkg/redis"
)

func setupStore(t *testing.T) *redisstore.MetricsStore {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL is not set")
	}
	client, err := redis.Connect(context.Background(), redis.Config{
		ConnectionURL:  url,
		RetryAttempts:  1,
		RetryInterval:  time.Second,
		ConnectTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	return redisstore.New(client, redisstore.WithPrefix("clubkit-test:"), redisstore.WithDedupeTTL(time.Hour))
}

func TestMetricsStore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	id := uuid.New()
	t.Cleanup(func() { _ = store.Delete(context.Background(), id) })

	m, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, m.PlayersInvited)
	assert.True(t, m.LastActivityAt.IsZero())

	t1 := time.Date(2026, 5, 1, 10, 0, 0, 123000, time.UTC)
	ok, err := store.Record(ctx, id, lifecycle.EngagementEvent{Kind: lifecycle.EngagementPlayerCreated, EventID: "p-1", OccurredAt: t1})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Record(ctx, id, lifecycle.EngagementEvent{Kind: lifecycle.EngagementPlayerCreated, EventID: "p-1", OccurredAt: t1})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Record(ctx, id, lifecycle.EngagementEvent{Kind: lifecycle.EngagementMatchLogged, OccurredAt: t1.Add(-time.Hour)})
	require.NoError(t, err)

	_, err = store.Record(ctx, id, lifecycle.EngagementEvent{Kind: "tournament"})
	assert.ErrorIs(t, err, lifecycle.ErrInvalidEvent)

	m, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 1, m.PlayersInvited)
	assert.EqualValues(t, 1, m.MatchesLogged)
	assert.Equal(t, t1, m.LastActivityAt)

	require.NoError(t, store.Delete(ctx, id))
	m, err = store.Get(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, m.MatchesLogged)
}

func TestMetricsStore_ConcurrentRecords(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	id := uuid.New()
	t.Cleanup(func() { _ = store.Delete(context.Background(), id) })

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// every event is sent twice
			ev := lifecycle.EngagementEvent{
				Kind:       lifecycle.EngagementMatchLogged,
				EventID:    uuid.NewSHA1(id, []byte{byte(i / 2)}).String(),
				OccurredAt: time.Now(),
			}
			_, err := store.Record(ctx, id, ev)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	m, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 10, m.MatchesLogged)
}
