package paddlebilling

import (
	"context"
	"errors"
	"testing"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSubscriptions map[string]*paddle.Subscription

func (s stubSubscriptions) GetSubscription(_ context.Context, req *paddle.GetSubscriptionRequest) (*paddle.Subscription, error) {
	sub, ok := s[req.SubscriptionID]
	if !ok {
		return nil, errors.New("not found")
	}
	return sub, nil
}

func TestProvider_RenewalBoundary(t *testing.T) {
	t.Parallel()

	next := "2026-07-01T00:00:00Z"
	p := &Provider{subscriptions: stubSubscriptions{
		"sub_next":   {ID: "sub_next", NextBilledAt: &next},
		"sub_period": {ID: "sub_period", CurrentBillingPeriod: &paddle.TimePeriod{StartsAt: "2026-06-01T00:00:00Z", EndsAt: "2026-08-01T00:00:00Z"}},
		"sub_none":   {ID: "sub_none"},
	}}
	ctx := context.Background()

	b, err := p.RenewalBoundary(ctx, "sub_next")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), b)

	b, err = p.RenewalBoundary(ctx, "sub_period")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), b)

	b, err = p.RenewalBoundary(ctx, "sub_none")
	require.NoError(t, err)
	assert.True(t, b.IsZero())

	_, err = p.RenewalBoundary(ctx, "sub_missing")
	assert.Error(t, err)

	_, err = p.RenewalBoundary(ctx, "")
	assert.Error(t, err)
}
