package paddlebilling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// subscriptionGetter is the slice of the Paddle SDK the provider calls.
type subscriptionGetter interface {
	GetSubscription(ctx context.Context, req *paddle.GetSubscriptionRequest) (*paddle.Subscription, error)
}

// Provider verifies Paddle webhooks and answers renewal date lookups.
// It implements lifecycle.BoundaryResolver.
type Provider struct {
	subscriptions subscriptionGetter
	verifier      *paddle.WebhookVerifier
}

// NewProvider creates a Paddle client for the configured environment.
func NewProvider(cfg Config) (*Provider, error) {
	if !cfg.Enabled() {
		return nil, ErrMissingCredentials
	}

	var (
		client *paddle.SDK
		err    error
	)
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("create paddle client: %w", err)
	}

	return &Provider{
		subscriptions: client.SubscriptionsClient,
		verifier:      paddle.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

// RenewalBoundary returns when the Paddle subscription is next billed.
func (p *Provider) RenewalBoundary(ctx context.Context, providerSubscriptionID string) (time.Time, error) {
	if providerSubscriptionID == "" {
		return time.Time{}, errors.New("paddlebilling: subscription id is required")
	}

	sub, err := p.subscriptions.GetSubscription(ctx, &paddle.GetSubscriptionRequest{
		SubscriptionID: providerSubscriptionID,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("get paddle subscription: %w", err)
	}

	switch {
	case sub.NextBilledAt != nil && *sub.NextBilledAt != "":
		return parseTime(*sub.NextBilledAt)
	case sub.CurrentBillingPeriod != nil:
		return parseTime(sub.CurrentBillingPeriod.EndsAt)
	}
	// canceled or paused subscriptions have no upcoming renewal
	return time.Time{}, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedPayload, s)
	}
	return t.UTC(), nil
}
