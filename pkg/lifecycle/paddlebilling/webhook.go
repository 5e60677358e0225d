package paddlebilling

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/clubkit/pkg/lifecycle"
)

// maxWebhookBody caps what we read from Paddle.
const maxWebhookBody = 1 << 20

type webhookPayload struct {
	EventID    string      `json:"event_id"`
	EventType  string      `json:"event_type"`
	OccurredAt string      `json:"occurred_at"`
	Data       webhookData `json:"data"`
}

type webhookData struct {
	ID                   string         `json:"id"`
	Status               string         `json:"status"`
	SubscriptionID       string         `json:"subscription_id"`
	CustomData           map[string]any `json:"custom_data"`
	NextBilledAt         string         `json:"next_billed_at"`
	BillingCycle         *billingCycle  `json:"billing_cycle"`
	CurrentBillingPeriod *timePeriod    `json:"current_billing_period"`
	BillingPeriod        *timePeriod    `json:"billing_period"`
}

type billingCycle struct {
	Interval  string `json:"interval"`
	Frequency int    `json:"frequency"`
}

type timePeriod struct {
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

// eventTypes maps Paddle notifications onto lifecycle billing events.
var eventTypes = map[string]lifecycle.BillingEventType{
	"transaction.completed":      lifecycle.BillingPaymentSucceeded,
	"transaction.payment_failed": lifecycle.BillingPaymentFailed,
	"subscription.activated":     lifecycle.BillingPaymentSucceeded,
	"subscription.updated":       lifecycle.BillingPeriodUpdated,
	"subscription.past_due":      lifecycle.BillingPaymentFailed,
	"subscription.canceled":      lifecycle.BillingSubscriptionCanceled,
}

// ParseWebhook verifies the Paddle-Signature header and turns the payload
// into a lifecycle.BillingEvent. Unhandled event types return ErrIgnoredEvent.
func (p *Provider) ParseWebhook(r *http.Request) (lifecycle.BillingEvent, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return lifecycle.BillingEvent{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	ok, err := p.verifier.Verify(r)
	if err != nil || !ok {
		return lifecycle.BillingEvent{}, ErrInvalidSignature
	}
	return ParsePayload(body)
}

// ParsePayload maps an already verified webhook body.
func ParsePayload(body []byte) (lifecycle.BillingEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return lifecycle.BillingEvent{}, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	typ, ok := eventTypes[payload.EventType]
	if !ok {
		return lifecycle.BillingEvent{}, fmt.Errorf("%w: %s", ErrIgnoredEvent, payload.EventType)
	}

	ev := lifecycle.BillingEvent{
		ID:   payload.EventID,
		Type: typ,
	}

	raw, _ := payload.Data.CustomData["club_id"].(string)
	clubID, err := uuid.Parse(raw)
	if err != nil {
		return lifecycle.BillingEvent{}, fmt.Errorf("%w: %s %s", ErrUnknownClub, payload.EventType, payload.EventID)
	}
	ev.ClubID = clubID

	if payload.OccurredAt != "" {
		if ev.OccurredAt, err = parseTime(payload.OccurredAt); err != nil {
			return lifecycle.BillingEvent{}, err
		}
	}

	data := payload.Data
	if data.SubscriptionID != "" {
		ev.ProviderSubscriptionID = data.SubscriptionID
	} else if strings.HasPrefix(payload.EventType, "subscription.") {
		ev.ProviderSubscriptionID = data.ID
	}

	if data.BillingCycle != nil {
		ev.Cycle = cycleOf(*data.BillingCycle)
	}

	var periodEnd string
	switch {
	case data.CurrentBillingPeriod != nil:
		periodEnd = data.CurrentBillingPeriod.EndsAt
	case data.BillingPeriod != nil:
		periodEnd = data.BillingPeriod.EndsAt
	case data.NextBilledAt != "":
		periodEnd = data.NextBilledAt
	}
	if periodEnd != "" {
		t, err := parseTime(periodEnd)
		if err != nil {
			return lifecycle.BillingEvent{}, err
		}
		ev.PeriodEndsAt = &t
	}

	return ev, nil
}

// cycleOf maps a Paddle billing cycle. Anything other than one month or one
// year is left empty so the club keeps its cycle.
func cycleOf(c billingCycle) lifecycle.PlanCycle {
	if c.Frequency != 1 {
		return ""
	}
	switch c.Interval {
	case "month":
		return lifecycle.PlanCycleMonthly
	case "year":
		return lifecycle.PlanCycleAnnual
	}
	return ""
}
