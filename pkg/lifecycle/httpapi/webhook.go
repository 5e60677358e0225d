package httpapi

import (
	"errors"
	"log/slog"

	"github.com/dmitrymomot/clubkit/pkg/handler"
	"github.com/dmitrymomot/clubkit/pkg/lifecycle"
	"github.com/dmitrymomot/clubkit/pkg/lifecycle/paddlebilling"
	"github.com/dmitrymomot/clubkit/pkg/logger"
)

// webhookAck is returned for notifications that were received but need no
// further delivery attempts.
type webhookAck struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"`
}

// ackable lists outcomes that redelivery can never change.
var ackable = []struct {
	err    error
	reason string
}{
	{paddlebilling.ErrIgnoredEvent, "ignored_event"},
	{paddlebilling.ErrUnknownClub, "unknown_club"},
	{lifecycle.ErrNotFound, "unknown_club"},
	{lifecycle.ErrInvalidTransition, "invalid_transition"},
}

// paddleWebhook reads the raw request itself: the signature covers the
// exact body bytes.
func (a *API) paddleWebhook(ctx handler.Context, _ struct{}) handler.Response {
	if a.webhooks == nil {
		return handler.Error(ErrNoWebhooks)
	}

	ev, err := a.webhooks.ParseWebhook(ctx.Request())
	if err == nil {
		_, err = a.svc.HandleBillingEvent(ctx, ev)
	}
	if err == nil {
		return handler.JSON(webhookAck{Applied: true})
	}

	for _, ack := range ackable {
		if errors.Is(err, ack.err) {
			a.logger.InfoContext(ctx, "billing webhook acknowledged without effect",
				logger.Event(ack.reason),
				slog.String("billing_event_id", ev.ID),
				logger.Error(err),
			)
			return handler.JSON(webhookAck{Reason: ack.reason})
		}
	}
	return handler.Error(err)
}
