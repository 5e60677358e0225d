package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/clubkit/pkg/binder"
	"github.com/dmitrymomot/clubkit/pkg/handler"
	"github.com/dmitrymomot/clubkit/pkg/lifecycle"
	"github.com/dmitrymomot/clubkit/pkg/lifecycle/paddlebilling"
)

var (
	ErrInvalidClubID = errors.New("httpapi: club id must be a uuid")
	ErrInvalidBody   = errors.New("httpapi: malformed request body")
	ErrInvalidQuery  = errors.New("httpapi: invalid query parameter")
	ErrNoWebhooks    = errors.New("httpapi: billing webhooks are not configured")
)

// invalidField rejects a request body for one field.
func invalidField(field, msg string) error {
	return fmt.Errorf("%w: %w", ErrInvalidBody, handler.NewValidationError(field, msg))
}

func requireClub(id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrInvalidClubID
	}
	return nil
}

type errorClass struct {
	target error
	status int
	code   string
}

// Order matters: a joined error is classified by its first matching target.
var errorClasses = []errorClass{
	{lifecycle.ErrNotFound, http.StatusNotFound, "not_found"},
	{lifecycle.ErrUnauthorized, http.StatusForbidden, "forbidden"},
	{lifecycle.ErrSubscriptionExists, http.StatusConflict, "subscription_exists"},
	{lifecycle.ErrAlreadyExtended, http.StatusConflict, "already_extended"},
	{lifecycle.ErrExtensionAlreadyAccepted, http.StatusConflict, "extension_already_accepted"},
	{lifecycle.ErrProposalLapsed, http.StatusConflict, "proposal_lapsed"},
	{lifecycle.ErrNoProposalPending, http.StatusConflict, "no_proposal_pending"},
	{lifecycle.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{lifecycle.ErrInvalidPlanCycle, http.StatusBadRequest, "invalid_plan_cycle"},
	{lifecycle.ErrInvalidEvent, http.StatusBadRequest, "invalid_event"},
	{ErrInvalidClubID, http.StatusBadRequest, "invalid_club_id"},
	{binder.ErrFailedToParsePath, http.StatusBadRequest, "invalid_club_id"},
	{ErrInvalidBody, http.StatusBadRequest, "invalid_body"},
	{binder.ErrFailedToParseJSON, http.StatusBadRequest, "invalid_body"},
	{binder.ErrMissingContentType, http.StatusUnsupportedMediaType, "unsupported_media_type"},
	{binder.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, "unsupported_media_type"},
	{ErrInvalidQuery, http.StatusBadRequest, "invalid_query"},
	{binder.ErrFailedToParseQuery, http.StatusBadRequest, "invalid_query"},
	{ErrNoWebhooks, http.StatusNotFound, "not_found"},
	{paddlebilling.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
	{paddlebilling.ErrMalformedPayload, http.StatusBadRequest, "invalid_body"},
	{lifecycle.ErrNotificationFailed, http.StatusBadGateway, "notification_failed"},
	{lifecycle.ErrVersionConflict, http.StatusServiceUnavailable, "retry_later"},
	{lifecycle.ErrPersistence, http.StatusServiceUnavailable, "retry_later"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

// classify maps err to a status and a stable error code.
func classify(err error) (handler.HTTPError, bool) {
	for _, c := range errorClasses {
		if errors.Is(err, c.target) {
			return handler.HTTPError{Code: c.status, Key: c.code}, true
		}
	}
	return handler.HTTPError{}, false
}
