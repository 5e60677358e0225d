package paddlebilling

import "errors"

var (
	ErrMissingCredentials = errors.New("paddlebilling: api key and webhook secret are required")
	ErrInvalidEnvironment = errors.New("paddlebilling: invalid environment")
	ErrInvalidSignature   = errors.New("paddlebilling: webhook signature verification failed")
	ErrMalformedPayload   = errors.New("paddlebilling: malformed webhook payload")
	// ErrIgnoredEvent marks notifications the lifecycle does not act on.
	ErrIgnoredEvent = errors.New("paddlebilling: event type not handled")
	// ErrUnknownClub marks events without a club_id in custom_data.
	ErrUnknownClub = errors.New("paddlebilling: event carries no club id")
)
