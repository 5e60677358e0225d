package lifecycle

import "errors"

var (
	ErrNotFound           = errors.New("lifecycle: club subscription not found")
	ErrSubscriptionExists = errors.New("lifecycle: club subscription already exists")
	ErrAlreadyExtended    = errors.New("lifecycle: club already received a trial extension")
	ErrNoProposalPending  = errors.New("lifecycle: no extension proposal pending")
	ErrInvalidTransition  = errors.New("lifecycle: transition not allowed from current status")
	ErrPersistence        = errors.New("lifecycle: storage failure")
	ErrUnauthorized       = errors.New("lifecycle: caller is not a member of the club")
	ErrVersionConflict    = errors.New("lifecycle: subscription was modified concurrently")

	// Reasons joined with ErrNoProposalPending.
	ErrExtensionAlreadyAccepted = errors.New("lifecycle: extension already accepted")
	ErrProposalLapsed           = errors.New("lifecycle: extension proposal lapsed")

	ErrInvalidPlanCycle   = errors.New("lifecycle: invalid plan cycle")
	ErrInvalidEvent       = errors.New("lifecycle: invalid event")
	ErrNotificationFailed = errors.New("lifecycle: failed to notify club administrator")
	ErrInvalidPolicy      = errors.New("lifecycle: invalid policy")
)

// IsRetryable reports whether err is a transient failure worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrPersistence) || errors.Is(err, ErrVersionConflict)
}
