package audit

import "context"

// Storage persists audit events. Implementations must be append-only:
// events are never updated or deleted through this interface.
type Storage interface {
	Store(ctx context.Context, event Event) error
	// Query returns matching events, newest first.
	Query(ctx context.Context, criteria Criteria) ([]Event, error)
}
