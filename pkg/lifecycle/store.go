package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists subscriptions. Every write is a compare-and-set on Version:
// implementations store sub only when the persisted version equals expected,
// then set sub.Version to expected+1. A mismatch returns ErrVersionConflict
// and leaves the record untouched.
type Store interface {
	// Create inserts a new record with Version 1. ErrSubscriptionExists if the club has one.
	Create(ctx context.Context, sub *Subscription) error

	// Get returns ErrNotFound when the club has no record.
	Get(ctx context.Context, clubID uuid.UUID) (*Subscription, error)

	// Update writes sub and keeps the extension record in step with it:
	// the record is removed when sub carries no extension and its acceptance
	// time follows ExtensionAcceptedAt otherwise.
	Update(ctx context.Context, sub *Subscription, expected int64) error

	// GrantExtension writes sub like Update and inserts ext in the same atomic
	// step. ErrAlreadyExtended when the club already has an extension record,
	// no matter what the subscription row says.
	GrantExtension(ctx context.Context, sub *Subscription, expected int64, ext Extension) error

	// Delete removes the record and its extension. ErrNotFound if absent.
	Delete(ctx context.Context, clubID uuid.UUID) error

	// ListSweepCandidates pages through clubs that may need work at now:
	// trialing or grace clubs, and clubs with a pending plan change due by now.
	// Results are ordered by club id and start strictly after the given id.
	ListSweepCandidates(ctx context.Context, now time.Time, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

// EngagementKind names a usage signal.
type EngagementKind string

const (
	EngagementPlayerCreated EngagementKind = "player_created"
	EngagementMatchLogged   EngagementKind = "match_logged"
)

// Valid reports whether k is a known kind.
func (k EngagementKind) Valid() bool {
	return k == EngagementPlayerCreated || k == EngagementMatchLogged
}

// EngagementEvent is one usage signal. EventID, when set, makes redelivery a no-op.
type EngagementEvent struct {
	Kind       EngagementKind `json:"kind"`
	EventID    string         `json:"event_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// MetricsStore keeps the current engagement snapshot per club.
type MetricsStore interface {
	// Record applies ev once. It returns false without error for a duplicate EventID.
	// LastActivityAt only moves forward.
	Record(ctx context.Context, clubID uuid.UUID, ev EngagementEvent) (bool, error)

	// Get returns zero metrics for clubs without activity.
	Get(ctx context.Context, clubID uuid.UUID) (EngagementMetrics, error)

	Delete(ctx context.Context, clubID uuid.UUID) error
}
