package lifecycle

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a club subscription.
type Status string

const (
	StatusTrialing Status = "trialing"
	StatusGrace    Status = "grace"
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	StatusExpired  Status = "expired"
)

func (s Status) String() string { return string(s) }

// Name implements statemachine.State.
func (s Status) Name() string { return string(s) }

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusTrialing, StatusGrace, StatusActive, StatusCanceled, StatusExpired:
		return true
	}
	return false
}

// Terminal reports whether no automatic transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusCanceled || s == StatusExpired
}

// rank orders the time-driven chain trialing < grace < expired.
// Statuses outside the chain return -1 and are never advanced by the clock.
func (s Status) rank() int {
	switch s {
	case StatusTrialing:
		return 0
	case StatusGrace:
		return 1
	case StatusExpired:
		return 2
	}
	return -1
}

// PlanCycle is the billing interval of a paid subscription.
type PlanCycle string

const (
	PlanCycleMonthly PlanCycle = "monthly"
	PlanCycleAnnual  PlanCycle = "annual"
)

func (c PlanCycle) String() string { return string(c) }

// Valid reports whether c is a known cycle. The empty cycle is not valid.
func (c PlanCycle) Valid() bool {
	return c == PlanCycleMonthly || c == PlanCycleAnnual
}

// Next returns the renewal boundary one cycle after from.
func (c PlanCycle) Next(from time.Time) time.Time {
	if c == PlanCycleAnnual {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

// ExtensionKind tells how a trial extension came about.
type ExtensionKind string

const (
	ExtensionNone     ExtensionKind = ""
	ExtensionAuto     ExtensionKind = "auto"
	ExtensionProposed ExtensionKind = "proposed"
)

// Subscription is the persisted lifecycle record of one club.
type Subscription struct {
	ClubID uuid.UUID `json:"club_id"`
	Status Status    `json:"status"`

	// Contact receives extension proposals.
	ContactEmail string `json:"contact_email,omitempty"`
	ClubName     string `json:"club_name,omitempty"`

	TrialStartedAt time.Time `json:"trial_started_at"`
	TrialEndsAt    time.Time `json:"trial_ends_at"`

	PlanCycle              PlanCycle  `json:"plan_cycle,omitempty"`
	PendingPlanCycle       PlanCycle  `json:"pending_plan_cycle,omitempty"`
	PendingPlanEffectiveAt *time.Time `json:"pending_plan_effective_at,omitempty"`
	CurrentPeriodEndsAt    *time.Time `json:"current_period_ends_at,omitempty"`

	ExtensionKind         ExtensionKind `json:"extension_kind,omitempty"`
	ExtensionGrantedAt    *time.Time    `json:"extension_granted_at,omitempty"`
	ExtensionProposed     bool          `json:"extension_proposed"`
	ExtensionProposedDays int           `json:"extension_proposed_days,omitempty"`
	ExtensionAcceptedAt   *time.Time    `json:"extension_accepted_at,omitempty"`

	ProviderSubscriptionID string     `json:"provider_subscription_id,omitempty"`
	LastBillingEventAt     *time.Time `json:"last_billing_event_at,omitempty"`

	ActivatedAt     *time.Time `json:"activated_at,omitempty"`
	CanceledAt      *time.Time `json:"canceled_at,omitempty"`
	StatusChangedAt time.Time  `json:"status_changed_at"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of s.
func (s *Subscription) Clone() *Subscription {
	c := *s
	c.PendingPlanEffectiveAt = cloneTime(s.PendingPlanEffectiveAt)
	c.CurrentPeriodEndsAt = cloneTime(s.CurrentPeriodEndsAt)
	c.ExtensionGrantedAt = cloneTime(s.ExtensionGrantedAt)
	c.ExtensionAcceptedAt = cloneTime(s.ExtensionAcceptedAt)
	c.LastBillingEventAt = cloneTime(s.LastBillingEventAt)
	c.ActivatedAt = cloneTime(s.ActivatedAt)
	c.CanceledAt = cloneTime(s.CanceledAt)
	return &c
}

// HasExtension reports whether the club received an extension of either kind.
func (s *Subscription) HasExtension() bool {
	return s.ExtensionKind != ExtensionNone
}

// ProposalPending reports whether a proposed extension awaits acceptance.
func (s *Subscription) ProposalPending() bool {
	return s.ExtensionProposed && s.ExtensionAcceptedAt == nil
}

// Extension returns the club's extension record, or nil when there is none.
func (s *Subscription) Extension() *Extension {
	if !s.HasExtension() {
		return nil
	}
	days := s.ExtensionProposedDays
	ext := &Extension{
		ClubID:     s.ClubID,
		Kind:       s.ExtensionKind,
		Days:       days,
		AcceptedAt: cloneTime(s.ExtensionAcceptedAt),
	}
	if s.ExtensionGrantedAt != nil {
		ext.GrantedAt = *s.ExtensionGrantedAt
	}
	return ext
}

// Extension is one grant of extra trial time. A club has at most one.
type Extension struct {
	ClubID     uuid.UUID     `json:"club_id"`
	Kind       ExtensionKind `json:"kind"`
	Days       int           `json:"days"`
	GrantedAt  time.Time     `json:"granted_at"`
	AcceptedAt *time.Time    `json:"accepted_at,omitempty"`
}

// EngagementMetrics is the current usage snapshot of a club.
type EngagementMetrics struct {
	ClubID         uuid.UUID `json:"club_id"`
	PlayersInvited int64     `json:"players_invited"`
	MatchesLogged  int64     `json:"matches_logged"`
	LastActivityAt time.Time `json:"last_activity_at,omitzero"`
}

// View is what callers get back: the record plus its freshly derived grace status.
type View struct {
	Subscription *Subscription `json:"subscription"`
	Grace        Grace         `json:"grace"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func ptr[T any](v T) *T { return &v }
