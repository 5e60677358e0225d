package audit

import (
	"fmt"
	"time"
)

// Result represents the outcome of an audited action
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
	ResultError   Result = "error"
)

// Event represents a single audit log entry.
// Previous and Current hold only the fields the action changed.
type Event struct {
	ID         string         `json:"id"`
	ClubID     string         `json:"club_id"`
	ActorID    string         `json:"actor_id"`
	RequestID  string         `json:"request_id,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID string         `json:"resource_id"`
	Result     Result         `json:"result"`
	Error      string         `json:"error,omitempty"`
	Previous   map[string]any `json:"previous,omitempty"`
	Current    map[string]any `json:"current,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Validate checks if the event has all required fields
func (e *Event) Validate() error {
	if e.Action == "" {
		return fmt.Errorf("%w: action is required", ErrEventValidation)
	}
	switch e.Result {
	case ResultSuccess, ResultFailure, ResultError:
	default:
		return fmt.Errorf("%w: unknown result %q", ErrEventValidation, e.Result)
	}
	return nil
}

// EventOption applies configuration to an Event during creation.
type EventOption func(*Event)

// Criteria filters audit events. Zero values are ignored.
type Criteria struct {
	ClubID     string
	ActorID    string
	Action     string
	ResourceID string
	StartTime  time.Time
	EndTime    time.Time
	Limit      int
	Offset     int
}
