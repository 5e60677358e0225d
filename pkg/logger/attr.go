package logger

import (
	"log/slog"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// ClubID records the club identifier under the key "club_id".
// If id is nil, it returns an empty Attr.
func ClubID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("club_id", id)
}

// ActorID records the acting user under the key "actor_id".
// Empty ids (system actions) produce an empty Attr.
func ActorID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("actor_id", id)
}

// RequestID records the request identifier under the key "request_id".
// If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// Status records a subscription status under the key "status".
func Status(status string) slog.Attr {
	return slog.String("status", status)
}

// Transition records a status change as "from->to" under the key "transition".
func Transition(from, to string) slog.Attr {
	return slog.String("transition", from+"->"+to)
}

// PlanCycle records a billing cycle under the key "plan_cycle".
func PlanCycle(cycle string) slog.Attr {
	return slog.String("plan_cycle", cycle)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// TaskName records a periodic task name under the key "task_name".
func TaskName(name string) slog.Attr {
	return slog.String("task_name", name)
}
