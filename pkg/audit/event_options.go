package audit

import "maps"

// WithResource sets the resource type and ID
func WithResource(resource, id string) EventOption {
	return func(e *Event) {
		e.Resource = resource
		e.ResourceID = id
	}
}

// WithClubID overrides the club extracted from context.
// Background jobs have no request context, so they name the club explicitly.
func WithClubID(id string) EventOption {
	return func(e *Event) {
		if id != "" {
			e.ClubID = id
		}
	}
}

// WithMetadata adds metadata to the event
func WithMetadata(key string, value any) EventOption {
	return func(e *Event) {
		if e.Metadata == nil {
			e.Metadata = make(map[string]any)
		}
		e.Metadata[key] = value
	}
}

// WithChange records the values before and after the action.
func WithChange(previous, current map[string]any) EventOption {
	return func(e *Event) {
		if len(previous) > 0 {
			e.Previous = maps.Clone(previous)
		}
		if len(current) > 0 {
			e.Current = maps.Clone(current)
		}
	}
}

// WithResult sets the event result
func WithResult(result Result) EventOption {
	return func(e *Event) {
		e.Result = result
	}
}
