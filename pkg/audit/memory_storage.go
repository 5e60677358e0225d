package audit

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// MemoryStorage keeps audit events in process memory.
// Intended for tests and single-process development setups.
type MemoryStorage struct {
	mu     sync.RWMutex
	events []Event
}

// NewMemoryStorage creates an empty in-memory audit storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) Store(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, cloneEvent(event))
	return nil
}

func (s *MemoryStorage) Query(_ context.Context, c Criteria) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Event, 0)
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if !matches(e, c) {
			continue
		}
		result = append(result, cloneEvent(e))
	}

	if c.Offset > 0 {
		if c.Offset >= len(result) {
			return []Event{}, nil
		}
		result = result[c.Offset:]
	}
	if c.Limit > 0 && len(result) > c.Limit {
		result = result[:c.Limit]
	}
	return slices.Clip(result), nil
}

func matches(e Event, c Criteria) bool {
	switch {
	case c.ClubID != "" && e.ClubID != c.ClubID:
		return false
	case c.ActorID != "" && e.ActorID != c.ActorID:
		return false
	case c.Action != "" && e.Action != c.Action:
		return false
	case c.ResourceID != "" && e.ResourceID != c.ResourceID:
		return false
	case !c.StartTime.IsZero() && e.CreatedAt.Before(c.StartTime):
		return false
	case !c.EndTime.IsZero() && e.CreatedAt.After(c.EndTime):
		return false
	}
	return true
}

func cloneEvent(e Event) Event {
	e.Previous = maps.Clone(e.Previous)
	e.Current = maps.Clone(e.Current)
	e.Metadata = maps.Clone(e.Metadata)
	return e
}
