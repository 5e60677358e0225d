package lifecycle

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	_ Store        = (*MemoryStore)(nil)
	_ MetricsStore = (*MemoryMetricsStore)(nil)
)

// MemoryStore is a Store for tests and single-process deployments.
type MemoryStore struct {
	mu         sync.RWMutex
	subs       map[uuid.UUID]*Subscription
	extensions map[uuid.UUID]Extension
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs:       make(map[uuid.UUID]*Subscription),
		extensions: make(map[uuid.UUID]Extension),
	}
}

func (s *MemoryStore) Create(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub.ClubID]; ok {
		return ErrSubscriptionExists
	}
	sub.Version = 1
	s.subs[sub.ClubID] = sub.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, clubID uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[clubID]
	if !ok {
		return nil, ErrNotFound
	}
	return sub.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, sub *Subscription, expected int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkVersion(sub.ClubID, expected); err != nil {
		return err
	}
	s.write(sub, expected)

	if !sub.HasExtension() {
		delete(s.extensions, sub.ClubID)
	} else if ext, ok := s.extensions[sub.ClubID]; ok {
		ext.AcceptedAt = cloneTime(sub.ExtensionAcceptedAt)
		s.extensions[sub.ClubID] = ext
	}
	return nil
}

func (s *MemoryStore) GrantExtension(_ context.Context, sub *Subscription, expected int64, ext Extension) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkVersion(sub.ClubID, expected); err != nil {
		return err
	}
	if _, ok := s.extensions[sub.ClubID]; ok {
		return ErrAlreadyExtended
	}
	s.write(sub, expected)
	s.extensions[sub.ClubID] = ext
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, clubID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[clubID]; !ok {
		return ErrNotFound
	}
	delete(s.subs, clubID)
	delete(s.extensions, clubID)
	return nil
}

func (s *MemoryStore) ListSweepCandidates(_ context.Context, now time.Time, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	s.mu.RLock()
	ids := make([]uuid.UUID, 0, len(s.subs))
	for id, sub := range s.subs {
		if bytes.Compare(id[:], after[:]) <= 0 {
			continue
		}
		due := sub.PendingPlanEffectiveAt != nil && !now.Before(*sub.PendingPlanEffectiveAt)
		if sub.Status == StatusTrialing || sub.Status == StatusGrace || due {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Extension returns the stored extension record. Used by tests to check the
// record stays in step with the subscription.
func (s *MemoryStore) Extension(clubID uuid.UUID) (Extension, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ext, ok := s.extensions[clubID]
	return ext, ok
}

func (s *MemoryStore) checkVersion(clubID uuid.UUID, expected int64) error {
	current, ok := s.subs[clubID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expected {
		return ErrVersionConflict
	}
	return nil
}

func (s *MemoryStore) write(sub *Subscription, expected int64) {
	sub.Version = expected + 1
	s.subs[sub.ClubID] = sub.Clone()
}

// MemoryMetricsStore is a MetricsStore kept in process memory.
type MemoryMetricsStore struct {
	mu      sync.Mutex
	metrics map[uuid.UUID]EngagementMetrics
	seen    map[uuid.UUID]map[string]struct{}
}

func NewMemoryMetricsStore() *MemoryMetricsStore {
	return &MemoryMetricsStore{
		metrics: make(map[uuid.UUID]EngagementMetrics),
		seen:    make(map[uuid.UUID]map[string]struct{}),
	}
}

func (s *MemoryMetricsStore) Record(_ context.Context, clubID uuid.UUID, ev EngagementEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ev.EventID != "" {
		seen := s.seen[clubID]
		if seen == nil {
			seen = make(map[string]struct{})
			s.seen[clubID] = seen
		}
		if _, dup := seen[ev.EventID]; dup {
			return false, nil
		}
		seen[ev.EventID] = struct{}{}
	}

	m := s.metrics[clubID]
	m.ClubID = clubID
	switch ev.Kind {
	case EngagementPlayerCreated:
		m.PlayersInvited++
	case EngagementMatchLogged:
		m.MatchesLogged++
	}
	if ev.OccurredAt.After(m.LastActivityAt) {
		m.LastActivityAt = ev.OccurredAt
	}
	s.metrics[clubID] = m
	return true, nil
}

func (s *MemoryMetricsStore) Get(_ context.Context, clubID uuid.UUID) (EngagementMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.metrics[clubID]
	if !ok {
		return EngagementMetrics{ClubID: clubID}, nil
	}
	return m, nil
}

func (s *MemoryMetricsStore) Delete(_ context.Context, clubID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.metrics, clubID)
	delete(s.seen, clubID)
	return nil
}
