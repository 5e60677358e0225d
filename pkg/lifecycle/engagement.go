package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/clubkit/pkg/logger"
)

// UpdateEngagementMetrics records one usage signal for a club and returns
// the resulting snapshot. Events carrying an already seen EventID are
// ignored.
func (s *Service) UpdateEngagementMetrics(ctx context.Context, clubID uuid.UUID, ev EngagementEvent) (EngagementMetrics, error) {
	if !ev.Kind.Valid() {
		return EngagementMetrics{}, fmt.Errorf("%w: unknown engagement kind %q", ErrInvalidEvent, ev.Kind)
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.now()
	}
	ev.OccurredAt = ev.OccurredAt.UTC()

	if _, err := s.store.Get(ctx, clubID); err != nil {
		return EngagementMetrics{}, s.storeError(err)
	}

	recorded, err := s.metrics.Record(ctx, clubID, ev)
	if err != nil {
		return EngagementMetrics{}, errors.Join(ErrPersistence, err)
	}
	if !recorded {
		s.logger.DebugContext(ctx, "duplicate engagement event ignored",
			logger.ClubID(clubID),
			logger.Event(ev.EventID),
		)
	}

	m, err := s.metrics.Get(ctx, clubID)
	if err != nil {
		return EngagementMetrics{}, errors.Join(ErrPersistence, err)
	}
	return m, nil
}

// EngagementMetrics returns the club's current usage snapshot.
func (s *Service) EngagementMetrics(ctx context.Context, clubID uuid.UUID) (EngagementMetrics, error) {
	if _, err := s.store.Get(ctx, clubID); err != nil {
		return EngagementMetrics{}, s.storeError(err)
	}
	m, err := s.metrics.Get(ctx, clubID)
	if err != nil {
		return EngagementMetrics{}, errors.Join(ErrPersistence, err)
	}
	return m, nil
}

// CheckAutoExtensionEligibility evaluates the club without changing anything.
func (s *Service) CheckAutoExtensionEligibility(ctx context.Context, clubID uuid.UUID) (Decision, error) {
	sub, err := s.store.Get(ctx, clubID)
	if err != nil {
		return Decision{}, s.storeError(err)
	}
	m, err := s.metrics.Get(ctx, clubID)
	if err != nil {
		return Decision{}, errors.Join(ErrPersistence, err)
	}
	return Evaluate(s.policy, m, *sub, s.now()), nil
}

// Evaluation is the outcome of EvaluateClub.
type Evaluation struct {
	View     *View    `json:"view"`
	Decision Decision `json:"decision"`
	// Applied is true when this call granted or proposed an extension.
	Applied bool `json:"applied"`
	// Updated is true when due transitions were persisted before evaluating.
	Updated bool `json:"updated"`
}

// EvaluateClub brings the club up to date, evaluates it and applies the
// decision. Losing a race to another evaluator is not an error.
func (s *Service) EvaluateClub(ctx context.Context, clubID uuid.UUID) (*Evaluation, error) {
	sub, updated, err := s.mutate(ctx, clubID, "subscription.refreshed", func(*Subscription, time.Time) (*Extension, error) {
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	m, err := s.metrics.Get(ctx, clubID)
	if err != nil {
		return nil, errors.Join(ErrPersistence, err)
	}

	res := &Evaluation{
		View:     s.view(sub, s.now()),
		Decision: Evaluate(s.policy, m, *sub, s.now()),
		Updated:  updated,
	}

	var view *View
	switch res.Decision.Mode {
	case ModeAuto:
		view, err = s.GrantAutoExtension(ctx, clubID)
	case ModeProposed:
		view, err = s.ProposeExtension(ctx, clubID)
	default:
		return res, nil
	}

	switch {
	case errors.Is(err, ErrAlreadyExtended):
		s.logger.DebugContext(ctx, "club extended concurrently", logger.ClubID(clubID))
		return res, nil
	case err != nil:
		return nil, err
	}
	res.View = view
	res.Applied = true
	return res, nil
}
