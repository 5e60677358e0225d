package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/clubkit/pkg/logger"
)

// GrantAutoExtension adds Policy.ExtensionDays to a trialing club's trial
// without asking anyone. A club gets at most one extension of any kind.
func (s *Service) GrantAutoExtension(ctx context.Context, clubID uuid.UUID) (*View, error) {
	sub, _, err := s.mutate(ctx, clubID, "extension.auto_granted", func(sub *Subscription, now time.Time) (*Extension, error) {
		if sub.HasExtension() {
			return nil, ErrAlreadyExtended
		}
		if sub.Status != StatusTrialing {
			return nil, fmt.Errorf("%w: auto extension requires a trialing club, got %s", ErrInvalidTransition, sub.Status)
		}

		days := s.policy.ExtensionDays
		sub.TrialEndsAt = sub.TrialEndsAt.AddDate(0, 0, days)
		sub.ExtensionKind = ExtensionAuto
		sub.ExtensionGrantedAt = ptr(now)
		sub.ExtensionProposed = false
		sub.ExtensionProposedDays = days
		return sub.Extension(), nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "trial extended automatically",
		logger.ClubID(clubID),
		slog.Time("trial_ends_at", sub.TrialEndsAt),
	)
	return s.view(sub, s.now()), nil
}

// ProposeExtension offers a trialing club more time and notifies its
// administrator. The offer is withdrawn again when the notification fails,
// so no club holds a proposal nobody has seen.
func (s *Service) ProposeExtension(ctx context.Context, clubID uuid.UUID) (*View, error) {
	sub, _, err := s.mutate(ctx, clubID, "extension.proposed", func(sub *Subscription, now time.Time) (*Extension, error) {
		if sub.HasExtension() {
			return nil, ErrAlreadyExtended
		}
		if sub.Status != StatusTrialing {
			return nil, fmt.Errorf("%w: proposal requires a trialing club, got %s", ErrInvalidTransition, sub.Status)
		}

		sub.ExtensionKind = ExtensionProposed
		sub.ExtensionGrantedAt = ptr(now)
		sub.ExtensionProposed = true
		sub.ExtensionProposedDays = s.policy.ExtensionDays
		sub.ExtensionAcceptedAt = nil
		return sub.Extension(), nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if nerr := s.notifier.ExtensionProposed(ctx, *sub.Clone()); nerr != nil {
			return nil, s.withdrawProposal(ctx, clubID, nerr)
		}
	}

	s.logger.InfoContext(ctx, "trial extension proposed", logger.ClubID(clubID))
	return s.view(sub, s.now()), nil
}

// withdrawProposal undoes an unannounced proposal. It leaves the record
// alone if somebody accepted in the meantime.
func (s *Service) withdrawProposal(ctx context.Context, clubID uuid.UUID, cause error) error {
	s.logger.WarnContext(ctx, "proposal notification failed, withdrawing proposal",
		logger.ClubID(clubID),
		logger.Error(cause),
	)

	_, _, err := s.mutate(context.WithoutCancel(ctx), clubID, "extension.withdrawn", func(sub *Subscription, _ time.Time) (*Extension, error) {
		if sub.ExtensionKind != ExtensionProposed || sub.ExtensionAcceptedAt != nil {
			return nil, nil
		}
		sub.ExtensionKind = ExtensionNone
		sub.ExtensionGrantedAt = nil
		sub.ExtensionProposed = false
		sub.ExtensionProposedDays = 0
		return nil, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to withdraw proposal",
			logger.ClubID(clubID),
			logger.Error(err),
		)
		return errors.Join(ErrNotificationFailed, cause, err)
	}
	return errors.Join(ErrNotificationFailed, cause)
}

// AcceptProposedExtension applies a pending proposal on behalf of the actor
// stored in ctx. A club that fell into grace returns to trialing if the
// extended end date lies in the future. Expired clubs only do so when
// Policy.ReopenExpired is set; otherwise expired is terminal.
func (s *Service) AcceptProposedExtension(ctx context.Context, clubID uuid.UUID) (*View, error) {
	const action = "extension.accepted"

	if _, err := s.store.Get(ctx, clubID); err != nil {
		err = s.storeError(err)
		s.recordFailure(ctx, action, clubID, err)
		return nil, err
	}
	if err := s.authorize(ctx, clubID); err != nil {
		s.recordFailure(ctx, action, clubID, err)
		return nil, err
	}

	sub, _, err := s.mutate(ctx, clubID, action, func(sub *Subscription, now time.Time) (*Extension, error) {
		if !sub.ExtensionProposed {
			return nil, ErrNoProposalPending
		}
		if sub.ExtensionAcceptedAt != nil {
			return nil, errors.Join(ErrNoProposalPending, ErrExtensionAlreadyAccepted)
		}
		if s.proposalLapsed(sub) {
			return nil, errors.Join(ErrNoProposalPending, ErrProposalLapsed)
		}
		if sub.Status == StatusActive || sub.Status == StatusCanceled ||
			(sub.Status == StatusExpired && !s.policy.ReopenExpired) {
			return nil, fmt.Errorf("%w: cannot extend a trial in status %s", ErrInvalidTransition, sub.Status)
		}

		sub.TrialEndsAt = sub.TrialEndsAt.AddDate(0, 0, sub.ExtensionProposedDays)
		sub.ExtensionAcceptedAt = ptr(now)

		if sub.Status == StatusGrace || sub.Status == StatusExpired {
			if err := s.fire(ctx, sub, eventExtensionAccepted, now); err != nil {
				// the new end date is already behind us; the club stays where it is
				s.logger.InfoContext(ctx, "accepted extension does not reopen trial",
					logger.ClubID(sub.ClubID),
					logger.Status(sub.Status.String()),
				)
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "trial extension accepted",
		logger.ClubID(clubID),
		logger.Status(sub.Status.String()),
	)
	return s.view(sub, s.now()), nil
}

func (s *Service) proposalLapsed(sub *Subscription) bool {
	switch s.policy.ProposalLapse {
	case LapseOnGrace:
		return sub.Status == StatusGrace || sub.Status == StatusExpired
	case LapseOnExpiry:
		return sub.Status == StatusExpired
	}
	return false
}

func (s *Service) authorize(ctx context.Context, clubID uuid.UUID) error {
	if s.members == nil {
		return nil
	}
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	member, err := s.members.IsMember(ctx, actor, clubID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return ErrUnauthorized
	}
	return nil
}
