package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/clubkit/pkg/lifecycle"
	"github.com/dmitrymomot/clubkit/pkg/pg"
)

var _ lifecycle.Store = (*Store)(nil)

const extensionsUniqueKey = "trial_extensions_club_id_key"

const subscriptionColumns = `
	club_id, status, contact_email, club_name,
	trial_started_at, trial_ends_at,
	plan_cycle, pending_plan_cycle, pending_plan_effective_at, current_period_ends_at,
	extension_kind, extension_granted_at, extension_proposed, extension_proposed_days, extension_accepted_at,
	provider_subscription_id, last_billing_event_at,
	activated_at, canceled_at, status_changed_at,
	version, created_at, updated_at`

// Store keeps subscriptions and their extension records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New panics on a nil pool.
func New(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("pgstore: pool is required")
	}
	return &Store{pool: pool}
}

func (s *Store) Create(ctx context.Context, sub *lifecycle.Subscription) error {
	query := `INSERT INTO club_subscriptions (` + subscriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, 1, $21, $22)`

	args := writeArgs(sub)
	args = append(args, sub.CreatedAt, sub.UpdatedAt)
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		if pg.IsDuplicateKeyError(err) {
			return lifecycle.ErrSubscriptionExists
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	sub.Version = 1
	return nil
}

func (s *Store) Get(ctx context.Context, clubID uuid.UUID) (*lifecycle.Subscription, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM club_subscriptions WHERE club_id = $1`, clubID)
	sub, err := scanSubscription(row)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, lifecycle.ErrNotFound
		}
		return nil, fmt.Errorf("select subscription: %w", err)
	}
	return sub, nil
}

func (s *Store) Update(ctx context.Context, sub *lifecycle.Subscription, expected int64) error {
	return pg.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := updateSubscription(ctx, tx, sub, expected); err != nil {
			return err
		}

		if sub.HasExtension() {
			_, err := tx.Exec(ctx,
				`UPDATE trial_extensions SET accepted_at = $2 WHERE club_id = $1`,
				sub.ClubID, sub.ExtensionAcceptedAt,
			)
			if err != nil {
				return fmt.Errorf("update extension: %w", err)
			}
		} else {
			if _, err := tx.Exec(ctx, `DELETE FROM trial_extensions WHERE club_id = $1`, sub.ClubID); err != nil {
				return fmt.Errorf("delete extension: %w", err)
			}
		}

		sub.Version = expected + 1
		return nil
	})
}

func (s *Store) GrantExtension(ctx context.Context, sub *lifecycle.Subscription, expected int64, ext lifecycle.Extension) error {
	return pg.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := updateSubscription(ctx, tx, sub, expected); err != nil {
			return err
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO trial_extensions (club_id, kind, days, granted_at, accepted_at) VALUES ($1, $2, $3, $4, $5)`,
			ext.ClubID, string(ext.Kind), ext.Days, ext.GrantedAt, ext.AcceptedAt,
		)
		if err != nil {
			if pg.IsDuplicateKeyError(err) && pg.ConstraintName(err) == extensionsUniqueKey {
				return lifecycle.ErrAlreadyExtended
			}
			return fmt.Errorf("insert extension: %w", err)
		}

		sub.Version = expected + 1
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, clubID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM club_subscriptions WHERE club_id = $1`, clubID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return lifecycle.ErrNotFound
	}
	return nil
}

func (s *Store) ListSweepCandidates(ctx context.Context, now time.Time, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT club_id FROM club_subscriptions
		WHERE club_id > $1
		  AND (status IN ('trialing', 'grace')
		       OR (pending_plan_effective_at IS NOT NULL AND pending_plan_effective_at <= $2))
		ORDER BY club_id
		LIMIT $3`,
		after, now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sweep candidates: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("list sweep candidates: %w", err)
	}
	return ids, nil
}

// Extension returns the club's extension record.
func (s *Store) Extension(ctx context.Context, clubID uuid.UUID) (*lifecycle.Extension, error) {
	var (
		ext  lifecycle.Extension
		kind string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT club_id, kind, days, granted_at, accepted_at FROM trial_extensions WHERE club_id = $1`,
		clubID,
	).Scan(&ext.ClubID, &kind, &ext.Days, &ext.GrantedAt, &ext.AcceptedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, lifecycle.ErrNotFound
		}
		return nil, fmt.Errorf("select extension: %w", err)
	}
	ext.Kind = lifecycle.ExtensionKind(kind)
	return &ext, nil
}

// updateSubscription is the compare-and-set on version.
func updateSubscription(ctx context.Context, tx pgx.Tx, sub *lifecycle.Subscription, expected int64) error {
	args := writeArgs(sub)
	args = append(args, sub.UpdatedAt, expected)

	tag, err := tx.Exec(ctx, `
		UPDATE club_subscriptions SET
			status = $2, contact_email = $3, club_name = $4,
			trial_started_at = $5, trial_ends_at = $6,
			plan_cycle = $7, pending_plan_cycle = $8, pending_plan_effective_at = $9, current_period_ends_at = $10,
			extension_kind = $11, extension_granted_at = $12, extension_proposed = $13,
			extension_proposed_days = $14, extension_accepted_at = $15,
			provider_subscription_id = $16, last_billing_event_at = $17,
			activated_at = $18, canceled_at = $19, status_changed_at = $20,
			updated_at = $21, version = version + 1
		WHERE club_id = $1 AND version = $22`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM club_subscriptions WHERE club_id = $1)`, sub.ClubID).Scan(&exists); err != nil {
		return fmt.Errorf("check subscription: %w", err)
	}
	if !exists {
		return lifecycle.ErrNotFound
	}
	return lifecycle.ErrVersionConflict
}

// writeArgs returns $1..$20 in subscriptionColumns order.
func writeArgs(sub *lifecycle.Subscription) []any {
	return []any{
		sub.ClubID,
		string(sub.Status),
		sub.ContactEmail,
		sub.ClubName,
		sub.TrialStartedAt,
		sub.TrialEndsAt,
		string(sub.PlanCycle),
		string(sub.PendingPlanCycle),
		sub.PendingPlanEffectiveAt,
		sub.CurrentPeriodEndsAt,
		string(sub.ExtensionKind),
		sub.ExtensionGrantedAt,
		sub.ExtensionProposed,
		sub.ExtensionProposedDays,
		sub.ExtensionAcceptedAt,
		sub.ProviderSubscriptionID,
		sub.LastBillingEventAt,
		sub.ActivatedAt,
		sub.CanceledAt,
		sub.StatusChangedAt,
	}
}

func scanSubscription(row pgx.Row) (*lifecycle.Subscription, error) {
	var (
		sub                             lifecycle.Subscription
		status, cycle, pending, extKind string
	)
	err := row.Scan(
		&sub.ClubID, &status, &sub.ContactEmail, &sub.ClubName,
		&sub.TrialStartedAt, &sub.TrialEndsAt,
		&cycle, &pending, &sub.PendingPlanEffectiveAt, &sub.CurrentPeriodEndsAt,
		&extKind, &sub.ExtensionGrantedAt, &sub.ExtensionProposed, &sub.ExtensionProposedDays, &sub.ExtensionAcceptedAt,
		&sub.ProviderSubscriptionID, &sub.LastBillingEventAt,
		&sub.ActivatedAt, &sub.CanceledAt, &sub.StatusChangedAt,
		&sub.Version, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.Status = lifecycle.Status(status)
	sub.PlanCycle = lifecycle.PlanCycle(cycle)
	sub.PendingPlanCycle = lifecycle.PlanCycle(pending)
	sub.ExtensionKind = lifecycle.ExtensionKind(extKind)
	normalize(&sub)
	return &sub, nil
}

// normalize puts every timestamp in UTC so records compare equal to the
// values the service wrote.
func normalize(sub *lifecycle.Subscription) {
	sub.TrialStartedAt = sub.TrialStartedAt.UTC()
	sub.TrialEndsAt = sub.TrialEndsAt.UTC()
	sub.StatusChangedAt = sub.StatusChangedAt.UTC()
	sub.CreatedAt = sub.CreatedAt.UTC()
	sub.UpdatedAt = sub.UpdatedAt.UTC()
	for _, t := range []*time.Time{
		sub.PendingPlanEffectiveAt, sub.CurrentPeriodEndsAt, sub.ExtensionGrantedAt,
		sub.ExtensionAcceptedAt, sub.LastBillingEventAt, sub.ActivatedAt, sub.CanceledAt,
	} {
		if t != nil {
			*t = t.UTC()
		}
	}
}
