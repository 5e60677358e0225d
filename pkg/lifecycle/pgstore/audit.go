package pgstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/clubkit/pkg/audit"
)

var _ audit.Storage = (*AuditStorage)(nil)

// AuditStorage is an append-only audit.Storage on the audit_events table.
type AuditStorage struct {
	pool *pgxpool.Pool
}

// NewAuditStorage panics on a nil pool.
func NewAuditStorage(pool *pgxpool.Pool) *AuditStorage {
	if pool == nil {
		panic("pgstore: pool is required")
	}
	return &AuditStorage{pool: pool}
}

func (s *AuditStorage) Store(ctx context.Context, e audit.Event) error {
	prev, err := marshalMap(e.Previous)
	if err != nil {
		return err
	}
	curr, err := marshalMap(e.Current)
	if err != nil {
		return err
	}
	meta, err := marshalMap(e.Metadata)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_events (
			id, club_id, actor_id, request_id, action, resource, resource_id,
			result, error, previous, current, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.ClubID, e.ActorID, e.RequestID, e.Action, e.Resource, e.ResourceID,
		string(e.Result), e.Error, prev, curr, meta, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *AuditStorage) Query(ctx context.Context, c audit.Criteria) ([]audit.Event, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if c.ClubID != "" {
		add("club_id = $%d", c.ClubID)
	}
	if c.ActorID != "" {
		add("actor_id = $%d", c.ActorID)
	}
	if c.Action != "" {
		add("action = $%d", c.Action)
	}
	if c.ResourceID != "" {
		add("resource_id = $%d", c.ResourceID)
	}
	if !c.StartTime.IsZero() {
		add("created_at >= $%d", c.StartTime)
	}
	if !c.EndTime.IsZero() {
		add("created_at <= $%d", c.EndTime)
	}

	var q strings.Builder
	q.WriteString(`SELECT id, club_id, actor_id, request_id, action, resource, resource_id,
		result, error, previous, current, metadata, created_at FROM audit_events`)
	if len(where) > 0 {
		q.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	q.WriteString(" ORDER BY created_at DESC, id DESC")
	if c.Limit > 0 {
		args = append(args, c.Limit)
		fmt.Fprintf(&q, " LIMIT $%d", len(args))
	}
	if c.Offset > 0 {
		args = append(args, c.Offset)
		fmt.Fprintf(&q, " OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, q.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Event, error) {
		var (
			e                audit.Event
			result           string
			prev, curr, meta []byte
		)
		if err := row.Scan(&e.ID, &e.ClubID, &e.ActorID, &e.RequestID, &e.Action, &e.Resource, &e.ResourceID,
			&result, &e.Error, &prev, &curr, &meta, &e.CreatedAt); err != nil {
			return e, err
		}
		e.Result = audit.Result(result)
		e.CreatedAt = e.CreatedAt.UTC()
		for dst, raw := range map[*map[string]any][]byte{&e.Previous: prev, &e.Current: curr, &e.Metadata: meta} {
			if len(raw) == 0 {
				continue
			}
			if err := json.Unmarshal(raw, dst); err != nil {
				return e, err
			}
		}
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan audit events: %w", err)
	}
	return events, nil
}

func marshalMap(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode audit payload: %w", err)
	}
	return b, nil
}
