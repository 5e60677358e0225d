// Package pgstore is the PostgreSQL backend of the lifecycle engine.
//
// Store implements lifecycle.Store. Every write runs in one transaction that
// updates the subscription row only if its version still matches, and a
// UNIQUE key on trial_extensions.club_id turns a second grant into
// lifecycle.ErrAlreadyExtended even when two writers race past the version
// check. AuditStorage keeps the append-only audit trail in the same database.
//
// Apply the schema with pg.Migrate(ctx, pool, cfg, pgstore.Migrations(), log).
package pgstore
