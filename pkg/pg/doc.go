// Package pg bootstraps PostgreSQL access on top of pgx/v5.
//
// Connect opens a *pgxpool.Pool with retries, Migrate runs goose migrations
// from an embedded filesystem over the same pool, WithTx wraps a unit of work
// in a transaction and Healthcheck returns a readiness check. Error helpers
// such as IsDuplicateKeyError classify *pgconn.PgError values.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, pgstore.Migrations(), log); err != nil {
//		return err
//	}
package pg
