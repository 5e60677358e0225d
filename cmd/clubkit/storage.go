package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/clubkit/pkg/audit"
	"github.com/dmitrymomot/clubkit/pkg/config"
	"github.com/dmitrymomot/clubkit/pkg/httpserver"
	"github.com/dmitrymomot/clubkit/pkg/lifecycle"
	"github.com/dmitrymomot/clubkit/pkg/lifecycle/pgstore"
	"github.com/dmitrymomot/clubkit/pkg/lifecycle/redisstore"
	"github.com/dmitrymomot/clubkit/pkg/logger"
	"github.com/dmitrymomot/clubkit/pkg/pg"
	"github.com/dmitrymomot/clubkit/pkg/redis"
)

func openStorage(ctx context.Context, cfg appConfig, log *slog.Logger) (*deps, error) {
	switch cfg.Storage {
	case storageMemory:
		log.Warn("using in-memory storage, state is lost on restart")
		return &deps{
			store:   lifecycle.NewMemoryStore(),
			metrics: lifecycle.NewMemoryMetricsStore(),
			audit:   lifecycle.WithAuditStorage(audit.NewMemoryStorage()),
			close:   func() {},
		}, nil
	case storagePostgres:
		return openPersistent(ctx, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

func openPersistent(ctx context.Context, log *slog.Logger) (*deps, error) {
	var pgCfg pg.Config
	if err := config.Load(&pgCfg); err != nil {
		return nil, fmt.Errorf("load postgres config: %w", err)
	}
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx, pool, pgCfg, pgstore.Migrations(), log.With(logger.Component("migrate"))); err != nil {
		pool.Close()
		return nil, err
	}

	var redisCfg redis.Config
	if err := config.Load(&redisCfg); err != nil {
		pool.Close()
		return nil, fmt.Errorf("load redis config: %w", err)
	}
	client, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &deps{
		store:   pgstore.New(pool),
		metrics: redisstore.New(client),
		audit:   lifecycle.WithAuditStorage(pgstore.NewAuditStorage(pool)),
		locker:  redis.NewLocker(client, "clubkit:lock:"),
		checks: []httpserver.Check{
			{Name: "postgres", Ping: pg.Healthcheck(pool)},
			{Name: "redis", Ping: redis.Healthcheck(client)},
		},
		close: func() {
			if err := client.Close(); err != nil {
				log.Warn("failed to close redis client", logger.Error(err))
			}
			pool.Close()
		},
	}, nil
}
