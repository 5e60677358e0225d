// Package httpserver wraps net/http with graceful shutdown, configurable
// timeouts and health checks.
//
// Server is built with New or NewFromConfig plus Option helpers. Run blocks
// until the context is canceled, then drains in-flight requests within the
// shutdown timeout. Request contexts are detached from Run's context so a
// drain does not cancel work that is already running. HealthCheckHandler
// serves liveness and readiness from a list of named dependency checks.
//
//	r := chi.NewRouter()
//	r.Get("/health", httpserver.HealthCheckHandler(log, 0))
//	r.Get("/ready", httpserver.HealthCheckHandler(log, 2*time.Second,
//		httpserver.Check{Name: "postgres", Ping: pg.Healthcheck(pool)},
//	))
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, r); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// Run wraps listen and serve errors with ErrStart and a drain that misses its
// deadline with ErrShutdown.
package httpserver
