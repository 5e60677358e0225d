// Command clubkit runs the club trial and subscription lifecycle service:
// the JSON API, the Paddle webhook receiver and the periodic sweep that
// moves clubs through grace and expiry.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/clubkit/pkg/config"
	"github.com/dmitrymomot/clubkit/pkg/email"
	"github.com/dmitrymomot/clubkit/pkg/httpserver"
	"github.com/dmitrymomot/clubkit/pkg/lifecycle"
	"github.com/dmitrymomot/clubkit/pkg/lifecycle/httpapi"
	"github.com/dmitrymomot/clubkit/pkg/lifecycle/paddlebilling"
	"github.com/dmitrymomot/clubkit/pkg/logger"
	"github.com/dmitrymomot/clubkit/pkg/periodic"
	"github.com/dmitrymomot/clubkit/pkg/redis"
	"github.com/dmitrymomot/clubkit/pkg/requestid"
)

var _ periodic.Locker = (*redis.Locker)(nil)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg appConfig
	config.MustLoad(&cfg)

	opts := []logger.Option{
		logger.WithEnvironment(cfg.Env, cfg.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if cfg.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(cfg.LogLevel))
	}
	log := logger.New(opts...)
	logger.SetAsDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("clubkit stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

// deps holds what the chosen storage backend provides.
type deps struct {
	store   lifecycle.Store
	metrics lifecycle.MetricsStore
	audit   lifecycle.Option
	locker  periodic.Locker
	checks  []httpserver.Check
	close   func()
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	policy, err := loadPolicy(cfg)
	if err != nil {
		return err
	}

	backend, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer backend.close()

	var emailCfg email.Config
	if err := config.Load(&emailCfg); err != nil {
		return fmt.Errorf("load email config: %w", err)
	}
	sender, err := email.NewSender(emailCfg)
	if err != nil {
		return fmt.Errorf("create email sender: %w", err)
	}

	svcOpts := []lifecycle.Option{
		lifecycle.WithLogger(log),
		lifecycle.WithNotifier(lifecycle.NewEmailNotifier(sender, cfg.AcceptURL)),
		backend.audit,
	}
	apiOpts := []httpapi.Option{
		httpapi.WithLogger(log),
		httpapi.WithTimeout(cfg.RequestTimeout),
	}

	var paddleCfg paddlebilling.Config
	if err := config.Load(&paddleCfg); err != nil {
		return fmt.Errorf("load paddle config: %w", err)
	}
	if paddleCfg.Enabled() {
		provider, err := paddlebilling.NewProvider(paddleCfg)
		if err != nil {
			return fmt.Errorf("create paddle provider: %w", err)
		}
		svcOpts = append(svcOpts, lifecycle.WithBoundaryResolver(provider))
		apiOpts = append(apiOpts, httpapi.WithWebhooks(provider))
	} else {
		log.Warn("paddle is not configured, billing webhooks are disabled")
	}

	svc, err := lifecycle.NewService(backend.store, backend.metrics, policy, svcOpts...)
	if err != nil {
		return fmt.Errorf("create lifecycle service: %w", err)
	}

	runnerOpts := []periodic.Option{periodic.WithLogger(log)}
	if backend.locker != nil {
		runnerOpts = append(runnerOpts, periodic.WithLocker(backend.locker))
	}
	runner := periodic.NewRunner(runnerOpts...)
	if err := runner.Register("lifecycle.sweep", periodic.Every(cfg.SweepInterval), svc.RunSweep,
		periodic.WithTimeout(cfg.SweepTimeout),
		periodic.RunOnStart(),
	); err != nil {
		return fmt.Errorf("register sweep: %w", err)
	}

	var httpCfg httpserver.Config
	if err := config.Load(&httpCfg); err != nil {
		return fmt.Errorf("load http config: %w", err)
	}
	r := chi.NewRouter()
	r.Get("/health/live", httpserver.HealthCheckHandler(log, cfg.HealthTimeout))
	r.Get("/health/ready", httpserver.HealthCheckHandler(log, cfg.HealthTimeout, backend.checks...))
	r.Mount("/", httpapi.New(svc, apiOpts...).Handle())
	server := httpserver.NewFromConfig(httpCfg, httpserver.WithLogger(log))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx, r)
	})
	g.Go(func() error {
		if err := runner.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	return g.Wait()
}

func loadPolicy(cfg appConfig) (lifecycle.Policy, error) {
	if cfg.PolicyFile != "" {
		return lifecycle.LoadPolicyFile(cfg.PolicyFile)
	}
	var policy lifecycle.Policy
	if err := config.Load(&policy); err != nil {
		return lifecycle.Policy{}, fmt.Errorf("load lifecycle policy: %w", err)
	}
	return policy, nil
}
