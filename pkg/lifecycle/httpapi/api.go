package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/clubkit/pkg/binder"
	"github.com/dmitrymomot/clubkit/pkg/handler"
	"github.com/dmitrymomot/clubkit/pkg/lifecycle"
	"github.com/dmitrymomot/clubkit/pkg/logger"
	"github.com/dmitrymomot/clubkit/pkg/requestid"
)

// ActorHeader carries the authenticated user id.
const ActorHeader = "X-User-ID"

// WebhookParser turns a signed provider notification into a billing event.
type WebhookParser interface {
	ParseWebhook(r *http.Request) (lifecycle.BillingEvent, error)
}

// API serves the lifecycle endpoints.
type API struct {
	svc      *lifecycle.Service
	webhooks WebhookParser
	logger   *slog.Logger
	timeout  time.Duration
	errors   handler.ErrorHandler
}

// Option configures an API.
type Option func(*API)

// WithLogger sets the logger used for request errors.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithWebhooks enables the billing webhook endpoint.
func WithWebhooks(p WebhookParser) Option {
	return func(a *API) { a.webhooks = p }
}

// WithTimeout bounds the time each request may spend in the service.
// Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(a *API) { a.timeout = d }
}

// New creates the API. It panics if svc is nil.
func New(svc *lifecycle.Service, opts ...Option) *API {
	if svc == nil {
		panic("httpapi: service is required")
	}
	a := &API{
		svc:     svc,
		logger:  slog.Default(),
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(logger.Component("httpapi"))
	a.errors = handler.NewErrorHandler(a.logger, classify)
	return a
}

// Handle returns the router with all endpoints mounted.
func (a *API) Handle() http.Handler {
	var (
		path  = binder.Path(chi.URLParam)
		body  = binder.JSON()
		query = binder.Query()
	)

	r := chi.NewRouter()
	r.Use(requestid.Middleware, a.identity, a.deadline)

	r.Route("/clubs", func(r chi.Router) {
		r.Post("/", wrap(a, a.create, body))
		r.Route("/{clubID}", func(r chi.Router) {
			r.Get("/", wrap(a, a.get, path))
			r.Delete("/", wrap(a, a.delete, path))
			r.Put("/contact", wrap(a, a.updateContact, path, body))

			r.Get("/engagement", wrap(a, a.engagement, path))
			r.Post("/engagement", wrap(a, a.recordEngagement, path, body))
			r.Get("/eligibility", wrap(a, a.eligibility, path))
			r.Post("/evaluate", wrap(a, a.evaluate, path))

			r.Post("/extension/auto", wrap(a, a.grantAuto, path))
			r.Post("/extension/proposal", wrap(a, a.propose, path))
			r.Post("/extension/accept", wrap(a, a.accept, path))

			r.Put("/plan", wrap(a, a.schedulePlan, path, body))
			r.Post("/activate", wrap(a, a.activate, path))
			r.Get("/history", wrap(a, a.history, path, query))
		})
	})
	r.Post("/internal/sweep", wrap(a, a.sweep))
	r.Post("/webhooks/paddle", wrap(a, a.paddleWebhook))

	return r
}

// wrap binds R with binders in order and renders errors through the
// API's error handler.
func wrap[R any](a *API, fn handler.HandlerFunc[R], binders ...handler.Bind) http.HandlerFunc {
	return handler.Wrap(fn,
		handler.WithBinders[R](binders...),
		handler.WithErrorHandler[R](a.errors),
	)
}

// identity copies the request id and the caller into the service context.
func (a *API) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := lifecycle.WithRequestID(r.Context(), requestid.FromContext(r.Context()))
		if actor := r.Header.Get(ActorHeader); actor != "" {
			ctx = lifecycle.WithActor(ctx, actor)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) deadline(next http.Handler) http.Handler {
	if a.timeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
