// Package httpapi exposes the club lifecycle service over JSON/HTTP.
//
// Endpoints are typed handlers from pkg/handler. Route parameters, JSON
// bodies and query strings are bound by pkg/binder, and every response uses
// the handler envelope:
//
//	{"data": ..., "meta": ..., "error": {"code": "...", "message": "..."}}
//
// Request bodies must be sent as application/json.
//
// The caller's identity arrives in the X-User-ID header, set by the gateway
// after authentication, and is checked against club membership by the
// service when a proposal is accepted. Billing provider webhooks are served
// under /webhooks/paddle; redeliveries the service has nothing to do for are
// acknowledged with 200 so the provider stops retrying.
//
// Mount it next to the health checks:
//
//	api := httpapi.New(svc, httpapi.WithLogger(log), httpapi.WithWebhooks(provider))
//	r := chi.NewRouter()
//	r.Mount("/", api.Handle())
package httpapi
