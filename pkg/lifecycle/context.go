package lifecycle

import "context"

type actorCtxKey struct{}

type requestIDCtxKey struct{}

// WithActor stores the authenticated caller's user id in ctx.
func WithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorCtxKey{}, actorID)
}

// ActorFromContext returns the caller set by WithActor.
func ActorFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(actorCtxKey{}).(string)
	return id, ok && id != ""
}

// WithRequestID stores the request id used to correlate audit entries.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, id)
}

// RequestIDFromContext returns the id set by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDCtxKey{}).(string)
	return id, ok && id != ""
}
