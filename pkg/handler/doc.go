// Package handler turns typed request handlers into http.HandlerFunc.
//
// A handler receives a Context and a request struct filled by binders, and
// returns a Response:
//
//	type getRequest struct {
//		ClubID uuid.UUID `path:"clubID"`
//	}
//
//	func get(ctx handler.Context, req getRequest) handler.Response {
//		v, err := svc.GetClubSubscription(ctx, req.ClubID)
//		if err != nil {
//			return handler.Error(err)
//		}
//		return handler.JSON(v)
//	}
//
//	r.Get("/clubs/{clubID}", handler.Wrap(get,
//		handler.WithBinders[getRequest](binder.Path(chi.URLParam)),
//		handler.WithErrorHandler[getRequest](handler.NewErrorHandler(log, classify)),
//	))
//
// Binding failures, rendering failures and Error responses all reach the
// ErrorHandler. NewErrorHandler classifies the error into an HTTPError, logs
// client errors at warn and server errors at error level, and writes the
// JSON envelope:
//
//	{"data": ..., "meta": ..., "error": {"code": "...", "message": "...", "details": {...}}}
package handler
