// Package binder fills request structs from HTTP requests.
//
// Each binder reads one source and only touches fields tagged for it:
//
//	type planRequest struct {
//		ClubID    uuid.UUID `path:"clubID" json:"-"`
//		PlanCycle string    `json:"plan_cycle"`
//	}
//
// JSON decodes the body strictly: unknown fields, trailing data and bodies
// over DefaultMaxJSONSize are rejected. Query and Path convert strings into
// basic kinds, slices, pointers and any type implementing
// encoding.TextUnmarshaler, such as uuid.UUID and time.Time.
//
// Binders are plain functions, so they plug into handler.Wrap:
//
//	handler.Wrap(h, handler.WithBinders(binder.JSON(), binder.Path(chi.URLParam)))
package binder
