// Package audit records an append-only trail of state-changing actions.
//
// Each Event names the action, the club and actor it concerns, its outcome and
// the previous and current values of the fields it changed. A Logger fills the
// identity fields from context through pluggable extractors and hands events to
// a Storage; a Reader queries them back.
//
//	log := audit.NewLogger(storage,
//	    audit.WithActorIDExtractor(actorFromContext),
//	)
//
//	_ = log.Log(ctx, "extension.accepted",
//	    audit.WithClubID(clubID.String()),
//	    audit.WithChange(
//	        map[string]any{"trial_ends_at": before},
//	        map[string]any{"trial_ends_at": after},
//	    ),
//	)
//
// Storage implementations must never update or delete stored events.
package audit
