// Package lifecycle runs the trial and subscription lifecycle of clubs.
//
// A club starts trialing, falls into a grace window when the trial ends and
// expires when the window closes, unless it converts to a paid plan first.
// Engaged clubs can earn one trial extension: granted outright above the
// auto thresholds, or offered to the club administrator above the proposal
// thresholds. Paid clubs pick a monthly or annual cycle; switching in the
// middle of a paid period takes effect at the next renewal.
//
// Service is the only writer. Time-driven transitions are applied lazily on
// every read and eagerly by Sweep, so a club's status never depends on when
// somebody last looked at it:
//
//	svc, err := lifecycle.NewService(store, metrics, lifecycle.DefaultPolicy(),
//		lifecycle.WithLogger(log),
//		lifecycle.WithAuditStorage(auditStorage),
//	)
//	view, err := svc.CreateClubSubscription(ctx, clubID)
//
// Stores must implement optimistic concurrency on Subscription.Version.
// MemoryStore and MemoryMetricsStore serve tests and single-process setups;
// pgstore and redisstore are the production backends.
package lifecycle
