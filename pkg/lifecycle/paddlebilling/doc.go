// Package paddlebilling connects the lifecycle engine to Paddle Billing.
//
// Provider verifies webhook signatures, maps Paddle notifications to
// lifecycle.BillingEvent values and looks up renewal dates for
// lifecycle.Service.ScheduleActivation. Checkouts must carry the club id in
// custom_data.club_id; events without it are rejected with ErrUnknownClub.
package paddlebilling
