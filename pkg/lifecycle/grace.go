package lifecycle

import "time"

// Grace is the time-derived position of a trial.
type Grace struct {
	Phase       Status        `json:"phase"`
	Remaining   time.Duration `json:"remaining"`
	GraceEndsAt time.Time     `json:"grace_ends_at"`
}

// CalculateGrace splits time into three contiguous phases around trialEndsAt:
// trialing before it, grace from it until trialEndsAt+window, expired from
// then on. Remaining counts down to the end of the current phase.
func CalculateGrace(trialEndsAt, now time.Time, window time.Duration) Grace {
	graceEndsAt := trialEndsAt.Add(window)
	switch {
	case now.Before(trialEndsAt):
		return Grace{Phase: StatusTrialing, Remaining: trialEndsAt.Sub(now), GraceEndsAt: graceEndsAt}
	case now.Before(graceEndsAt):
		return Grace{Phase: StatusGrace, Remaining: graceEndsAt.Sub(now), GraceEndsAt: graceEndsAt}
	default:
		return Grace{Phase: StatusExpired, GraceEndsAt: graceEndsAt}
	}
}
