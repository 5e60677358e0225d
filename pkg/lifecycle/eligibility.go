package lifecycle

import "time"

// Mode is the kind of extension a club qualifies for.
type Mode string

const (
	ModeNone     Mode = "none"
	ModeAuto     Mode = "auto"
	ModeProposed Mode = "proposed"
)

// Reasons explain a Decision to API callers and logs.
const (
	ReasonAlreadyExtended  = "already_extended"
	ReasonNotTrialing      = "not_trialing"
	ReasonOutsideWindow    = "outside_evaluation_window"
	ReasonNoTrialActivity  = "no_activity_during_trial"
	ReasonBelowThreshold   = "below_threshold"
	ReasonAutoThreshold    = "auto_threshold_met"
	ReasonProposeThreshold = "proposal_threshold_met"
)

// Decision is the outcome of evaluating a club's engagement.
type Decision struct {
	Qualifies bool   `json:"qualifies"`
	Mode      Mode   `json:"mode"`
	Reason    string `json:"reason"`
}

func none(reason string) Decision {
	return Decision{Mode: ModeNone, Reason: reason}
}

// Evaluate decides whether sub deserves more trial time. It never mutates
// its inputs; applying the decision is the caller's job.
//
// A club that already holds an extension of either kind never qualifies
// again, so repeated evaluation is idempotent.
func Evaluate(p Policy, m EngagementMetrics, sub Subscription, now time.Time) Decision {
	if sub.HasExtension() {
		return none(ReasonAlreadyExtended)
	}
	if sub.Status != StatusTrialing || CalculateGrace(sub.TrialEndsAt, now, p.GraceWindow).Phase != StatusTrialing {
		return none(ReasonNotTrialing)
	}
	if p.EvaluationWindow > 0 && now.Before(sub.TrialEndsAt.Add(-p.EvaluationWindow)) {
		return none(ReasonOutsideWindow)
	}
	if m.LastActivityAt.IsZero() || m.LastActivityAt.Before(sub.TrialStartedAt) {
		return none(ReasonNoTrialActivity)
	}

	switch {
	case m.PlayersInvited >= p.AutoMinPlayers && m.MatchesLogged >= p.AutoMinMatches:
		return Decision{Qualifies: true, Mode: ModeAuto, Reason: ReasonAutoThreshold}
	case m.PlayersInvited >= p.ProposeMinPlayers && m.MatchesLogged >= p.ProposeMinMatches:
		return Decision{Qualifies: true, Mode: ModeProposed, Reason: ReasonProposeThreshold}
	}
	return none(ReasonBelowThreshold)
}
