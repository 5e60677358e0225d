// Package statemachine provides declarative transition tables for finite-state
// machines whose current state is stored elsewhere.
//
// A Table maps (state, event) pairs to target states. Guards veto a transition
// based on runtime data and Actions run side effects before the target state is
// returned. The table never stores a current state: callers pass the state they
// loaded (for example a status column) and persist whatever Fire returns. This
// makes one table safe to share between goroutines that work on different
// records.
//
// # Usage
//
//	const (
//	    Trialing = statemachine.StringState("trialing")
//	    Grace    = statemachine.StringState("grace")
//	    TrialEnd = statemachine.StringEvent("trial_ended")
//	)
//
//	table := statemachine.MustNew(
//	    statemachine.WithTransition(Trialing, Grace, TrialEnd),
//	)
//
//	next, err := table.Fire(ctx, Trialing, TrialEnd, nil)
//
// When several transitions are declared for the same state and event, the first
// one whose guards pass wins.
//
// # Error Handling
//
//	if errors.Is(err, statemachine.ErrNoTransition) { /* event not declared for state */ }
//	if errors.Is(err, statemachine.ErrTransitionRejected) { /* guards said no */ }
package statemachine
