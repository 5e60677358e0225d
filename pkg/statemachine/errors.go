package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("statemachine: transition needs from, to and event")
	ErrInvalidEvent      = errors.New("statemachine: event is nil")
	ErrInvalidState      = errors.New("statemachine: state is nil")
	ErrNoTransitions     = errors.New("statemachine: table has no transitions")

	// ErrNoTransition means the event is not declared for the state.
	ErrNoTransition = errors.New("statemachine: no transition declared")
	// ErrTransitionRejected means every declared transition was blocked by a guard.
	ErrTransitionRejected = errors.New("statemachine: transition rejected by guards")
)

// TransitionError reports which state and event failed to fire. It matches
// ErrNoTransition or ErrTransitionRejected with errors.Is.
type TransitionError struct {
	From   string
	Event  string
	Reason error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s on %s", e.Reason, e.From, e.Event)
}

func (e *TransitionError) Unwrap() error { return e.Reason }

func transitionError(from State, event Event, reason error) error {
	return &TransitionError{From: from.Name(), Event: event.Name(), Reason: reason}
}
