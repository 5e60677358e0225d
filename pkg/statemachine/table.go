package statemachine

import (
	"context"
	"fmt"
	"slices"
)

var _ Machine = (*Table)(nil)

// Table is an immutable transition table: [fromState][event][]Transition.
// It is built once through New and never modified afterwards.
type Table struct {
	transitions map[string]map[string][]Transition
}

func newTable() *Table {
	return &Table{
		transitions: make(map[string]map[string][]Transition),
	}
}

func (t *Table) add(from, to State, event Event, guards []Guard, actions []Action) error {
	if from == nil || to == nil || event == nil {
		return ErrInvalidTransition
	}

	fromStateName := from.Name()
	if _, ok := t.transitions[fromStateName]; !ok {
		t.transitions[fromStateName] = make(map[string][]Transition)
	}

	// Multiple transitions allowed for same from/event to support guard-based branching
	t.transitions[fromStateName][event.Name()] = append(t.transitions[fromStateName][event.Name()], Transition{
		From:    from,
		To:      to,
		Event:   event,
		Guards:  guards,
		Actions: actions,
	})
	return nil
}

// Fire resolves the transition for event from the given state, runs its actions
// and returns the target state. The caller is responsible for persisting it.
func (t *Table) Fire(ctx context.Context, from State, event Event, data any) (State, error) {
	if event == nil {
		return from, ErrInvalidEvent
	}
	if from == nil {
		return nil, ErrInvalidState
	}

	transitions := t.transitions[from.Name()][event.Name()]
	if len(transitions) == 0 {
		return from, transitionError(from, event, ErrNoTransition)
	}

	valid := t.match(ctx, transitions, from, event, data)
	if valid == nil {
		return from, transitionError(from, event, ErrTransitionRejected)
	}

	for _, action := range valid.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, from, valid.To, event, data); err != nil {
			return from, fmt.Errorf("action failed: %w", err)
		}
	}

	return valid.To, nil
}

// CanFire reports whether Fire would find a transition whose guards pass. Actions are not run.
func (t *Table) CanFire(ctx context.Context, from State, event Event, data any) bool {
	if from == nil || event == nil {
		return false
	}
	return t.match(ctx, t.transitions[from.Name()][event.Name()], from, event, data) != nil
}

// Events returns the sorted names of events declared for the given state, ignoring guards.
func (t *Table) Events(from State) []string {
	if from == nil {
		return nil
	}
	events := make([]string, 0, len(t.transitions[from.Name()]))
	for name := range t.transitions[from.Name()] {
		events = append(events, name)
	}
	slices.Sort(events)
	return events
}

// match returns the first transition whose guards all pass (declaration order is priority).
func (t *Table) match(ctx context.Context, transitions []Transition, from State, event Event, data any) *Transition {
	for i, tr := range transitions {
		passed := true
		for _, guard := range tr.Guards {
			if guard != nil && !guard(ctx, from, event, data) {
				passed = false
				break
			}
		}
		if passed {
			return &transitions[i]
		}
	}
	return nil
}
