// Package statemachine provides the data-driven transition gate shared by the
// Order, Shipment and Return aggregates.
//
// A Table maps each state to the states it may move to. States missing from the
// map, or mapped to an empty list, are terminal.
package statemachine

import (
	"fmt"
	"slices"
	"sort"

	apperrors "github.com/allisson/orderbus/internal/errors"
)

// Table is a static transition table keyed by state.
type Table[S ~string] struct {
	aggregate   string
	transitions map[S][]S
}

// NewTable builds a Table for the named aggregate type. Every target state must
// itself be a key of transitions, otherwise NewTable panics: tables are package
// level literals and a dangling state is a programming error.
func NewTable[S ~string](aggregate string, transitions map[S][]S) Table[S] {
	for from, targets := range transitions {
		for _, to := range targets {
			if _, ok := transitions[to]; !ok {
				panic(fmt.Sprintf("statemachine: %s state %q targets undeclared state %q", aggregate, from, to))
			}
		}
	}
	return Table[S]{aggregate: aggregate, transitions: transitions}
}

// Aggregate returns the aggregate type name the table belongs to.
func (t Table[S]) Aggregate() string {
	return t.aggregate
}

// CanTransition reports whether to is listed among from's allowed targets.
func (t Table[S]) CanTransition(from, to S) bool {
	return slices.Contains(t.transitions[from], to)
}

// Transition returns nil when the move is legal and an *InvalidStateTransitionError otherwise.
func (t Table[S]) Transition(from, to S) error {
	if t.CanTransition(from, to) {
		return nil
	}
	return &InvalidStateTransitionError{
		Aggregate: t.aggregate,
		From:      string(from),
		To:        string(to),
	}
}

// IsTerminal reports whether s has no outgoing transitions.
func (t Table[S]) IsTerminal(s S) bool {
	return len(t.transitions[s]) == 0
}

// Has reports whether s is a declared state.
func (t Table[S]) Has(s S) bool {
	_, ok := t.transitions[s]
	return ok
}

// Targets returns a copy of the states reachable from s in one step.
func (t Table[S]) Targets(s S) []S {
	return slices.Clone(t.transitions[s])
}

// States returns every declared state in lexical order.
func (t Table[S]) States() []S {
	states := make([]S, 0, len(t.transitions))
	for s := range t.transitions {
		states = append(states, s)
	}
	sort.Slice(states, func(i, j int) bool { return states[i] < states[j] })
	return states
}

// Parse converts a raw name into a declared state.
func (t Table[S]) Parse(raw string) (S, error) {
	s := S(raw)
	if !t.Has(s) {
		return "", apperrors.Wrap(apperrors.ErrInvalidInput, fmt.Sprintf("unknown %s status %q", t.aggregate, raw))
	}
	return s, nil
}

// InvalidStateTransitionError signals a requested move outside the allowed set.
// It unwraps to errors.ErrConflict.
type InvalidStateTransitionError struct {
	Aggregate string
	From      string
	To        string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid %s state transition from %s to %s", e.Aggregate, e.From, e.To)
}

// Unwrap lets callers match the error with errors.Is(err, ErrConflict).
func (e *InvalidStateTransitionError) Unwrap() error {
	return apperrors.ErrConflict
}
