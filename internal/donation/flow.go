// Package donation drives a donation from order creation through checkout to
// backend verification.
//
//	idle -> order-created -> widget-open -> verifying -> settled
//	                 \              \             \-> failed
//	                  \--------------\-> failed
package donation

import (
	"errors"
	"fmt"
)

// State is a position in the donation flow.
type State string

const (
	StateIdle         State = "idle"
	StateOrderCreated State = "order-created"
	StateWidgetOpen   State = "widget-open"
	StateVerifying    State = "verifying"
	StateSettled      State = "settled"
	StateFailed       State = "failed"
)

// ErrInvalidTransition is returned for a move the flow does not allow.
var ErrInvalidTransition = errors.New("invalid donation state transition")

var transitions = map[State][]State{
	StateIdle:         {StateOrderCreated},
	StateOrderCreated: {StateWidgetOpen, StateFailed},
	StateWidgetOpen:   {StateVerifying, StateFailed},
	StateVerifying:    {StateSettled, StateFailed},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSettled || s == StateFailed
}

// Flow is one donation's position in the state machine.
type Flow struct {
	state State
}

// NewFlow starts a flow at idle.
func NewFlow() *Flow { return &Flow{state: StateIdle} }

// FlowAt resumes a flow at a persisted state.
func FlowAt(s State) *Flow { return &Flow{state: s} }

// State is the current state.
func (f *Flow) State() State { return f.state }

// CanMove reports whether to is reachable from the current state.
func (f *Flow) CanMove(to State) bool {
	for _, next := range transitions[f.state] {
		if next == to {
			return true
		}
	}
	return false
}

func (f *Flow) transition(to State) error {
	if !f.CanMove(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, f.state, to)
	}
	f.state = to
	return nil
}
