package domain

import (
	"fmt"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

// State is a step of one execution attempt.
type State int

const (
	StateIdle State = iota
	StateRequested
	StateBorrowed
	StateSwap1Done
	StateSwap2Done
	StateSettled
	StateAborted
)

var stateNames = map[State]string{
	StateIdle:      "idle",
	StateRequested: "requested",
	StateBorrowed:  "borrowed",
	StateSwap1Done: "swap1_done",
	StateSwap2Done: "swap2_done",
	StateSettled:   "settled",
	StateAborted:   "aborted",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	return s == StateSettled || s == StateAborted
}

// Every non-terminal state may abort.
var transitions = map[State][]State{
	StateIdle:      {StateRequested, StateAborted},
	StateRequested: {StateBorrowed, StateAborted},
	StateBorrowed:  {StateSwap1Done, StateAborted},
	StateSwap1Done: {StateSwap2Done, StateAborted},
	StateSwap2Done: {StateSettled, StateAborted},
}

// CanTransition reports whether from -> to is legal.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Machine tracks one attempt. It is not safe for concurrent use; an
// attempt runs on a single goroutine.
type Machine struct {
	state   State
	history []State
}

func NewMachine() *Machine {
	return &Machine{state: StateIdle, history: []State{StateIdle}}
}

func (m *Machine) State() State { return m.state }

// History returns every state visited, in order.
func (m *Machine) History() []State {
	return append([]State(nil), m.history...)
}

// Transition moves to next or fails with ILLEGAL_STATE_TRANSITION.
func (m *Machine) Transition(next State) error {
	if !CanTransition(m.state, next) {
		return apperror.New(apperror.CodeIllegalTransition,
			apperror.WithContext(fmt.Sprintf("%s -> %s", m.state, next)))
	}
	m.state = next
	m.history = append(m.history, next)
	return nil
}

// Abort moves to Aborted unless already terminal.
func (m *Machine) Abort() {
	if !m.state.Terminal() {
		m.state = StateAborted
		m.history = append(m.history, StateAborted)
	}
}
