package domain

import (
	"testing"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

func TestMachine_HappyPath(t *testing.T) {
	m := NewMachine()
	for _, s := range []State{StateRequested, StateBorrowed, StateSwap1Done, StateSwap2Done, StateSettled} {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition(%s) error: %v", s, err)
		}
	}
	if got := len(m.History()); got != 6 {
		t.Errorf("History() has %d states, want 6", got)
	}
	m.Abort()
	if m.State() != StateSettled {
		t.Errorf("Abort() after settle moved to %s", m.State())
	}
}

func TestMachine_Illegal(t *testing.T) {
	tests := []struct {
		name  string
		steps []State
		bad   State
	}{
		{"skip borrow", []State{StateRequested}, StateSwap1Done},
		{"settle before swaps", []State{StateRequested, StateBorrowed}, StateSettled},
		{"leave settled", []State{StateRequested, StateBorrowed, StateSwap1Done, StateSwap2Done, StateSettled}, StateRequested},
		{"back to idle", []State{StateRequested}, StateIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine()
			for _, s := range tt.steps {
				if err := m.Transition(s); err != nil {
					t.Fatal(err)
				}
			}
			before := m.State()
			if err := m.Transition(tt.bad); apperror.GetCode(err) != apperror.CodeIllegalTransition {
				t.Errorf("Transition(%s) error = %v", tt.bad, err)
			}
			if m.State() != before {
				t.Errorf("state moved to %s", m.State())
			}
		})
	}
}

func TestMachine_AbortFromAnyLiveState(t *testing.T) {
	for _, s := range []State{StateIdle, StateRequested, StateBorrowed, StateSwap1Done, StateSwap2Done} {
		if !CanTransition(s, StateAborted) {
			t.Errorf("%s cannot abort", s)
		}
	}
	if CanTransition(StateAborted, StateAborted) {
		t.Error("aborted is not terminal")
	}
}
