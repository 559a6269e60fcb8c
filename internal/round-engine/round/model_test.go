package round_test

import (
	"testing"

	"github.com/radieske/game-round-engine-poc/internal/round-engine/round"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to round.State
		want     bool
	}{
		{round.StateWaiting, round.StateInProgress, true},
		{round.StateInProgress, round.StateCrashed, true},
		{round.StateCrashed, round.StateCompleted, true},

		{round.StateWaiting, round.StateCrashed, false},
		{round.StateWaiting, round.StateCompleted, false},
		{round.StateInProgress, round.StateWaiting, false},
		{round.StateInProgress, round.StateCompleted, false},
		{round.StateCrashed, round.StateWaiting, false},
		{round.StateCrashed, round.StateInProgress, false},
		{round.StateCompleted, round.StateWaiting, false},
		{round.StateCompleted, round.StateCrashed, false},
		{round.StateCompleted, round.StateCompleted, false},
	}
	for _, c := range cases {
		if got := round.CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

// ActiveStates alimenta a query do slot ativo; tem que bater com Admitting
func TestActiveStatesMatchAdmitting(t *testing.T) {
	all := []round.State{round.StateWaiting, round.StateInProgress, round.StateCrashed, round.StateCompleted}
	for _, s := range all {
		listed := false
		for _, a := range round.ActiveStates {
			if a == s {
				listed = true
			}
		}
		if listed != s.Admitting() {
			t.Errorf("state %s: in ActiveStates = %v, Admitting = %v", s, listed, s.Admitting())
		}
	}
}

func TestStateAdmitting(t *testing.T) {
	if !round.StateWaiting.Admitting() {
		t.Error("WAITING should admit bets")
	}
	if !round.StateInProgress.Admitting() {
		t.Error("IN_PROGRESS should admit bets")
	}
	if round.StateCrashed.Admitting() {
		t.Error("CRASHED should not admit bets")
	}
	if round.StateCompleted.Admitting() {
		t.Error("COMPLETED should not admit bets")
	}
}
