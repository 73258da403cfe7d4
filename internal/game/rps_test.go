package game

import (
	"reflect"
	"testing"
)

func TestRPSRoundResolution(t *testing.T) {
	s := NewRPS(5).(*rpsState)

	if err := s.Apply(PlayerOne, Move{Choice: ChoiceRock}); err != nil {
		t.Fatalf("first choice: %v", err)
	}
	if len(s.history) != 0 {
		t.Fatal("round resolved before both choices were in")
	}
	if err := s.Apply(PlayerTwo, Move{Choice: ChoiceScissors}); err != nil {
		t.Fatalf("second choice: %v", err)
	}

	if len(s.history) != 1 {
		t.Fatalf("history length = %d, want 1", len(s.history))
	}
	if s.history[0].Winner != PlayerOne {
		t.Errorf("round winner = %v, want PlayerOne (rock beats scissors)", s.history[0].Winner)
	}
	if s.wins != [2]int{1, 0} {
		t.Errorf("wins = %v, want [1 0]", s.wins)
	}
}

func TestRPSDoubleSubmitRejected(t *testing.T) {
	s := NewRPS(5)
	if err := s.Apply(PlayerOne, Move{Choice: ChoicePaper}); err != nil {
		t.Fatalf("first choice: %v", err)
	}

	before := s.Snapshot()
	err := s.Apply(PlayerOne, Move{Choice: ChoiceRock})
	if !IsIllegalMove(err) {
		t.Fatalf("second choice in same round accepted: err = %v", err)
	}
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Error("rejected move mutated the game state")
	}
}

func TestRPSBestOfFiveTerminal(t *testing.T) {
	s := NewRPS(5)

	// Three straight round wins for player one ends the match.
	for round := 0; round < 3; round++ {
		if err := s.Apply(PlayerOne, Move{Choice: ChoiceRock}); err != nil {
			t.Fatalf("round %d p1: %v", round, err)
		}
		if err := s.Apply(PlayerTwo, Move{Choice: ChoiceScissors}); err != nil {
			t.Fatalf("round %d p2: %v", round, err)
		}
	}

	if !s.Terminal() {
		t.Fatal("match not terminal after three round wins")
	}
	winner, draw := s.Result()
	if winner != PlayerOne || draw {
		t.Errorf("Result() = (%v, %v), want (PlayerOne, false)", winner, draw)
	}
	if err := s.Apply(PlayerTwo, Move{Choice: ChoiceRock}); !IsIllegalMove(err) {
		t.Errorf("choice accepted after terminal state: err = %v", err)
	}
}

func TestRPSDrawnRound(t *testing.T) {
	s := NewRPS(3).(*rpsState)
	_ = s.Apply(PlayerOne, Move{Choice: ChoicePaper})
	_ = s.Apply(PlayerTwo, Move{Choice: ChoicePaper})

	if s.wins != [2]int{0, 0} {
		t.Errorf("wins = %v after drawn round, want [0 0]", s.wins)
	}
	if s.round != 2 {
		t.Errorf("round = %d after drawn round, want 2", s.round)
	}
	if s.history[0].Winner != NoPlayer {
		t.Errorf("drawn round winner = %v, want NoPlayer", s.history[0].Winner)
	}
}

func TestRPSUnknownChoiceRejected(t *testing.T) {
	s := NewRPS(5)
	before := s.Snapshot()
	if err := s.Apply(PlayerOne, Move{Choice: "lizard"}); !IsIllegalMove(err) {
		t.Fatalf("unknown choice accepted: err = %v", err)
	}
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Error("rejected move mutated the game state")
	}
}
