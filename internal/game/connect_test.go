package game

import (
	"reflect"
	"testing"
)

func TestConnectFullColumnRejected(t *testing.T) {
	s := NewConnect(6, 7, 4)

	// Fill column 3 with six alternating drops.
	for i := 0; i < 6; i++ {
		p := PlayerOne
		if i%2 == 1 {
			p = PlayerTwo
		}
		if err := s.Apply(p, Move{Column: 3}); err != nil {
			t.Fatalf("drop %d: unexpected error: %v", i, err)
		}
	}

	before := s.Snapshot()
	err := s.Apply(PlayerOne, Move{Column: 3})
	if !IsIllegalMove(err) {
		t.Fatalf("Apply() error = %v, want IllegalMoveError", err)
	}
	if s.Turn() != PlayerOne {
		t.Errorf("turn changed after rejected move: %v", s.Turn())
	}
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Error("rejected move mutated the game state")
	}
}

func TestConnectGravityDrop(t *testing.T) {
	s := NewConnect(6, 7, 4).(*connectState)

	_ = s.Apply(PlayerOne, Move{Column: 0})
	_ = s.Apply(PlayerTwo, Move{Column: 0})

	if s.board[5][0] != PlayerOne {
		t.Errorf("bottom cell = %v, want PlayerOne", s.board[5][0])
	}
	if s.board[4][0] != PlayerTwo {
		t.Errorf("stacked cell = %v, want PlayerTwo", s.board[4][0])
	}
}

func TestConnectVerticalWin(t *testing.T) {
	s := NewConnect(6, 7, 4)
	seq := []struct {
		p      Player
		column int
	}{
		{PlayerOne, 2}, {PlayerTwo, 4},
		{PlayerOne, 2}, {PlayerTwo, 4},
		{PlayerOne, 2}, {PlayerTwo, 4},
		{PlayerOne, 2},
	}
	for i, m := range seq {
		if err := s.Apply(m.p, Move{Column: m.column}); err != nil {
			t.Fatalf("move %d: unexpected error: %v", i, err)
		}
	}

	winner, draw := s.Result()
	if winner != PlayerOne || draw {
		t.Errorf("Result() = (%v, %v), want (PlayerOne, false)", winner, draw)
	}
	if err := s.Apply(PlayerTwo, Move{Column: 4}); !IsIllegalMove(err) {
		t.Errorf("move after win accepted: err = %v", err)
	}
}

func TestConnectOffTurnRejected(t *testing.T) {
	s := NewConnect(6, 7, 4)
	before := s.Snapshot()
	if err := s.Apply(PlayerTwo, Move{Column: 0}); !IsIllegalMove(err) {
		t.Fatalf("off-turn drop accepted: err = %v", err)
	}
	if !reflect.DeepEqual(before, s.Snapshot()) {
		t.Error("rejected move mutated the game state")
	}
}
