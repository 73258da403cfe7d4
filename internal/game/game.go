package game

import (
	"errors"
	"fmt"
)

// Kind identifies one of the supported game variants. The set is closed:
// every State and Move carries exactly one of these tags.
type Kind string

const (
	KindGrid    Kind = "grid"
	KindConnect Kind = "connect"
	KindRPS     Kind = "rps"
	KindDots    Kind = "dots_and_boxes"
)

// Player is a seat in a two-player game.
type Player int

const (
	NoPlayer  Player = 0
	PlayerOne Player = 1
	PlayerTwo Player = 2
)

func (p Player) other() Player {
	if p == PlayerOne {
		return PlayerTwo
	}
	return PlayerOne
}

// Move is the variant-tagged union of player actions. Only the fields
// relevant to the state's Kind are read; the rest are ignored.
type Move struct {
	Row         int    `json:"row"`
	Col         int    `json:"col"`
	Column      int    `json:"column"`
	Orientation string `json:"orientation,omitempty"` // dots: "h" or "v"
	Choice      string `json:"choice,omitempty"`      // rps: rock/paper/scissors
}

// Snapshot is an immutable, JSON-friendly copy of a game state. It is what
// sessions broadcast; the authoritative State never leaves its owner.
type Snapshot struct {
	Kind   Kind   `json:"kind"`
	Turn   Player `json:"turn"`
	Winner Player `json:"winner"`
	Draw   bool   `json:"draw"`
	Over   bool   `json:"over"`
	Board  any    `json:"board,omitempty"`
}

// State is the authoritative state of one game. Implementations are mutated
// only through Apply; everything else is read-only.
//
// Apply validates the move for the given seat and either advances the state
// or returns an *IllegalMoveError leaving the state untouched.
type State interface {
	Kind() Kind
	// Turn reports which seat moves next. NoPlayer means either seat may
	// act (concealed simultaneous rounds) or the game is over.
	Turn() Player
	Terminal() bool
	Result() (winner Player, draw bool)
	Apply(p Player, mv Move) error
	Snapshot() Snapshot
}

// IllegalMoveError is the typed rejection for a move that violates turn,
// occupancy or terminal rules. It is reported to the submitter only and
// never mutates state.
type IllegalMoveError struct {
	Reason string
}

func (e *IllegalMoveError) Error() string {
	return "illegal move: " + e.Reason
}

func illegal(format string, args ...any) error {
	return &IllegalMoveError{Reason: fmt.Sprintf(format, args...)}
}

// IsIllegalMove reports whether err is an IllegalMoveError.
func IsIllegalMove(err error) bool {
	var im *IllegalMoveError
	return errors.As(err, &im)
}

// New creates a fresh state for kind with the platform's standard
// parameters: 3x3/3 grid, 6x7/4 connect, best-of-5 rps, 5-dot boxes.
func New(kind Kind) (State, error) {
	switch kind {
	case KindGrid:
		return NewGrid(3, 3), nil
	case KindConnect:
		return NewConnect(6, 7, 4), nil
	case KindRPS:
		return NewRPS(5), nil
	case KindDots:
		return NewDots(5), nil
	default:
		return nil, fmt.Errorf("unknown game kind %q", kind)
	}
}
