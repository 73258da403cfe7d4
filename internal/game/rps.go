package game

// Choices for the best-of-N concealed game. Each choice beats exactly one
// other: rock > scissors > paper > rock.
const (
	ChoiceRock     = "rock"
	ChoicePaper    = "paper"
	ChoiceScissors = "scissors"
)

var beats = map[string]string{
	ChoiceRock:     ChoiceScissors,
	ChoiceScissors: ChoicePaper,
	ChoicePaper:    ChoiceRock,
}

// RoundOutcome is one resolved round, revealed to both players only after
// both choices were in.
type RoundOutcome struct {
	Round     int    `json:"round"`
	ChoiceOne string `json:"choice_one"`
	ChoiceTwo string `json:"choice_two"`
	Winner    Player `json:"winner"` // NoPlayer on a drawn round
}

// RPSBoard is the broadcastable view of an rps match. Pending concealed
// choices are reported as submitted flags only.
type RPSBoard struct {
	RoundsToWin int            `json:"rounds_to_win"`
	Round       int            `json:"round"`
	Wins        [2]int         `json:"wins"`
	Submitted   [2]bool        `json:"submitted"`
	History     []RoundOutcome `json:"history,omitempty"`
}

type rpsState struct {
	roundsToWin int
	round       int
	wins        [2]int    // indexed by seat-1
	pending     [2]string // concealed until both are present
	history     []RoundOutcome
	winner      Player
}

// NewRPS creates a best-of-bestOf concealed choice game. A player wins the
// match after ceil(bestOf/2) round wins.
func NewRPS(bestOf int) State {
	return &rpsState{
		roundsToWin: (bestOf + 1) / 2,
		round:       1,
	}
}

func (s *rpsState) Kind() Kind { return KindRPS }

// Turn is NoPlayer throughout: rounds are simultaneous, either seat may act
// until it has a pending choice.
func (s *rpsState) Turn() Player   { return NoPlayer }
func (s *rpsState) Terminal() bool { return s.winner != NoPlayer }

func (s *rpsState) Result() (Player, bool) {
	// A best-of-N match cannot draw.
	return s.winner, false
}

func (s *rpsState) Apply(p Player, mv Move) error {
	if s.Terminal() {
		return illegal("game is over")
	}
	if p != PlayerOne && p != PlayerTwo {
		return illegal("unknown seat")
	}
	if _, ok := beats[mv.Choice]; !ok {
		return illegal("unknown choice %q", mv.Choice)
	}
	if s.pending[p-1] != "" {
		return illegal("choice already submitted this round")
	}

	s.pending[p-1] = mv.Choice
	if s.pending[0] == "" || s.pending[1] == "" {
		return nil // round resolves only once both choices are present
	}

	outcome := RoundOutcome{
		Round:     s.round,
		ChoiceOne: s.pending[0],
		ChoiceTwo: s.pending[1],
	}
	switch {
	case beats[s.pending[0]] == s.pending[1]:
		outcome.Winner = PlayerOne
	case beats[s.pending[1]] == s.pending[0]:
		outcome.Winner = PlayerTwo
	}
	s.history = append(s.history, outcome)
	s.pending = [2]string{}
	s.round++

	if outcome.Winner != NoPlayer {
		s.wins[outcome.Winner-1]++
		if s.wins[outcome.Winner-1] >= s.roundsToWin {
			s.winner = outcome.Winner
		}
	}
	return nil
}

func (s *rpsState) Snapshot() Snapshot {
	history := make([]RoundOutcome, len(s.history))
	copy(history, s.history)
	return Snapshot{
		Kind:   KindRPS,
		Turn:   NoPlayer,
		Winner: s.winner,
		Draw:   false,
		Over:   s.Terminal(),
		Board: RPSBoard{
			RoundsToWin: s.roundsToWin,
			Round:       s.round,
			Wins:        s.wins,
			Submitted:   [2]bool{s.pending[0] != "", s.pending[1] != ""},
			History:     history,
		},
	}
}
