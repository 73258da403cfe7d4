package game

// connectState is the Connect-N family: pieces drop to the lowest empty row
// of the chosen column, first to line up K wins.
type connectState struct {
	rows      int
	cols      int
	winLength int
	board     [][]Player // board[0] is the top row
	turn      Player
	winner    Player
	draw      bool
	filled    int
}

// NewConnect creates a rows x cols drop game requiring winLength in a row.
func NewConnect(rows, cols, winLength int) State {
	board := make([][]Player, rows)
	for i := range board {
		board[i] = make([]Player, cols)
	}
	return &connectState{
		rows:      rows,
		cols:      cols,
		winLength: winLength,
		board:     board,
		turn:      PlayerOne,
	}
}

func (s *connectState) Kind() Kind     { return KindConnect }
func (s *connectState) Turn() Player   { return s.turn }
func (s *connectState) Terminal() bool { return s.winner != NoPlayer || s.draw }

func (s *connectState) Result() (Player, bool) {
	return s.winner, s.draw
}

func (s *connectState) Apply(p Player, mv Move) error {
	if s.Terminal() {
		return illegal("game is over")
	}
	if p != s.turn {
		return illegal("not your turn")
	}
	if mv.Column < 0 || mv.Column >= s.cols {
		return illegal("column %d out of bounds", mv.Column)
	}

	// Gravity drop: the piece lands on the lowest empty row.
	landed := -1
	for row := s.rows - 1; row >= 0; row-- {
		if s.board[row][mv.Column] == NoPlayer {
			landed = row
			break
		}
	}
	if landed == -1 {
		return illegal("column %d is full", mv.Column)
	}

	s.board[landed][mv.Column] = p
	s.filled++

	switch {
	case lineThrough(s.board, landed, mv.Column, p, s.winLength):
		s.winner = p
		s.turn = NoPlayer
	case s.filled == s.rows*s.cols:
		s.draw = true
		s.turn = NoPlayer
	default:
		s.turn = p.other()
	}
	return nil
}

func (s *connectState) Snapshot() Snapshot {
	return Snapshot{
		Kind:   KindConnect,
		Turn:   s.turn,
		Winner: s.winner,
		Draw:   s.draw,
		Over:   s.Terminal(),
		Board:  copyBoard(s.board),
	}
}
