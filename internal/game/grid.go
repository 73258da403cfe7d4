package game

// gridState is the tic-tac-toe family: an NxN board where the first player
// to line up K marks in any direction wins.
type gridState struct {
	size      int
	winLength int
	board     [][]Player
	turn      Player
	winner    Player
	draw      bool
	filled    int
}

// NewGrid creates an NxN grid game requiring winLength in a row.
func NewGrid(size, winLength int) State {
	board := make([][]Player, size)
	for i := range board {
		board[i] = make([]Player, size)
	}
	return &gridState{
		size:      size,
		winLength: winLength,
		board:     board,
		turn:      PlayerOne,
	}
}

func (s *gridState) Kind() Kind     { return KindGrid }
func (s *gridState) Turn() Player   { return s.turn }
func (s *gridState) Terminal() bool { return s.winner != NoPlayer || s.draw }

func (s *gridState) Result() (Player, bool) {
	return s.winner, s.draw
}

func (s *gridState) Apply(p Player, mv Move) error {
	if s.Terminal() {
		return illegal("game is over")
	}
	if p != s.turn {
		return illegal("not your turn")
	}
	if mv.Row < 0 || mv.Row >= s.size || mv.Col < 0 || mv.Col >= s.size {
		return illegal("cell (%d,%d) out of bounds", mv.Row, mv.Col)
	}
	if s.board[mv.Row][mv.Col] != NoPlayer {
		return illegal("cell (%d,%d) already occupied", mv.Row, mv.Col)
	}

	s.board[mv.Row][mv.Col] = p
	s.filled++

	switch {
	case lineThrough(s.board, mv.Row, mv.Col, p, s.winLength):
		s.winner = p
		s.turn = NoPlayer
	case s.filled == s.size*s.size:
		s.draw = true
		s.turn = NoPlayer
	default:
		s.turn = p.other()
	}
	return nil
}

func (s *gridState) Snapshot() Snapshot {
	return Snapshot{
		Kind:   KindGrid,
		Turn:   s.turn,
		Winner: s.winner,
		Draw:   s.draw,
		Over:   s.Terminal(),
		Board:  copyBoard(s.board),
	}
}

// lineThrough reports whether the cell just filled at (row,col) by p sits on
// a contiguous line of at least winLength. Only the four directions through
// the new cell need checking.
func lineThrough(board [][]Player, row, col int, p Player, winLength int) bool {
	dirs := [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}
	for _, d := range dirs {
		count := 1
		count += runLength(board, row, col, d[0], d[1], p)
		count += runLength(board, row, col, -d[0], -d[1], p)
		if count >= winLength {
			return true
		}
	}
	return false
}

// runLength counts consecutive cells owned by p walking from (row,col) in
// direction (dr,dc), excluding the origin cell.
func runLength(board [][]Player, row, col, dr, dc int, p Player) int {
	count := 0
	for {
		row += dr
		col += dc
		if row < 0 || row >= len(board) || col < 0 || col >= len(board[row]) {
			return count
		}
		if board[row][col] != p {
			return count
		}
		count++
	}
}

func copyBoard(board [][]Player) [][]Player {
	out := make([][]Player, len(board))
	for i, row := range board {
		out[i] = make([]Player, len(row))
		copy(out[i], row)
	}
	return out
}
