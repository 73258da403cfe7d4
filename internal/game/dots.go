package game

// Line orientations for the dots-and-boxes variant.
const (
	OrientationHorizontal = "h"
	OrientationVertical   = "v"
)

// DotsBoard is the broadcastable view of a dots-and-boxes game.
type DotsBoard struct {
	Dots       int        `json:"dots"`
	Horizontal [][]bool   `json:"horizontal"` // dots rows x dots-1 cols
	Vertical   [][]bool   `json:"vertical"`   // dots-1 rows x dots cols
	Boxes      [][]Player `json:"boxes"`      // owner per box, NoPlayer if open
	Scores     [2]int     `json:"scores"`
}

// dotsState is the line-claiming game on a dots x dots grid of dots,
// yielding (dots-1)^2 boxes. Completing a box keeps the turn.
type dotsState struct {
	dots       int
	horizontal [][]bool
	vertical   [][]bool
	boxes      [][]Player
	scores     [2]int
	turn       Player
	winner     Player
	draw       bool
	remaining  int // undrawn line segments
}

// NewDots creates a dots-and-boxes game on a dots x dots dot grid.
func NewDots(dots int) State {
	h := make([][]bool, dots)
	for i := range h {
		h[i] = make([]bool, dots-1)
	}
	v := make([][]bool, dots-1)
	for i := range v {
		v[i] = make([]bool, dots)
	}
	boxes := make([][]Player, dots-1)
	for i := range boxes {
		boxes[i] = make([]Player, dots-1)
	}
	return &dotsState{
		dots:       dots,
		horizontal: h,
		vertical:   v,
		boxes:      boxes,
		turn:       PlayerOne,
		remaining:  2 * dots * (dots - 1),
	}
}

func (s *dotsState) Kind() Kind     { return KindDots }
func (s *dotsState) Turn() Player   { return s.turn }
func (s *dotsState) Terminal() bool { return s.winner != NoPlayer || s.draw }

func (s *dotsState) Result() (Player, bool) {
	return s.winner, s.draw
}

func (s *dotsState) Apply(p Player, mv Move) error {
	if s.Terminal() {
		return illegal("game is over")
	}
	if p != s.turn {
		return illegal("not your turn")
	}

	switch mv.Orientation {
	case OrientationHorizontal:
		if mv.Row < 0 || mv.Row >= s.dots || mv.Col < 0 || mv.Col >= s.dots-1 {
			return illegal("horizontal segment (%d,%d) out of bounds", mv.Row, mv.Col)
		}
		if s.horizontal[mv.Row][mv.Col] {
			return illegal("segment already drawn")
		}
		s.horizontal[mv.Row][mv.Col] = true
	case OrientationVertical:
		if mv.Row < 0 || mv.Row >= s.dots-1 || mv.Col < 0 || mv.Col >= s.dots {
			return illegal("vertical segment (%d,%d) out of bounds", mv.Row, mv.Col)
		}
		if s.vertical[mv.Row][mv.Col] {
			return illegal("segment already drawn")
		}
		s.vertical[mv.Row][mv.Col] = true
	default:
		return illegal("unknown orientation %q", mv.Orientation)
	}
	s.remaining--

	// An interior line can close the boxes on both of its sides; every
	// closed box is credited to the mover.
	completed := 0
	for _, box := range adjacentBoxes(mv) {
		if s.boxClosed(box[0], box[1]) && s.boxes[box[0]][box[1]] == NoPlayer {
			s.boxes[box[0]][box[1]] = p
			s.scores[p-1]++
			completed++
		}
	}

	if s.remaining == 0 {
		s.turn = NoPlayer
		switch {
		case s.scores[0] > s.scores[1]:
			s.winner = PlayerOne
		case s.scores[1] > s.scores[0]:
			s.winner = PlayerTwo
		default:
			s.draw = true
		}
		return nil
	}

	// Extra-turn rule: completing at least one box keeps the turn.
	if completed == 0 {
		s.turn = p.other()
	}
	return nil
}

// adjacentBoxes lists the (row,col) box coordinates a drawn segment can
// close, including out-of-range candidates which boxClosed filters.
func adjacentBoxes(mv Move) [][2]int {
	if mv.Orientation == OrientationHorizontal {
		return [][2]int{{mv.Row - 1, mv.Col}, {mv.Row, mv.Col}}
	}
	return [][2]int{{mv.Row, mv.Col - 1}, {mv.Row, mv.Col}}
}

// boxClosed reports whether all four segments bounding box (row,col) are
// drawn.
func (s *dotsState) boxClosed(row, col int) bool {
	if row < 0 || row >= s.dots-1 || col < 0 || col >= s.dots-1 {
		return false
	}
	return s.horizontal[row][col] && s.horizontal[row+1][col] &&
		s.vertical[row][col] && s.vertical[row][col+1]
}

func (s *dotsState) Snapshot() Snapshot {
	h := make([][]bool, len(s.horizontal))
	for i, row := range s.horizontal {
		h[i] = append([]bool(nil), row...)
	}
	v := make([][]bool, len(s.vertical))
	for i, row := range s.vertical {
		v[i] = append([]bool(nil), row...)
	}
	return Snapshot{
		Kind:   KindDots,
		Turn:   s.turn,
		Winner: s.winner,
		Draw:   s.draw,
		Over:   s.Terminal(),
		Board: DotsBoard{
			Dots:       s.dots,
			Horizontal: h,
			Vertical:   v,
			Boxes:      copyBoard(s.boxes),
			Scores:     s.scores,
		},
	}
}
