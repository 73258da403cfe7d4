package tournament

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"ctarcade/Game-Arcade/internal/game"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("tournament")

var (
	ErrNotFound           = errors.New("tournament not found")
	ErrInvalidBracketSize = errors.New("participant count must be a power of two, at least 2")
	ErrMatchNotFound      = errors.New("match not found")
	ErrMatchNotReady      = errors.New("match is not ready to play")
	ErrNotInMatch         = errors.New("winner is not a player of this match")
)

type Status string

const (
	// StatusPending covers the window between bracket generation and the
	// first fixture's game actually starting.
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
)

type MatchStatus string

const (
	// MatchPending means at least one slot still awaits an earlier winner.
	MatchPending    MatchStatus = "pending"
	MatchReady      MatchStatus = "ready"
	MatchInProgress MatchStatus = "in_progress"
	MatchComplete   MatchStatus = "complete"
)

// Participant is one seeded tournament entrant.
type Participant struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Seed     int    `json:"seed"`
}

// Match is one bracket slot. Matches are numbered sequentially across
// rounds; AdvancesTo names the match the winner feeds into, 0 for the final.
type Match struct {
	Number     int         `json:"number"`
	Round      int         `json:"round"`
	Player1ID  string      `json:"player1_id,omitempty"`
	Player2ID  string      `json:"player2_id,omitempty"`
	Status     MatchStatus `json:"status"`
	WinnerID   string      `json:"winner_id,omitempty"`
	SessionID  string      `json:"game_session_id,omitempty"`
	AdvancesTo int         `json:"advances_to,omitempty"`
}

// Snapshot is the queryable view of a bracket.
type Snapshot struct {
	ID           string        `json:"id"`
	GameKind     game.Kind     `json:"game_kind"`
	Status       Status        `json:"status"`
	Rounds       int           `json:"rounds"`
	WinnerID     string        `json:"winner_id,omitempty"`
	Participants []Participant `json:"participants"`
	Matches      []Match       `json:"matches"`
}

// Tournament is a single-elimination bracket. The match list is fixed at
// creation; only slot fills and statuses change afterwards.
type Tournament struct {
	ID       string
	GameKind game.Kind

	mu           sync.Mutex
	status       Status
	rounds       int
	winnerID     string
	participants []Participant
	matches      []*Match // index i holds match number i+1
}

// GenerateBracket seeds a single-elimination bracket. Round one pairs seed
// i against seed n+1-i, so the top seeds meet as late as possible.
func GenerateBracket(gameKind game.Kind, entrants []Participant) (*Tournament, error) {
	n := len(entrants)
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBracketSize, n)
	}

	rounds := 0
	for size := n; size > 1; size /= 2 {
		rounds++
	}

	t := &Tournament{
		ID:           uuid.New().String(),
		GameKind:     gameKind,
		status:       StatusPending,
		rounds:       rounds,
		participants: make([]Participant, n),
	}
	copy(t.participants, entrants)
	for i := range t.participants {
		t.participants[i].Seed = i + 1
	}

	total := n - 1
	number := 1
	matchesInRound := n / 2
	for round := 1; round <= rounds; round++ {
		for i := 0; i < matchesInRound; i++ {
			m := &Match{Number: number, Round: round, Status: MatchPending}
			if number < total {
				m.AdvancesTo = n/2 + (number+1)/2
			}
			t.matches = append(t.matches, m)
			number++
		}
		matchesInRound /= 2
	}

	for i := 0; i < n/2; i++ {
		m := t.matches[i]
		m.Player1ID = t.participants[i].UserID
		m.Player2ID = t.participants[n-1-i].UserID
		m.Status = MatchReady
	}
	return t, nil
}

// ReadyMatches lists matches whose both slots are filled but whose game has
// not started. The hub materializes a room for each.
func (t *Tournament) ReadyMatches() []Match {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Match
	for _, m := range t.matches {
		if m.Status == MatchReady {
			out = append(out, *m)
		}
	}
	return out
}

// MarkInProgress records the session created for a ready match.
func (t *Tournament) MarkInProgress(matchNumber int, sessionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, err := t.matchLocked(matchNumber)
	if err != nil {
		return err
	}
	if m.Status != MatchReady {
		return ErrMatchNotReady
	}
	m.Status = MatchInProgress
	m.SessionID = sessionID
	if t.status == StatusPending {
		t.status = StatusInProgress
	}
	return nil
}

// ReportResult records a match winner and advances them to the next round.
// Reporting the same winner twice is a no-op; the final's result completes
// the tournament.
func (t *Tournament) ReportResult(ctx context.Context, matchNumber int, winnerID string) error {
	_, span := tracer.Start(ctx, "tournament.ReportResult", trace.WithAttributes(
		attribute.String("tournament.id", t.ID),
		attribute.Int("match.number", matchNumber),
		attribute.String("winner.id", winnerID),
	))
	defer span.End()

	t.mu.Lock()
	defer t.mu.Unlock()

	m, err := t.matchLocked(matchNumber)
	if err != nil {
		return err
	}
	if m.Status == MatchComplete {
		if m.WinnerID == winnerID {
			return nil
		}
		return fmt.Errorf("match %d already won by %s", matchNumber, m.WinnerID)
	}
	if winnerID != m.Player1ID && winnerID != m.Player2ID {
		return ErrNotInMatch
	}

	m.Status = MatchComplete
	m.WinnerID = winnerID

	if m.AdvancesTo == 0 {
		t.status = StatusComplete
		t.winnerID = winnerID
		slog.InfoContext(ctx, "tournament complete", "tournament.id", t.ID, "winner.id", winnerID)
		return nil
	}

	next, err := t.matchLocked(m.AdvancesTo)
	if err != nil {
		return err
	}
	// Winners of the earlier match of each feeding pair take the first slot.
	if (m.Number-1)%2 == 0 {
		next.Player1ID = winnerID
	} else {
		next.Player2ID = winnerID
	}
	if next.Player1ID != "" && next.Player2ID != "" {
		next.Status = MatchReady
	}
	return nil
}

func (t *Tournament) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Tournament) WinnerID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.winnerID
}

// Match returns a copy of the numbered match.
func (t *Tournament) Match(matchNumber int) (Match, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, err := t.matchLocked(matchNumber)
	if err != nil {
		return Match{}, err
	}
	return *m, nil
}

// Snapshot returns a consistent copy of the bracket.
func (t *Tournament) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	matches := make([]Match, len(t.matches))
	for i, m := range t.matches {
		matches[i] = *m
	}
	participants := make([]Participant, len(t.participants))
	copy(participants, t.participants)
	return Snapshot{
		ID:           t.ID,
		GameKind:     t.GameKind,
		Status:       t.status,
		Rounds:       t.rounds,
		WinnerID:     t.winnerID,
		Participants: participants,
		Matches:      matches,
	}
}

func (t *Tournament) matchLocked(number int) (*Match, error) {
	if number < 1 || number > len(t.matches) {
		return nil, fmt.Errorf("%w: number %d", ErrMatchNotFound, number)
	}
	return t.matches[number-1], nil
}

// Manager indexes live tournaments.
type Manager struct {
	mu          sync.RWMutex
	tournaments map[string]*Tournament
}

func NewManager() *Manager {
	return &Manager{tournaments: make(map[string]*Tournament)}
}

// Create seeds and registers a bracket for the given entrants.
func (m *Manager) Create(ctx context.Context, gameKind game.Kind, entrants []Participant) (*Tournament, error) {
	_, span := tracer.Start(ctx, "tournament.Create", trace.WithAttributes(
		attribute.String("game.kind", string(gameKind)),
		attribute.Int("entrants", len(entrants)),
	))
	defer span.End()

	t, err := GenerateBracket(gameKind, entrants)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	m.mu.Lock()
	m.tournaments[t.ID] = t
	m.mu.Unlock()

	slog.InfoContext(ctx, "tournament created", "tournament.id", t.ID, "game.kind", gameKind, "entrants", len(entrants))
	return t, nil
}

func (m *Manager) Find(id string) (*Tournament, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tournaments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

// List returns snapshots of every registered tournament.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.tournaments))
	for _, t := range m.tournaments {
		out = append(out, t.Snapshot())
	}
	return out
}
