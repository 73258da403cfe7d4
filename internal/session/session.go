package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"ctarcade/Game-Arcade/internal/game"
	"ctarcade/Game-Arcade/internal/player"
	"ctarcade/Game-Arcade/pkg/proto"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("session")

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

var (
	ErrNotParticipant = errors.New("not a participant of this session")
	ErrNotActive      = errors.New("session is not active")
	ErrSeatTaken      = errors.New("both seats are taken")
)

// Outcome is reported once, when a session leaves the active state.
type Outcome struct {
	SessionID    string
	RoomID       string
	GameKind     game.Kind
	PlayerIDs    [2]string
	WinnerID     string
	Draw         bool
	Abandoned    bool
	AbandonedBy  string
	TournamentID string
	MatchNumber  int
}

// Snapshot is the queryable view of a session.
type Snapshot struct {
	SessionID string        `json:"session_id"`
	RoomID    string        `json:"room_id,omitempty"`
	Status    Status        `json:"status"`
	PlayerIDs [2]string     `json:"player_ids"`
	Game      game.Snapshot `json:"game"`
}

// Session owns the authoritative state of one in-progress game. The state is
// mutated only under the session mutex, so at most one move is in flight per
// session; everything broadcast is an immutable snapshot.
type Session struct {
	ID           string
	RoomID       string
	TournamentID string
	MatchNumber  int

	mu         sync.Mutex
	state      game.State
	status     Status
	players    [2]*player.Player
	spectators map[string]*player.Player
	onComplete func(Outcome)
	onSnapshot func(Snapshot)
	reported   bool
}

// New creates a session with only the first seat bound; it stays waiting
// until a second player joins.
func New(id, roomID string, state game.State, p1 *player.Player, onComplete func(Outcome)) *Session {
	return &Session{
		ID:         id,
		RoomID:     roomID,
		state:      state,
		status:     StatusWaiting,
		players:    [2]*player.Player{p1, nil},
		spectators: make(map[string]*player.Player),
		onComplete: onComplete,
	}
}

// NewWithPlayers creates an immediately active session, as produced by a
// filled room or a matchmaking pair.
func NewWithPlayers(id, roomID string, state game.State, p1, p2 *player.Player, onComplete func(Outcome)) *Session {
	s := New(id, roomID, state, p1, onComplete)
	s.players[1] = p2
	s.status = StatusActive
	return s
}

// SetSnapshotHook registers a callback invoked with every broadcast
// snapshot. Used to mirror state for the synchronous query path.
func (s *Session) SetSnapshotHook(hook func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSnapshot = hook
}

// Join binds p to the open seat if the session is waiting, otherwise
// attaches them as a spectator. It returns the seat number (0 for
// spectators).
func (s *Session) Join(ctx context.Context, p *player.Player) (int, error) {
	_, span := tracer.Start(ctx, "session.Join", trace.WithAttributes(
		attribute.String("session.id", s.ID),
		attribute.String("player.id", p.ID),
	))
	defer span.End()

	s.mu.Lock()
	if s.status == StatusWaiting && s.players[1] == nil && p.ID != s.players[0].ID {
		s.players[1] = p
		s.status = StatusActive
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.publish(ctx, snap)
		return 2, nil
	}
	if s.status == StatusCompleted || s.status == StatusAbandoned {
		s.mu.Unlock()
		return 0, ErrNotActive
	}
	s.spectators[p.ID] = p
	snap := s.snapshotLocked()
	s.mu.Unlock()

	// Late joiners get the current state immediately.
	s.sendSnapshotTo(ctx, p, snap)
	return 0, nil
}

// Spectate attaches p as a spectator regardless of open seats.
func (s *Session) Spectate(ctx context.Context, p *player.Player) error {
	s.mu.Lock()
	if s.status == StatusCompleted || s.status == StatusAbandoned {
		s.mu.Unlock()
		return ErrNotActive
	}
	s.spectators[p.ID] = p
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.sendSnapshotTo(ctx, p, snap)
	return nil
}

// Submit validates and applies one move atomically with respect to other
// moves on this session. Illegal moves are reported to the submitter only
// and provably leave the state unchanged.
func (s *Session) Submit(ctx context.Context, p *player.Player, mv game.Move) error {
	ctx, span := tracer.Start(ctx, "session.Submit", trace.WithAttributes(
		attribute.String("session.id", s.ID),
		attribute.String("player.id", p.ID),
	))
	defer span.End()

	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		span.SetStatus(codes.Error, "session not active")
		return ErrNotActive
	}
	seat := s.seatLocked(p.ID)
	if seat == game.NoPlayer {
		s.mu.Unlock()
		span.SetStatus(codes.Error, "not a participant")
		return ErrNotParticipant
	}

	if err := s.state.Apply(seat, mv); err != nil {
		s.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, "move rejected")
		s.sendError(ctx, p, err)
		return err
	}

	var outcome *Outcome
	if s.state.Terminal() {
		s.status = StatusCompleted
		outcome = s.outcomeLocked()
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(ctx, snap)
	if outcome != nil && s.onComplete != nil {
		s.onComplete(*outcome)
	}
	return nil
}

// Abandon marks the session abandoned because p left or dropped before
// completion. Repeated calls and calls on finished sessions are no-ops.
func (s *Session) Abandon(ctx context.Context, p *player.Player) {
	ctx, span := tracer.Start(ctx, "session.Abandon", trace.WithAttributes(
		attribute.String("session.id", s.ID),
		attribute.String("player.id", p.ID),
	))
	defer span.End()

	s.mu.Lock()
	if s.status == StatusCompleted || s.status == StatusAbandoned {
		s.mu.Unlock()
		return
	}
	if s.seatLocked(p.ID) == game.NoPlayer {
		// Spectators leaving never abandon the game.
		delete(s.spectators, p.ID)
		s.mu.Unlock()
		return
	}
	s.status = StatusAbandoned
	outcome := s.outcomeLocked()
	outcome.Abandoned = true
	outcome.AbandonedBy = p.ID
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(ctx, snap)
	if s.onComplete != nil {
		s.onComplete(*outcome)
	}
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// IsPlayer reports whether id holds one of the two seats.
func (s *Session) IsPlayer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seatLocked(id) != game.NoPlayer
}

func (s *Session) seatLocked(id string) game.Player {
	if s.players[0] != nil && s.players[0].ID == id {
		return game.PlayerOne
	}
	if s.players[1] != nil && s.players[1].ID == id {
		return game.PlayerTwo
	}
	return game.NoPlayer
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: s.ID,
		RoomID:    s.RoomID,
		Status:    s.status,
		Game:      s.state.Snapshot(),
	}
	if s.players[0] != nil {
		snap.PlayerIDs[0] = s.players[0].ID
	}
	if s.players[1] != nil {
		snap.PlayerIDs[1] = s.players[1].ID
	}
	return snap
}

func (s *Session) outcomeLocked() *Outcome {
	winner, draw := s.state.Result()
	out := &Outcome{
		SessionID:    s.ID,
		RoomID:       s.RoomID,
		GameKind:     s.state.Kind(),
		Draw:         draw,
		TournamentID: s.TournamentID,
		MatchNumber:  s.MatchNumber,
	}
	if s.players[0] != nil {
		out.PlayerIDs[0] = s.players[0].ID
	}
	if s.players[1] != nil {
		out.PlayerIDs[1] = s.players[1].ID
	}
	if winner != game.NoPlayer {
		out.WinnerID = out.PlayerIDs[winner-1]
	}
	return out
}

// publish fans the snapshot out to both players and all spectators, then
// runs the snapshot hook.
func (s *Session) publish(ctx context.Context, snap Snapshot) {
	msgType := proto.TypeGameState
	if snap.Status == StatusCompleted || snap.Status == StatusAbandoned {
		msgType = proto.TypeGameOver
	}
	env, err := proto.NewEnvelope(msgType, snap)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling session snapshot", "session.id", s.ID, "error", err)
		return
	}

	s.mu.Lock()
	targets := make([]*player.Player, 0, 2+len(s.spectators))
	for _, p := range s.players {
		if p != nil {
			targets = append(targets, p)
		}
	}
	for _, p := range s.spectators {
		targets = append(targets, p)
	}
	hook := s.onSnapshot
	s.mu.Unlock()

	for _, p := range targets {
		if err := p.SendEnvelope(env); err != nil {
			slog.WarnContext(ctx, "error writing snapshot to player", "player.id", p.ID, "error", err)
		}
	}
	if hook != nil {
		hook(snap)
	}
}

func (s *Session) sendSnapshotTo(ctx context.Context, p *player.Player, snap Snapshot) {
	env, err := proto.NewEnvelope(proto.TypeGameState, snap)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling session snapshot", "session.id", s.ID, "error", err)
		return
	}
	if err := p.SendEnvelope(env); err != nil {
		slog.WarnContext(ctx, "error writing snapshot to player", "player.id", p.ID, "error", err)
	}
}

func (s *Session) sendError(ctx context.Context, p *player.Player, cause error) {
	env, err := proto.NewEnvelope(proto.TypeError, proto.ErrorPayload{Message: cause.Error()})
	if err != nil {
		return
	}
	if err := p.SendEnvelope(env); err != nil {
		slog.WarnContext(ctx, "error writing rejection to player", "player.id", p.ID, "error", err)
	}
}
