package room

import (
	"errors"
	"sync"
	"time"

	"ctarcade/Game-Arcade/internal/game"
)

type Kind string

const (
	KindQuickplay Kind = "quickplay"
	KindPrivate   Kind = "private"
	KindRanked    Kind = "ranked"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusReady    Status = "ready"
	StatusActive   Status = "active"
	StatusComplete Status = "complete"
	StatusClosed   Status = "closed"
)

type Role string

const (
	RoleHost      Role = "host"
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

var (
	ErrNotFound           = errors.New("room not found")
	ErrRoomFull           = errors.New("room is full")
	ErrRoomClosed         = errors.New("room is closed")
	ErrNotHost            = errors.New("only the host can start the room")
	ErrPreconditionFailed = errors.New("room is not ready to start")
	ErrAlreadyStarted     = errors.New("room already has a running game")
)

// Participant is one member of a room.
type Participant struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
	Rating   int       `json:"rating"`
	IsReady  bool      `json:"is_ready"`
	JoinedAt time.Time `json:"joined_at"`
}

// Snapshot is the broadcastable/queryable view of a room.
type Snapshot struct {
	ID           string        `json:"id"`
	Kind         Kind          `json:"kind"`
	Status       Status        `json:"status"`
	GameKind     game.Kind     `json:"game_kind"`
	JoinCode     string        `json:"join_code,omitempty"`
	HostID       string        `json:"host_id"`
	MaxPlayers   int           `json:"max_players"`
	Participants []Participant `json:"participants"`
	SessionID    string        `json:"game_session_id,omitempty"`
	TournamentID string        `json:"tournament_id,omitempty"`
	MatchNumber  int           `json:"match_number,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Room is a pre-game lobby gating a fixed player count behind a ready
// check. The participant list is mutated only by the room's own methods,
// serialized by the room mutex.
type Room struct {
	ID           string
	Kind         Kind
	GameKind     game.Kind
	JoinCode     string
	MaxPlayers   int
	TournamentID string
	MatchNumber  int

	mu           sync.Mutex
	status       Status
	hostID       string
	participants []*Participant
	sessionID    string
	createdAt    time.Time
}

// Join adds a participant. The first player to join a hostless room becomes
// host. Joining twice is a no-op returning the current state.
func (r *Room) Join(p Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.status {
	case StatusClosed, StatusComplete:
		return ErrRoomClosed
	case StatusActive:
		if p.Role != RoleSpectator {
			return ErrAlreadyStarted
		}
	}

	for _, existing := range r.participants {
		if existing.UserID == p.UserID {
			return nil
		}
	}
	if p.Role != RoleSpectator && r.playerCountLocked() >= r.MaxPlayers {
		return ErrRoomFull
	}

	p.JoinedAt = time.Now()
	if r.hostID == "" && p.Role != RoleSpectator {
		p.Role = RoleHost
		r.hostID = p.UserID
	}
	r.participants = append(r.participants, &p)
	r.recomputeStatusLocked()
	return nil
}

// Leave removes a participant. If the host leaves, the earliest-joined
// remaining player inherits the host role; an emptied room closes. Repeated
// leaves are no-ops.
func (r *Room) Leave(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.participants {
		if p.UserID == userID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	leaving := r.participants[idx]
	r.participants = append(r.participants[:idx], r.participants[idx+1:]...)

	if leaving.UserID == r.hostID {
		r.hostID = ""
		var earliest *Participant
		for _, p := range r.participants {
			if p.Role == RoleSpectator {
				continue
			}
			if earliest == nil || p.JoinedAt.Before(earliest.JoinedAt) {
				earliest = p
			}
		}
		if earliest != nil {
			earliest.Role = RoleHost
			r.hostID = earliest.UserID
		}
	}

	if len(r.participants) == 0 {
		r.status = StatusClosed
		return
	}
	if r.status == StatusWaiting || r.status == StatusReady {
		r.recomputeStatusLocked()
	}
}

// SetReady toggles a participant's ready flag. The room transitions to
// ready once every player seat is filled and ready.
func (r *Room) SetReady(userID string, ready bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != StatusWaiting && r.status != StatusReady {
		return ErrPreconditionFailed
	}
	for _, p := range r.participants {
		if p.UserID == userID {
			p.IsReady = ready
			r.recomputeStatusLocked()
			return nil
		}
	}
	return ErrNotFound
}

// Start validates the host's start request and transitions the room to
// active. The caller creates the session and records it with AttachSession.
func (r *Room) Start(byUserID string) ([2]Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == StatusActive {
		return [2]Participant{}, ErrAlreadyStarted
	}
	if byUserID != r.hostID {
		return [2]Participant{}, ErrNotHost
	}
	if r.status != StatusReady {
		return [2]Participant{}, ErrPreconditionFailed
	}

	var seats [2]Participant
	i := 0
	for _, p := range r.participants {
		if p.Role == RoleSpectator {
			continue
		}
		if i < 2 {
			seats[i] = *p
		}
		i++
	}
	r.status = StatusActive
	return seats, nil
}

// AttachSession records the live session created for this room.
func (r *Room) AttachSession(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionID = sessionID
}

// Complete marks the room finished once its session reported an outcome.
func (r *Room) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == StatusActive {
		r.status = StatusComplete
	}
}

// Close shuts the room regardless of state. Used when the host cancels.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = StatusClosed
}

func (r *Room) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

func (r *Room) SessionID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessionID
}

// Has reports whether userID is a member of the room.
func (r *Room) Has(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// ParticipantIDs lists the non-spectator member ids.
func (r *Room) ParticipantIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, p := range r.participants {
		if p.Role != RoleSpectator {
			ids = append(ids, p.UserID)
		}
	}
	return ids
}

// Snapshot returns a consistent copy of the room state.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	participants := make([]Participant, len(r.participants))
	for i, p := range r.participants {
		participants[i] = *p
	}
	return Snapshot{
		ID:           r.ID,
		Kind:         r.Kind,
		Status:       r.status,
		GameKind:     r.GameKind,
		JoinCode:     r.JoinCode,
		HostID:       r.hostID,
		MaxPlayers:   r.MaxPlayers,
		Participants: participants,
		SessionID:    r.sessionID,
		TournamentID: r.TournamentID,
		MatchNumber:  r.MatchNumber,
		CreatedAt:    r.createdAt,
	}
}

func (r *Room) playerCountLocked() int {
	count := 0
	for _, p := range r.participants {
		if p.Role != RoleSpectator {
			count++
		}
	}
	return count
}

// recomputeStatusLocked flips between waiting and ready based on the
// fill-and-ready gate.
func (r *Room) recomputeStatusLocked() {
	if r.status != StatusWaiting && r.status != StatusReady {
		return
	}
	if r.playerCountLocked() != r.MaxPlayers {
		r.status = StatusWaiting
		return
	}
	for _, p := range r.participants {
		if p.Role != RoleSpectator && !p.IsReady {
			r.status = StatusWaiting
			return
		}
	}
	r.status = StatusReady
}
