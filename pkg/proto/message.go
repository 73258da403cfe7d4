package proto

import (
	"encoding/json"
	"time"

	"ctarcade/Game-Arcade/internal/game"
)

// Envelope is the uniform wrapper for every message crossing the websocket,
// in either direction. Payload is decoded lazily based on Type.
type Envelope struct {
	Type      string          `json:"type" validate:"required"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// Inbound envelope types.
const (
	TypeCreateRoom = "create_room"
	TypeJoinRoom   = "join_room"
	TypeLeaveRoom  = "leave_room"
	TypeReady      = "ready"
	TypeStartRoom  = "start_room"
	TypeEnqueue    = "enqueue"
	TypeLeaveQueue = "leave_queue"
	TypeJoinGame   = "join_game"
	TypeGameMove   = "game_move"
)

// Outbound envelope types.
const (
	TypeConnected       = "connected"
	TypeRoomState       = "room_state"
	TypeQueueStatus     = "queue_status"
	TypeGameJoined      = "game_joined"
	TypeGameState       = "game_state"
	TypeGameOver        = "game_over"
	TypeTournamentState = "tournament_state"
	TypeError           = "error"
)

// NewEnvelope wraps payload into an Envelope stamped with the current time.
func NewEnvelope(msgType string, payload any) (*Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = data
	}
	return &Envelope{
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// CreateRoomPayload asks the hub to open a new lobby with the sender as host.
type CreateRoomPayload struct {
	RoomKind   string    `json:"room_kind" validate:"required,oneof=quickplay private ranked"`
	GameKind   game.Kind `json:"game_kind" validate:"required,gamekind"`
	MaxPlayers int       `json:"max_players"`
}

// JoinRoomPayload joins a lobby by id or by join code.
type JoinRoomPayload struct {
	RoomID      string `json:"room_id,omitempty"`
	Code        string `json:"code,omitempty"`
	AsSpectator bool   `json:"as_spectator,omitempty"`
}

// LeaveRoomPayload leaves a lobby.
type LeaveRoomPayload struct {
	RoomID string `json:"room_id" validate:"required"`
}

// ReadyPayload toggles the sender's ready flag inside a lobby.
type ReadyPayload struct {
	RoomID string `json:"room_id" validate:"required"`
	Ready  bool   `json:"ready"`
}

// StartRoomPayload is the host's request to start the game.
type StartRoomPayload struct {
	RoomID string `json:"room_id" validate:"required"`
}

// EnqueuePayload enters the matchmaking queue for one game kind.
type EnqueuePayload struct {
	GameKind game.Kind `json:"game_kind" validate:"required,gamekind"`
}

// LeaveQueuePayload cancels the sender's queue entry for one game kind.
type LeaveQueuePayload struct {
	GameKind game.Kind `json:"game_kind" validate:"required,gamekind"`
}

// JoinGamePayload attaches the sender to a running session, either as the
// missing second player or as a spectator.
type JoinGamePayload struct {
	SessionID   string `json:"session_id" validate:"required"`
	AsSpectator bool   `json:"as_spectator,omitempty"`
}

// GameMovePayload submits one move to a session.
type GameMovePayload struct {
	SessionID string    `json:"session_id" validate:"required"`
	Move      game.Move `json:"move"`
}

// ConnectedPayload confirms the channel is established and echoes the
// identity the credential resolved to.
type ConnectedPayload struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}

// GameJoinedPayload tells a participant which seat they hold in a session.
type GameJoinedPayload struct {
	SessionID string `json:"session_id"`
	RoomID    string `json:"room_id,omitempty"`
	Seat      int    `json:"seat"` // 1 or 2; 0 for spectators
}

// ErrorPayload carries a human-readable rejection. It is never fatal to the
// channel.
type ErrorPayload struct {
	Message string `json:"message"`
}
