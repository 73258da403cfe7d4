package events

import "encoding/json"

// Pub/Sub channel constants
const (
	EventsChannel = "channel:events"
)

// Event types published on EventsChannel.
const (
	TypeMatchMade          = "match_made"
	TypeSessionComplete    = "session_complete"
	TypePlayerDisconnected = "player_disconnected"
	TypeBracketAdvanced    = "bracket_advanced"
	TypeRoomUpdate         = "room_update"
)

// Event represents a global message published via Pub/Sub.
type Event struct {
	Type    string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// MatchMadePayload is the payload for the "match_made" event.
type MatchMadePayload struct {
	RoomID    string   `json:"room_id"`
	GameKind  string   `json:"game_kind"`
	PlayerIDs []string `json:"player_ids"`
}

// SessionCompletePayload is the payload for the "session_complete" event.
type SessionCompletePayload struct {
	SessionID string `json:"session_id"`
	RoomID    string `json:"room_id,omitempty"`
	GameKind  string `json:"game_kind"`
	WinnerID  string `json:"winner_id,omitempty"`
	Draw      bool   `json:"draw,omitempty"`
	Abandoned bool   `json:"abandoned,omitempty"`
}

// PlayerDisconnectedPayload is the payload for the "player_disconnected" event.
type PlayerDisconnectedPayload struct {
	RoomID   string `json:"room_id,omitempty"`
	PlayerID string `json:"player_id"`
}

// BracketAdvancedPayload is the payload for the "bracket_advanced" event.
type BracketAdvancedPayload struct {
	TournamentID string `json:"tournament_id"`
	MatchNumber  int    `json:"match_number"`
	WinnerID     string `json:"winner_id"`
	Complete     bool   `json:"complete,omitempty"`
}

// RoomUpdatePayload is the payload for the "room_update" event.
type RoomUpdatePayload struct {
	RoomID string `json:"room_id"`
	Status string `json:"status"`
}
