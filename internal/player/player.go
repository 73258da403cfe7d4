package player

import (
	"encoding/json"
	"sync"
	"time"

	"ctarcade/Game-Arcade/pkg/proto"

	"github.com/gorilla/websocket"
)

// Connection abstracts the websocket connection so sessions and tests can
// substitute their own transports.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (int, []byte, error)
	Close() error
}

type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// Player is one authenticated participant with a live (or recently dropped)
// connection. Identity fields come from the credential at connect time and
// are immutable; connection state is owned by the hub.
type Player struct {
	ID       string
	Username string
	Rating   int

	Conn     Connection
	Status   Status
	LastSeen time.Time

	writeMu sync.Mutex
}

// NewPlayer creates a connected player.
func NewPlayer(id, username string, rating int, conn Connection) *Player {
	return &Player{
		ID:       id,
		Username: username,
		Rating:   rating,
		Conn:     conn,
		Status:   StatusConnected,
		LastSeen: time.Now(),
	}
}

// MarkDisconnected flags the player as dropped and stamps the time, for
// reconnect bookkeeping.
func (p *Player) MarkDisconnected() {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.Status = StatusDisconnected
	p.LastSeen = time.Now()
}

// SendEnvelope marshals and writes one envelope. Writes are serialized per
// player because gorilla connections allow only one concurrent writer.
func (p *Player) SendEnvelope(env *proto.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if p.Conn == nil {
		return nil
	}
	return p.Conn.WriteMessage(websocket.TextMessage, data)
}
