package room

import (
	"context"
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	"ctarcade/Game-Arcade/internal/game"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("room")

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 6

// Manager indexes live rooms by id and, for private rooms, by join code.
type Manager struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	byCode map[string]*Room
}

func NewManager() *Manager {
	return &Manager{
		rooms:  make(map[string]*Room),
		byCode: make(map[string]*Room),
	}
}

// CreateRoom materializes a room of the given kind. Private rooms get a
// join code; the creator is not joined automatically.
func (m *Manager) CreateRoom(ctx context.Context, kind Kind, gameKind game.Kind, maxPlayers int) (*Room, error) {
	_, span := tracer.Start(ctx, "room.CreateRoom", trace.WithAttributes(
		attribute.String("room.kind", string(kind)),
		attribute.String("game.kind", string(gameKind)),
	))
	defer span.End()

	if maxPlayers < 2 {
		maxPlayers = 2
	}
	r := &Room{
		ID:         uuid.New().String(),
		Kind:       kind,
		GameKind:   gameKind,
		MaxPlayers: maxPlayers,
		status:     StatusWaiting,
		createdAt:  time.Now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if kind == KindPrivate {
		code, err := m.uniqueCodeLocked()
		if err != nil {
			return nil, err
		}
		r.JoinCode = code
		m.byCode[code] = r
	}
	m.rooms[r.ID] = r

	span.SetAttributes(attribute.String("room.id", r.ID))
	slog.InfoContext(ctx, "room created", "room.id", r.ID, "room.kind", kind, "game.kind", gameKind)
	return r, nil
}

// CreateTournamentRoom materializes a room bound to a bracket match. The
// hub seats both players itself, so no join code is issued.
func (m *Manager) CreateTournamentRoom(ctx context.Context, gameKind game.Kind, tournamentID string, matchNumber int) (*Room, error) {
	r, err := m.CreateRoom(ctx, KindRanked, gameKind, 2)
	if err != nil {
		return nil, err
	}
	r.TournamentID = tournamentID
	r.MatchNumber = matchNumber
	return r, nil
}

// Find returns the room with the given id.
func (m *Manager) Find(id string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// FindByCode resolves a private room's join code.
func (m *Manager) FindByCode(code string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// Remove drops a room from the indexes once it is closed or complete.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return
	}
	delete(m.rooms, id)
	if r.JoinCode != "" {
		delete(m.byCode, r.JoinCode)
	}
}

// RoomsFor lists the rooms the user currently belongs to.
func (m *Manager) RoomsFor(userID string) []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Room
	for _, r := range m.rooms {
		if r.Has(userID) {
			out = append(out, r)
		}
	}
	return out
}

// List returns snapshots of every live room, for the query API.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r.Snapshot())
	}
	return out
}

func (m *Manager) uniqueCodeLocked() (string, error) {
	for {
		code, err := randomCode()
		if err != nil {
			return "", err
		}
		if _, taken := m.byCode[code]; !taken {
			return code, nil
		}
	}
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
