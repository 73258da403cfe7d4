package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ctarcade/Game-Arcade/internal/api/models"
	"ctarcade/Game-Arcade/internal/events"
	"ctarcade/Game-Arcade/internal/player"
	"ctarcade/Game-Arcade/internal/queue"
	"ctarcade/Game-Arcade/internal/repository"
	"ctarcade/Game-Arcade/internal/room"
	"ctarcade/Game-Arcade/internal/session"
	"ctarcade/Game-Arcade/internal/tournament"
	"ctarcade/Game-Arcade/pkg/proto"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("hub")

// Config carries the hub's tunables.
type Config struct {
	QueueTTL          time.Duration
	QueueScanInterval time.Duration
}

// Hub owns every live connection and routes inbound envelopes to rooms,
// sessions, the matchmaking queue and tournaments. It is the only writer of
// the players and sessions registries.
type Hub struct {
	cfg Config

	mu       sync.RWMutex
	players  map[string]*player.Player
	sessions map[string]*session.Session

	rooms       *room.Manager
	tournaments *tournament.Manager
	queue       *queue.Queue

	rdb         *redis.Client
	sessionRepo repository.SessionRepository
	queueRepo   repository.QueueRepository
	joinCodes   repository.JoinCodeRepository
	results     repository.ResultRepository
	history     repository.HistoryRepository
}

// New wires the hub against its stores. Run must be called before
// connections are handled.
func New(
	cfg Config,
	rdb *redis.Client,
	sessionRepo repository.SessionRepository,
	queueRepo repository.QueueRepository,
	joinCodes repository.JoinCodeRepository,
	results repository.ResultRepository,
	history repository.HistoryRepository,
) *Hub {
	h := &Hub{
		cfg:         cfg,
		players:     make(map[string]*player.Player),
		sessions:    make(map[string]*session.Session),
		rooms:       room.NewManager(),
		tournaments: tournament.NewManager(),
		rdb:         rdb,
		sessionRepo: sessionRepo,
		queueRepo:   queueRepo,
		joinCodes:   joinCodes,
		results:     results,
		history:     history,
	}
	h.queue = queue.New(cfg.QueueTTL, cfg.QueueScanInterval, queue.WithNotify(h.onQueueEntry))
	return h
}

// Rooms exposes the room registry for the query API.
func (h *Hub) Rooms() *room.Manager { return h.rooms }

// Tournaments exposes the tournament registry for the query API.
func (h *Hub) Tournaments() *tournament.Manager { return h.tournaments }

// Run starts the hub's background loops: queue matching, matched-pair
// consumption and the global event subscriber.
func (h *Hub) Run(ctx context.Context) {
	go h.queue.Run(ctx)
	go h.consumeMatches(ctx)
	go h.runEventSubscriber(ctx)
}

// HandleConnection registers the identity's connection and blocks pumping
// its messages until the connection drops or the context ends.
func (h *Hub) HandleConnection(ctx context.Context, identity *models.Identity, conn player.Connection) {
	ctx, span := tracer.Start(ctx, "hub.HandleConnection", trace.WithAttributes(
		attribute.String("player.id", identity.ID),
		attribute.String("player.username", identity.Username),
	))
	defer span.End()

	p := player.NewPlayer(identity.ID, identity.Username, identity.Rating, conn)

	h.mu.Lock()
	if prior, ok := h.players[p.ID]; ok {
		// A second connection for the same identity replaces the first.
		prior.Conn.Close()
	}
	h.players[p.ID] = p
	h.mu.Unlock()

	slog.InfoContext(ctx, "player connected", "player.id", p.ID, "player.username", p.Username)
	h.sendTo(ctx, p, proto.TypeConnected, proto.ConnectedPayload{
		PlayerID: p.ID,
		Username: p.Username,
		Rating:   p.Rating,
	})

	h.readPump(ctx, p)
	h.handleDisconnect(ctx, p)
}

// findPlayer returns the registered player for id.
func (h *Hub) findPlayer(id string) (*player.Player, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.players[id]
	return p, ok
}

// findSession returns the live session for id.
func (h *Hub) findSession(id string) (*session.Session, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.sessions[id]
	return s, ok
}

// handleDisconnect tears down everything the player was attached to: queue
// entries, lobby seats and any session they play in.
func (h *Hub) handleDisconnect(ctx context.Context, p *player.Player) {
	ctx, span := tracer.Start(ctx, "hub.handleDisconnect", trace.WithAttributes(
		attribute.String("player.id", p.ID),
	))
	defer span.End()

	h.mu.Lock()
	// A reconnect may already have replaced this entry; only drop our own.
	if current, ok := h.players[p.ID]; ok && current == p {
		delete(h.players, p.ID)
	}
	sessions := make([]*session.Session, 0, 1)
	for _, s := range h.sessions {
		if s.IsPlayer(p.ID) {
			sessions = append(sessions, s)
		}
	}
	h.mu.Unlock()

	p.MarkDisconnected()
	h.queue.LeaveAll(ctx, p.ID)

	for _, s := range sessions {
		s.Abandon(ctx, p)
	}

	for _, r := range h.rooms.RoomsFor(p.ID) {
		r.Leave(p.ID)
		if r.Status() == room.StatusClosed {
			h.dropRoom(ctx, r)
			continue
		}
		h.broadcastRoomState(ctx, r)
	}

	if err := h.results.PublishEvent(ctx, events.TypePlayerDisconnected, events.PlayerDisconnectedPayload{PlayerID: p.ID}); err != nil {
		slog.WarnContext(ctx, "error publishing player_disconnected", "player.id", p.ID, "error", err)
	}
	slog.InfoContext(ctx, "player disconnected", "player.id", p.ID)
}

// dropRoom removes a dead room from the indexes and releases its code.
func (h *Hub) dropRoom(ctx context.Context, r *room.Room) {
	h.rooms.Remove(r.ID)
	if r.JoinCode != "" {
		if err := h.joinCodes.Release(ctx, r.JoinCode); err != nil {
			slog.WarnContext(ctx, "error releasing join code", "room.id", r.ID, "error", err)
		}
	}
	if err := h.results.PublishEvent(ctx, events.TypeRoomUpdate, events.RoomUpdatePayload{
		RoomID: r.ID,
		Status: string(r.Status()),
	}); err != nil {
		slog.WarnContext(ctx, "error publishing room_update", "room.id", r.ID, "error", err)
	}
}
