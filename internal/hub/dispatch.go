package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"ctarcade/Game-Arcade/internal/game"
	"ctarcade/Game-Arcade/internal/player"
	"ctarcade/Game-Arcade/internal/room"
	"ctarcade/Game-Arcade/internal/validator"
	"ctarcade/Game-Arcade/pkg/proto"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// readPump reads envelopes off the player's connection until it drops. A
// malformed envelope is answered with an error message and skipped; it never
// kills the channel.
func (h *Hub) readPump(ctx context.Context, p *player.Player) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, data, err := p.Conn.ReadMessage()
		if err != nil {
			return
		}

		var env proto.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.sendError(ctx, p, "malformed message")
			continue
		}
		h.dispatch(ctx, p, &env)
	}
}

func (h *Hub) dispatch(ctx context.Context, p *player.Player, env *proto.Envelope) {
	ctx, span := tracer.Start(ctx, "hub.dispatch", trace.WithAttributes(
		attribute.String("player.id", p.ID),
		attribute.String("message.type", env.Type),
	))
	defer span.End()

	var err error
	switch env.Type {
	case proto.TypeCreateRoom:
		err = h.handleCreateRoom(ctx, p, env.Payload)
	case proto.TypeJoinRoom:
		err = h.handleJoinRoom(ctx, p, env.Payload)
	case proto.TypeLeaveRoom:
		err = h.handleLeaveRoom(ctx, p, env.Payload)
	case proto.TypeReady:
		err = h.handleReady(ctx, p, env.Payload)
	case proto.TypeStartRoom:
		err = h.handleStartRoom(ctx, p, env.Payload)
	case proto.TypeEnqueue:
		err = h.handleEnqueue(ctx, p, env.Payload)
	case proto.TypeLeaveQueue:
		err = h.handleLeaveQueue(ctx, p, env.Payload)
	case proto.TypeJoinGame:
		err = h.handleJoinGame(ctx, p, env.Payload)
	case proto.TypeGameMove:
		err = h.handleGameMove(ctx, p, env.Payload)
	default:
		h.sendError(ctx, p, "unknown message type: "+env.Type)
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "message handling failed")
		h.sendError(ctx, p, err.Error())
	}
}

// decode unmarshals and validates an inbound payload.
func decode[T any](raw json.RawMessage, out *T) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.New("malformed payload")
	}
	return validator.GetValidator().Struct(out)
}

func (h *Hub) handleCreateRoom(ctx context.Context, p *player.Player, raw json.RawMessage) error {
	var payload proto.CreateRoomPayload
	if err := decode(raw, &payload); err != nil {
		return err
	}
	if _, err := game.New(payload.GameKind); err != nil {
		return err
	}

	r, err := h.rooms.CreateRoom(ctx, room.Kind(payload.RoomKind), payload.GameKind, payload.MaxPlayers)
	if err != nil {
		return err
	}
	if r.JoinCode != "" {
		if err := h.joinCodes.Bind(ctx, r.JoinCode, r.ID); err != nil {
			slog.WarnContext(ctx, "error mirroring join code", "room.id", r.ID, "error", err)
		}
	}
	if err := r.Join(h.participantFor(p, room.RolePlayer)); err != nil {
		return err
	}
	h.broadcastRoomState(ctx, r)
	return nil
}

func (h *Hub) handleJoinRoom(ctx context.Context, p *player.Player, raw json.RawMessage) error {
	var payload proto.JoinRoomPayload
	if err := decode(raw, &payload); err != nil {
		return err
	}

	var r *room.Room
	var err error
	switch {
	case payload.RoomID != "":
		r, err = h.rooms.Find(payload.RoomID)
	case payload.Code != "":
		r, err = h.rooms.FindByCode(payload.Code)
		if errors.Is(err, room.ErrNotFound) {
			// The code may belong to a room created before a restart.
			if roomID, resolveErr := h.joinCodes.Resolve(ctx, payload.Code); resolveErr == nil {
				r, err = h.rooms.Find(roomID)
			}
		}
	default:
		return errors.New("join_room needs a room_id or a code")
	}
	if err != nil {
		return err
	}

	role := room.RolePlayer
	if payload.AsSpectator {
		role = room.RoleSpectator
	}
	if err := r.Join(h.participantFor(p, role)); err != nil {
		return err
	}
	h.broadcastRoomState(ctx, r)
	return nil
}

func (h *Hub) handleLeaveRoom(ctx context.Context, p *player.Player, raw json.RawMessage) error {
	var payload proto.LeaveRoomPayload
	if err := decode(raw, &payload); err != nil {
		return err
	}
	r, err := h.rooms.Find(payload.RoomID)
	if err != nil {
		return err
	}
	r.Leave(p.ID)
	if r.Status() == room.StatusClosed {
		h.dropRoom(ctx, r)
		return nil
	}
	h.broadcastRoomState(ctx, r)
	return nil
}

func (h *Hub) handleReady(ctx context.Context, p *player.Player, raw json.RawMessage) error {
	var payload proto.ReadyPayload
	if err := decode(raw, &payload); err != nil {
		return err
	}
	r, err := h.rooms.Find(payload.RoomID)
	if err != nil {
		return err
	}
	if err := r.SetReady(p.ID, payload.Ready); err != nil {
		return err
	}
	h.broadcastRoomState(ctx, r)
	return nil
}

func (h *Hub) handleStartRoom(ctx context.Context, p *player.Player, raw json.RawMessage) error {
	var payload proto.StartRoomPayload
	if err := decode(raw, &payload); err != nil {
		return err
	}
	r, err := h.rooms.Find(payload.RoomID)
	if err != nil {
		return err
	}
	seats, err := r.Start(p.ID)
	if err != nil {
		return err
	}
	return h.startSession(ctx, r, seats)
}

func (h *Hub) handleEnqueue(ctx context.Context, p *player.Player, raw json.RawMessage) error {
	var payload proto.EnqueuePayload
	if err := decode(raw, &payload); err != nil {
		return err
	}
	if _, err := game.New(payload.GameKind); err != nil {
		return err
	}
	h.queue.Enqueue(ctx, p.ID, payload.GameKind, p.Rating)
	h.queue.MatchNow(ctx)
	return nil
}

func (h *Hub) handleLeaveQueue(ctx context.Context, p *player.Player, raw json.RawMessage) error {
	var payload proto.LeaveQueuePayload
	if err := decode(raw, &payload); err != nil {
		return err
	}
	h.queue.Leave(ctx, p.ID, payload.GameKind)
	return nil
}

func (h *Hub) handleJoinGame(ctx context.Context, p *player.Player, raw json.RawMessage) error {
	var payload proto.JoinGamePayload
	if err := decode(raw, &payload); err != nil {
		return err
	}
	s, ok := h.findSession(payload.SessionID)
	if !ok {
		return errors.New("session not found")
	}

	if payload.AsSpectator {
		if err := s.Spectate(ctx, p); err != nil {
			return err
		}
		h.sendTo(ctx, p, proto.TypeGameJoined, proto.GameJoinedPayload{
			SessionID: s.ID, RoomID: s.RoomID, Seat: 0,
		})
		return nil
	}

	seat, err := s.Join(ctx, p)
	if err != nil {
		return err
	}
	h.sendTo(ctx, p, proto.TypeGameJoined, proto.GameJoinedPayload{
		SessionID: s.ID, RoomID: s.RoomID, Seat: seat,
	})
	return nil
}

func (h *Hub) handleGameMove(ctx context.Context, p *player.Player, raw json.RawMessage) error {
	var payload proto.GameMovePayload
	if err := decode(raw, &payload); err != nil {
		return err
	}
	s, ok := h.findSession(payload.SessionID)
	if !ok {
		return errors.New("session not found")
	}
	// Illegal moves are reported to the submitter by the session itself;
	// surfacing them again here would double the error message.
	if err := s.Submit(ctx, p, payload.Move); err != nil && !game.IsIllegalMove(err) {
		return err
	}
	return nil
}

func (h *Hub) participantFor(p *player.Player, role room.Role) room.Participant {
	return room.Participant{
		UserID:   p.ID,
		Username: p.Username,
		Role:     role,
		Rating:   p.Rating,
	}
}

func (h *Hub) sendError(ctx context.Context, p *player.Player, message string) {
	h.sendTo(ctx, p, proto.TypeError, proto.ErrorPayload{Message: message})
}

func (h *Hub) sendTo(ctx context.Context, p *player.Player, msgType string, payload any) {
	env, err := proto.NewEnvelope(msgType, payload)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling envelope", "type", msgType, "error", err)
		return
	}
	if err := p.SendEnvelope(env); err != nil {
		slog.WarnContext(ctx, "error writing message to player", "player.id", p.ID, "type", msgType, "error", err)
	}
}

func (h *Hub) broadcastRoomState(ctx context.Context, r *room.Room) {
	snap := r.Snapshot()
	for _, participant := range snap.Participants {
		if p, ok := h.findPlayer(participant.UserID); ok {
			h.sendTo(ctx, p, proto.TypeRoomState, snap)
		}
	}
}
