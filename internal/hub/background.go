package hub

import (
	"context"
	"encoding/json"
	"log/slog"

	"ctarcade/Game-Arcade/internal/events"
	"ctarcade/Game-Arcade/internal/queue"
	"ctarcade/Game-Arcade/internal/room"
	"ctarcade/Game-Arcade/pkg/proto"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// onQueueEntry is the queue's notify hook: every status change is pushed to
// the participant (if locally connected) and mirrored for the polling read
// path, so both views report the same states.
func (h *Hub) onQueueEntry(entry queue.Entry) {
	ctx := context.Background()
	if p, ok := h.findPlayer(entry.ParticipantID); ok {
		h.sendTo(ctx, p, proto.TypeQueueStatus, entry)
	}
	go func() {
		if err := h.queueRepo.SaveEntry(context.Background(), entry); err != nil {
			slog.Warn("error mirroring queue entry", "participant.id", entry.ParticipantID, "error", err)
		}
	}()
}

// consumeMatches turns every matched pair into a room with a running
// session. If one side dropped between pairing and seating, the other is
// re-queued.
func (h *Hub) consumeMatches(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case pair := <-h.queue.Matched():
			h.handleMatchedPair(ctx, pair)
		}
	}
}

func (h *Hub) handleMatchedPair(ctx context.Context, pair queue.Pair) {
	ctx, span := tracer.Start(ctx, "hub.handleMatchedPair", trace.WithAttributes(
		attribute.String("game.kind", string(pair.Entries[0].GameKind)),
		attribute.String("participant1.id", pair.Entries[0].ParticipantID),
		attribute.String("participant2.id", pair.Entries[1].ParticipantID),
	))
	defer span.End()

	kind := pair.Entries[0].GameKind
	p1, ok1 := h.findPlayer(pair.Entries[0].ParticipantID)
	p2, ok2 := h.findPlayer(pair.Entries[1].ParticipantID)
	if !ok1 || !ok2 {
		span.SetStatus(codes.Error, "matched player offline")
		for i, ok := range []bool{ok1, ok2} {
			if ok {
				e := pair.Entries[i]
				slog.InfoContext(ctx, "re-queuing player, opponent offline", "participant.id", e.ParticipantID)
				h.queue.Enqueue(ctx, e.ParticipantID, e.GameKind, e.Rating)
			}
		}
		return
	}

	r, err := h.rooms.CreateRoom(ctx, room.KindRanked, kind, 2)
	if err != nil {
		span.RecordError(err)
		return
	}
	seats := [2]room.Participant{h.participantFor(p1, room.RolePlayer), h.participantFor(p2, room.RolePlayer)}
	for _, seat := range seats {
		if err := r.Join(seat); err != nil {
			slog.ErrorContext(ctx, "error seating matched player", "room.id", r.ID, "error", err)
			return
		}
		if err := r.SetReady(seat.UserID, true); err != nil {
			slog.ErrorContext(ctx, "error readying matched player", "room.id", r.ID, "error", err)
			return
		}
	}

	for _, e := range pair.Entries {
		h.queue.SetMatchedRoom(e.ID, r.ID)
	}

	if err := h.results.PublishEvent(ctx, events.TypeMatchMade, events.MatchMadePayload{
		RoomID:    r.ID,
		GameKind:  string(kind),
		PlayerIDs: []string{p1.ID, p2.ID},
	}); err != nil {
		slog.WarnContext(ctx, "error publishing match_made", "room.id", r.ID, "error", err)
	}

	// Matchmade rooms skip the host gate and start immediately.
	if _, err := r.Start(r.HostID()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "room start failed")
		return
	}
	if err := h.startSession(ctx, r, seats); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session start failed")
	}
}

// runEventSubscriber consumes the global pub/sub channel and forwards the
// events other instances published to locally connected players.
func (h *Hub) runEventSubscriber(ctx context.Context) {
	slog.InfoContext(ctx, "event subscriber started", "channel", events.EventsChannel)
	pubsub := h.rdb.Subscribe(ctx, events.EventsChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			eventCtx, eventSpan := tracer.Start(ctx, "hub.handleEvent", trace.WithAttributes(
				attribute.String("event.channel", events.EventsChannel),
			))

			var event events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.ErrorContext(eventCtx, "could not unmarshal global event", "error", err)
				eventSpan.RecordError(err)
				eventSpan.SetStatus(codes.Error, "could not unmarshal global event")
				eventSpan.End()
				continue
			}
			eventSpan.SetAttributes(attribute.String("event.type", event.Type))

			switch event.Type {
			case events.TypePlayerDisconnected:
				var payload events.PlayerDisconnectedPayload
				if err := json.Unmarshal(event.Payload, &payload); err == nil {
					h.handleRemoteDisconnect(eventCtx, &payload)
				}
			case events.TypeSessionComplete, events.TypeMatchMade, events.TypeBracketAdvanced, events.TypeRoomUpdate:
				// Informational for this instance; state changes were applied
				// by whichever instance owned the session.
			}
			eventSpan.End()
		}
	}
}

// handleRemoteDisconnect notifies local room-mates that a player on another
// instance dropped.
func (h *Hub) handleRemoteDisconnect(ctx context.Context, payload *events.PlayerDisconnectedPayload) {
	for _, r := range h.rooms.RoomsFor(payload.PlayerID) {
		h.broadcastRoomState(ctx, r)
	}
}
