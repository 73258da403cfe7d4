package hub

import (
	"context"
	"fmt"
	"log/slog"

	"ctarcade/Game-Arcade/internal/events"
	"ctarcade/Game-Arcade/internal/game"
	"ctarcade/Game-Arcade/internal/room"
	"ctarcade/Game-Arcade/internal/session"
	"ctarcade/Game-Arcade/internal/tournament"
	"ctarcade/Game-Arcade/pkg/proto"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// startSession materializes the game for a started room and seats both
// players. The room must already be active.
func (h *Hub) startSession(ctx context.Context, r *room.Room, seats [2]room.Participant) error {
	ctx, span := tracer.Start(ctx, "hub.startSession", trace.WithAttributes(
		attribute.String("room.id", r.ID),
		attribute.String("game.kind", string(r.GameKind)),
	))
	defer span.End()

	state, err := game.New(r.GameKind)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "unknown game kind")
		return err
	}

	p1, ok1 := h.findPlayer(seats[0].UserID)
	p2, ok2 := h.findPlayer(seats[1].UserID)
	if !ok1 || !ok2 {
		return fmt.Errorf("both players must be connected to start")
	}

	s := session.NewWithPlayers(uuid.New().String(), r.ID, state, p1, p2, h.onSessionComplete)
	s.TournamentID = r.TournamentID
	s.MatchNumber = r.MatchNumber
	s.SetSnapshotHook(func(snap session.Snapshot) {
		// Mirror asynchronously; the broadcast path must not block on redis.
		go func() {
			if err := h.sessionRepo.SaveSnapshot(context.Background(), snap); err != nil {
				slog.Warn("error mirroring session snapshot", "session.id", snap.SessionID, "error", err)
			}
		}()
	})

	h.mu.Lock()
	h.sessions[s.ID] = s
	h.mu.Unlock()
	r.AttachSession(s.ID)

	span.SetAttributes(attribute.String("session.id", s.ID))
	slog.InfoContext(ctx, "session started",
		"session.id", s.ID, "room.id", r.ID, "game.kind", r.GameKind,
		"player1.id", p1.ID, "player2.id", p2.ID,
	)

	h.sendTo(ctx, p1, proto.TypeGameJoined, proto.GameJoinedPayload{SessionID: s.ID, RoomID: r.ID, Seat: 1})
	h.sendTo(ctx, p2, proto.TypeGameJoined, proto.GameJoinedPayload{SessionID: s.ID, RoomID: r.ID, Seat: 2})

	snap := s.Snapshot()
	h.sendTo(ctx, p1, proto.TypeGameState, snap)
	h.sendTo(ctx, p2, proto.TypeGameState, snap)
	h.broadcastRoomState(ctx, r)
	return nil
}

// onSessionComplete is the session completion callback. It finalizes the
// room, persists the outcome and, for tournament matches, advances the
// bracket.
func (h *Hub) onSessionComplete(o session.Outcome) {
	ctx, span := tracer.Start(context.Background(), "hub.onSessionComplete", trace.WithAttributes(
		attribute.String("session.id", o.SessionID),
		attribute.String("game.kind", string(o.GameKind)),
		attribute.Bool("abandoned", o.Abandoned),
	))
	defer span.End()

	h.mu.Lock()
	delete(h.sessions, o.SessionID)
	h.mu.Unlock()

	if r, err := h.rooms.Find(o.RoomID); err == nil {
		r.Complete()
		h.broadcastRoomState(ctx, r)
		h.dropRoom(ctx, r)
	}

	if err := h.results.SaveOutcome(ctx, o); err != nil {
		slog.WarnContext(ctx, "error saving outcome", "session.id", o.SessionID, "error", err)
		span.RecordError(err)
	}
	// Durable history is fire and forget: a failed insert loses one row,
	// never the session flow.
	go func() {
		if err := h.history.Record(context.Background(), o); err != nil {
			slog.Warn("error recording match history", "session.id", o.SessionID, "error", err)
		}
	}()

	if o.TournamentID != "" {
		h.advanceBracket(ctx, o)
	}
}

// advanceBracket reports a tournament match result and launches any match
// that became ready. An abandoned match is a walkover for the remaining
// player.
func (h *Hub) advanceBracket(ctx context.Context, o session.Outcome) {
	ctx, span := tracer.Start(ctx, "hub.advanceBracket", trace.WithAttributes(
		attribute.String("tournament.id", o.TournamentID),
		attribute.Int("match.number", o.MatchNumber),
	))
	defer span.End()

	t, err := h.tournaments.Find(o.TournamentID)
	if err != nil {
		slog.WarnContext(ctx, "outcome for unknown tournament", "tournament.id", o.TournamentID)
		return
	}

	winnerID := o.WinnerID
	if winnerID == "" && o.Abandoned {
		for _, id := range o.PlayerIDs {
			if id != o.AbandonedBy {
				winnerID = id
			}
		}
	}
	if winnerID == "" {
		// A drawn bracket match replays: reopen the fixture.
		slog.InfoContext(ctx, "bracket match drawn, replaying", "tournament.id", t.ID, "match.number", o.MatchNumber)
		h.replayMatch(ctx, t.ID, o.MatchNumber)
		return
	}

	if err := t.ReportResult(ctx, o.MatchNumber, winnerID); err != nil {
		slog.ErrorContext(ctx, "error reporting bracket result", "tournament.id", t.ID, "match.number", o.MatchNumber, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "bracket advancement failed")
		return
	}

	if err := h.results.PublishEvent(ctx, events.TypeBracketAdvanced, events.BracketAdvancedPayload{
		TournamentID: t.ID,
		MatchNumber:  o.MatchNumber,
		WinnerID:     winnerID,
		Complete:     t.Status() == tournament.StatusComplete,
	}); err != nil {
		slog.WarnContext(ctx, "error publishing bracket_advanced", "tournament.id", t.ID, "error", err)
	}

	h.broadcastTournamentState(ctx, t.ID)
	h.launchReadyMatches(ctx, t.ID)
}

// replayMatch re-creates the room for a fixture whose game produced no
// winner.
func (h *Hub) replayMatch(ctx context.Context, tournamentID string, matchNumber int) {
	t, err := h.tournaments.Find(tournamentID)
	if err != nil {
		return
	}
	m, err := t.Match(matchNumber)
	if err != nil {
		return
	}
	h.startTournamentMatch(ctx, t.ID, t.GameKind, m.Number, m.Player1ID, m.Player2ID)
}
