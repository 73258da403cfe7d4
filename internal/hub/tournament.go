package hub

import (
	"context"
	"fmt"
	"log/slog"

	"ctarcade/Game-Arcade/internal/game"
	"ctarcade/Game-Arcade/internal/room"
	"ctarcade/Game-Arcade/internal/tournament"
	"ctarcade/Game-Arcade/pkg/proto"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CreateTournament seeds a bracket over the given connected participants
// and launches every round-one match.
func (h *Hub) CreateTournament(ctx context.Context, gameKind game.Kind, entrantIDs []string) (tournament.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "hub.CreateTournament", trace.WithAttributes(
		attribute.String("game.kind", string(gameKind)),
		attribute.Int("entrants", len(entrantIDs)),
	))
	defer span.End()

	if _, err := game.New(gameKind); err != nil {
		return tournament.Snapshot{}, err
	}

	entrants := make([]tournament.Participant, 0, len(entrantIDs))
	for _, id := range entrantIDs {
		p, ok := h.findPlayer(id)
		if !ok {
			return tournament.Snapshot{}, fmt.Errorf("entrant %s is not connected", id)
		}
		entrants = append(entrants, tournament.Participant{
			UserID:   p.ID,
			Username: p.Username,
			Rating:   p.Rating,
		})
	}

	t, err := h.tournaments.Create(ctx, gameKind, entrants)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bracket generation failed")
		return tournament.Snapshot{}, err
	}

	h.broadcastTournamentState(ctx, t.ID)
	h.launchReadyMatches(ctx, t.ID)
	return t.Snapshot(), nil
}

// launchReadyMatches creates a room and session for every bracket match
// whose both slots are filled.
func (h *Hub) launchReadyMatches(ctx context.Context, tournamentID string) {
	t, err := h.tournaments.Find(tournamentID)
	if err != nil {
		return
	}
	for _, m := range t.ReadyMatches() {
		h.startTournamentMatch(ctx, t.ID, t.GameKind, m.Number, m.Player1ID, m.Player2ID)
	}
}

// startTournamentMatch materializes one bracket fixture: a two-seat room
// with both players joined and the session already running.
func (h *Hub) startTournamentMatch(ctx context.Context, tournamentID string, gameKind game.Kind, matchNumber int, player1ID, player2ID string) {
	ctx, span := tracer.Start(ctx, "hub.startTournamentMatch", trace.WithAttributes(
		attribute.String("tournament.id", tournamentID),
		attribute.Int("match.number", matchNumber),
	))
	defer span.End()

	p1, ok1 := h.findPlayer(player1ID)
	p2, ok2 := h.findPlayer(player2ID)
	if !ok1 || !ok2 {
		// The fixture stays ready; it launches when both reconnect.
		slog.WarnContext(ctx, "bracket match deferred, player offline",
			"tournament.id", tournamentID, "match.number", matchNumber)
		return
	}

	r, err := h.rooms.CreateTournamentRoom(ctx, gameKind, tournamentID, matchNumber)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "room creation failed")
		return
	}
	seats := [2]room.Participant{h.participantFor(p1, room.RolePlayer), h.participantFor(p2, room.RolePlayer)}
	for _, seat := range seats {
		if err := r.Join(seat); err != nil {
			slog.ErrorContext(ctx, "error seating bracket player", "room.id", r.ID, "error", err)
			return
		}
		if err := r.SetReady(seat.UserID, true); err != nil {
			slog.ErrorContext(ctx, "error readying bracket player", "room.id", r.ID, "error", err)
			return
		}
	}

	if _, err := r.Start(r.HostID()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "room start failed")
		return
	}
	if err := h.startSession(ctx, r, seats); err != nil {
		span.RecordError(err)
		return
	}

	t, err := h.tournaments.Find(tournamentID)
	if err != nil {
		return
	}
	if err := t.MarkInProgress(matchNumber, r.SessionID()); err != nil {
		// Replays hit this: the fixture was already in progress.
		slog.DebugContext(ctx, "fixture not marked in progress", "match.number", matchNumber, "error", err)
	}
}

// broadcastTournamentState pushes the bracket snapshot to every connected
// entrant.
func (h *Hub) broadcastTournamentState(ctx context.Context, tournamentID string) {
	t, err := h.tournaments.Find(tournamentID)
	if err != nil {
		return
	}
	snap := t.Snapshot()
	for _, entrant := range snap.Participants {
		if p, ok := h.findPlayer(entrant.UserID); ok {
			h.sendTo(ctx, p, proto.TypeTournamentState, snap)
		}
	}
}
