package session

import (
	"context"
	"encoding/json"
	"testing"

	"ctarcade/Game-Arcade/internal/game"
	"ctarcade/Game-Arcade/internal/player"
	"ctarcade/Game-Arcade/internal/player/mocks"
	"ctarcade/Game-Arcade/pkg/proto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// capturingPlayer returns a player whose connection records every envelope
// written to it.
func capturingPlayer(t *testing.T, ctrl *gomock.Controller, id string) (*player.Player, *[]proto.Envelope) {
	t.Helper()
	received := &[]proto.Envelope{}
	conn := mocks.NewMockConnection(ctrl)
	conn.EXPECT().WriteMessage(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ int, data []byte) error {
			var env proto.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				t.Fatalf("invalid envelope written to %s: %v", id, err)
			}
			*received = append(*received, env)
			return nil
		}).AnyTimes()
	return player.NewPlayer(id, id, 1200, conn), received
}

func envelopeTypes(envs []proto.Envelope) []string {
	types := make([]string, len(envs))
	for i, e := range envs {
		types[i] = e.Type
	}
	return types
}

func TestSubmitBroadcastsToAllSubscribers(t *testing.T) {
	ctrl := gomock.NewController(t)
	p1, got1 := capturingPlayer(t, ctrl, "alice")
	p2, got2 := capturingPlayer(t, ctrl, "bob")
	spec, gotSpec := capturingPlayer(t, ctrl, "carol")

	state, err := game.New(game.KindGrid)
	require.NoError(t, err)
	s := NewWithPlayers("s1", "r1", state, p1, p2, nil)
	require.NoError(t, s.Spectate(context.Background(), spec))

	require.NoError(t, s.Submit(context.Background(), p1, game.Move{Row: 0, Col: 0}))

	assert.Contains(t, envelopeTypes(*got1), proto.TypeGameState)
	assert.Contains(t, envelopeTypes(*got2), proto.TypeGameState)
	assert.Contains(t, envelopeTypes(*gotSpec), proto.TypeGameState)
}

func TestIllegalMoveGoesToSubmitterOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	p1, got1 := capturingPlayer(t, ctrl, "alice")
	p2, got2 := capturingPlayer(t, ctrl, "bob")

	state, err := game.New(game.KindGrid)
	require.NoError(t, err)
	s := NewWithPlayers("s1", "r1", state, p1, p2, nil)

	before := s.Snapshot()
	err = s.Submit(context.Background(), p2, game.Move{Row: 0, Col: 0})
	require.True(t, game.IsIllegalMove(err), "off-turn move must be IllegalMove, got %v", err)

	assert.Equal(t, before, s.Snapshot(), "rejected move mutated session state")
	assert.Equal(t, []string{proto.TypeError}, envelopeTypes(*got2))
	assert.Empty(t, *got1, "rejection leaked to the opponent")
}

func TestCompletionReportsOutcome(t *testing.T) {
	ctrl := gomock.NewController(t)
	p1, got1 := capturingPlayer(t, ctrl, "alice")
	p2, _ := capturingPlayer(t, ctrl, "bob")

	var outcome *Outcome
	state, err := game.New(game.KindGrid)
	require.NoError(t, err)
	s := NewWithPlayers("s1", "r1", state, p1, p2, func(o Outcome) { outcome = &o })

	seq := []struct {
		p  *player.Player
		mv game.Move
	}{
		{p1, game.Move{Row: 0, Col: 0}},
		{p2, game.Move{Row: 1, Col: 1}},
		{p1, game.Move{Row: 0, Col: 1}},
		{p2, game.Move{Row: 1, Col: 0}},
		{p1, game.Move{Row: 0, Col: 2}},
	}
	for _, m := range seq {
		require.NoError(t, s.Submit(context.Background(), m.p, m.mv))
	}

	require.NotNil(t, outcome, "completion callback not invoked")
	assert.Equal(t, "alice", outcome.WinnerID)
	assert.False(t, outcome.Draw)
	assert.Equal(t, StatusCompleted, s.Status())
	assert.Contains(t, envelopeTypes(*got1), proto.TypeGameOver)

	err = s.Submit(context.Background(), p2, game.Move{Row: 2, Col: 2})
	assert.ErrorIs(t, err, ErrNotActive, "session accepted a move after completion")
}

func TestAbandonReportsNoWinner(t *testing.T) {
	ctrl := gomock.NewController(t)
	p1, _ := capturingPlayer(t, ctrl, "alice")
	p2, got2 := capturingPlayer(t, ctrl, "bob")

	var outcomes []Outcome
	state, err := game.New(game.KindConnect)
	require.NoError(t, err)
	s := NewWithPlayers("s1", "r1", state, p1, p2, func(o Outcome) { outcomes = append(outcomes, o) })

	s.Abandon(context.Background(), p1)
	s.Abandon(context.Background(), p1) // idempotent

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Abandoned)
	assert.Equal(t, "alice", outcomes[0].AbandonedBy)
	assert.Empty(t, outcomes[0].WinnerID, "abandonment must not silently resolve a winner")
	assert.Contains(t, envelopeTypes(*got2), proto.TypeGameOver)
}

func TestJoinBindsSecondSeat(t *testing.T) {
	ctrl := gomock.NewController(t)
	p1, _ := capturingPlayer(t, ctrl, "alice")
	p2, _ := capturingPlayer(t, ctrl, "bob")
	spec, _ := capturingPlayer(t, ctrl, "carol")

	state, err := game.New(game.KindRPS)
	require.NoError(t, err)
	s := New("s1", "", state, p1, nil)
	assert.Equal(t, StatusWaiting, s.Status())

	seat, err := s.Join(context.Background(), p2)
	require.NoError(t, err)
	assert.Equal(t, 2, seat)
	assert.Equal(t, StatusActive, s.Status())

	seat, err = s.Join(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, 0, seat, "third joiner must become a spectator")

	err = s.Submit(context.Background(), spec, game.Move{Choice: game.ChoiceRock})
	assert.ErrorIs(t, err, ErrNotParticipant)
}
