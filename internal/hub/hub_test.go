package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"ctarcade/Game-Arcade/internal/game"
	"ctarcade/Game-Arcade/internal/player"
	"ctarcade/Game-Arcade/internal/player/mocks"
	"ctarcade/Game-Arcade/internal/queue"
	"ctarcade/Game-Arcade/internal/repository"
	"ctarcade/Game-Arcade/internal/session"
	"ctarcade/Game-Arcade/pkg/proto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// In-memory stand-ins for the redis/sqlite repositories.

type fakeSessionRepo struct {
	mu    sync.Mutex
	snaps map[string]session.Snapshot
}

func (f *fakeSessionRepo) SaveSnapshot(_ context.Context, snap session.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[snap.SessionID] = snap
	return nil
}

func (f *fakeSessionRepo) FindSnapshot(_ context.Context, id string) (session.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snaps[id]
	if !ok {
		return session.Snapshot{}, repository.ErrNotFound
	}
	return snap, nil
}

func (f *fakeSessionRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.snaps, id)
	return nil
}

type fakeQueueRepo struct {
	mu      sync.Mutex
	entries map[string]queue.Entry
}

func (f *fakeQueueRepo) SaveEntry(_ context.Context, entry queue.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.ParticipantID+"|"+string(entry.GameKind)] = entry
	return nil
}

func (f *fakeQueueRepo) FindEntry(_ context.Context, participantID string, kind game.Kind) (queue.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[participantID+"|"+string(kind)]
	if !ok {
		return queue.Entry{}, repository.ErrNotFound
	}
	return entry, nil
}

type fakeJoinCodeRepo struct {
	mu    sync.Mutex
	codes map[string]string
}

func (f *fakeJoinCodeRepo) Bind(_ context.Context, code, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[code] = roomID
	return nil
}

func (f *fakeJoinCodeRepo) Resolve(_ context.Context, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	roomID, ok := f.codes[code]
	if !ok {
		return "", repository.ErrNotFound
	}
	return roomID, nil
}

func (f *fakeJoinCodeRepo) Release(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.codes, code)
	return nil
}

type fakeResultRepo struct {
	mu       sync.Mutex
	outcomes []session.Outcome
	events   []string
}

func (f *fakeResultRepo) SaveOutcome(_ context.Context, outcome session.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
	return nil
}

func (f *fakeResultRepo) PublishEvent(_ context.Context, eventType string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
	return nil
}

func (f *fakeResultRepo) outcomeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.outcomes)
}

type fakeHistoryRepo struct {
	mu       sync.Mutex
	recorded []session.Outcome
}

func (f *fakeHistoryRepo) Record(_ context.Context, outcome session.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, outcome)
	return nil
}

func (f *fakeHistoryRepo) ForPlayer(_ context.Context, _ string, _ int) ([]repository.MatchRecord, error) {
	return nil, nil
}

func (f *fakeHistoryRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recorded)
}

type testHub struct {
	hub     *Hub
	results *fakeResultRepo
	history *fakeHistoryRepo
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()
	results := &fakeResultRepo{}
	history := &fakeHistoryRepo{}
	h := New(
		Config{QueueTTL: time.Minute, QueueScanInterval: time.Hour},
		nil, // redis is only touched by the pub/sub loop, which tests do not start
		&fakeSessionRepo{snaps: make(map[string]session.Snapshot)},
		&fakeQueueRepo{entries: make(map[string]queue.Entry)},
		&fakeJoinCodeRepo{codes: make(map[string]string)},
		results,
		history,
	)
	return &testHub{hub: h, results: results, history: history}
}

// connect registers a capturing player directly with the hub registry.
func (th *testHub) connect(t *testing.T, ctrl *gomock.Controller, id string) (*player.Player, *envelopeLog) {
	t.Helper()
	log := &envelopeLog{}
	conn := mocks.NewMockConnection(ctrl)
	conn.EXPECT().WriteMessage(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ int, data []byte) error {
			var env proto.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				t.Fatalf("invalid envelope written to %s: %v", id, err)
			}
			log.append(env)
			return nil
		}).AnyTimes()
	conn.EXPECT().Close().Return(nil).AnyTimes()

	p := player.NewPlayer(id, id, 1200, conn)
	th.hub.mu.Lock()
	th.hub.players[id] = p
	th.hub.mu.Unlock()
	return p, log
}

type envelopeLog struct {
	mu   sync.Mutex
	envs []proto.Envelope
}

func (l *envelopeLog) append(env proto.Envelope) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.envs = append(l.envs, env)
}

func (l *envelopeLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.envs))
	for i, e := range l.envs {
		out[i] = e.Type
	}
	return out
}

func (l *envelopeLog) last(msgType string) (proto.Envelope, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.envs) - 1; i >= 0; i-- {
		if l.envs[i].Type == msgType {
			return l.envs[i], true
		}
	}
	return proto.Envelope{}, false
}

func send(t *testing.T, th *testHub, p *player.Player, msgType string, payload any) {
	t.Helper()
	env, err := proto.NewEnvelope(msgType, payload)
	require.NoError(t, err)
	th.hub.dispatch(context.Background(), p, env)
}

func TestLobbyFlowStartsSessionAndRecordsOutcome(t *testing.T) {
	ctrl := gomock.NewController(t)
	th := newTestHub(t)
	alice, aliceLog := th.connect(t, ctrl, "alice")
	bob, bobLog := th.connect(t, ctrl, "bob")

	send(t, th, alice, proto.TypeCreateRoom, proto.CreateRoomPayload{
		RoomKind: "quickplay", GameKind: game.KindGrid, MaxPlayers: 2,
	})
	env, ok := aliceLog.last(proto.TypeRoomState)
	require.True(t, ok, "creator got no room_state")
	var roomSnap struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(env.Payload, &roomSnap))
	assert.Equal(t, "waiting", roomSnap.Status)

	send(t, th, bob, proto.TypeJoinRoom, proto.JoinRoomPayload{RoomID: roomSnap.ID})
	send(t, th, alice, proto.TypeReady, proto.ReadyPayload{RoomID: roomSnap.ID, Ready: true})
	send(t, th, bob, proto.TypeReady, proto.ReadyPayload{RoomID: roomSnap.ID, Ready: true})
	send(t, th, alice, proto.TypeStartRoom, proto.StartRoomPayload{RoomID: roomSnap.ID})

	joined, ok := bobLog.last(proto.TypeGameJoined)
	require.True(t, ok, "second player got no game_joined")
	var joinedPayload proto.GameJoinedPayload
	require.NoError(t, json.Unmarshal(joined.Payload, &joinedPayload))
	assert.Equal(t, 2, joinedPayload.Seat)
	sessionID := joinedPayload.SessionID

	// Top-row win for alice.
	moves := []struct {
		p  *player.Player
		mv game.Move
	}{
		{alice, game.Move{Row: 0, Col: 0}},
		{bob, game.Move{Row: 1, Col: 1}},
		{alice, game.Move{Row: 0, Col: 1}},
		{bob, game.Move{Row: 1, Col: 0}},
		{alice, game.Move{Row: 0, Col: 2}},
	}
	for _, m := range moves {
		send(t, th, m.p, proto.TypeGameMove, proto.GameMovePayload{SessionID: sessionID, Move: m.mv})
	}

	_, ok = aliceLog.last(proto.TypeGameOver)
	assert.True(t, ok, "winner got no game_over")

	require.Equal(t, 1, th.results.outcomeCount())
	assert.Equal(t, "alice", th.results.outcomes[0].WinnerID)
	require.Eventually(t, func() bool { return th.history.count() == 1 },
		time.Second, 10*time.Millisecond, "history row never recorded")

	_, live := th.hub.findSession(sessionID)
	assert.False(t, live, "completed session still registered")
}

func TestEnqueuePairStartsRankedSession(t *testing.T) {
	ctrl := gomock.NewController(t)
	th := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go th.hub.consumeMatches(ctx)

	alice, aliceLog := th.connect(t, ctrl, "alice")
	bob, bobLog := th.connect(t, ctrl, "bob")

	send(t, th, alice, proto.TypeEnqueue, proto.EnqueuePayload{GameKind: game.KindRPS})
	send(t, th, bob, proto.TypeEnqueue, proto.EnqueuePayload{GameKind: game.KindRPS})

	require.Eventually(t, func() bool {
		_, ok1 := aliceLog.last(proto.TypeGameJoined)
		_, ok2 := bobLog.last(proto.TypeGameJoined)
		return ok1 && ok2
	}, 2*time.Second, 10*time.Millisecond, "matched players never seated")

	assert.Contains(t, aliceLog.types(), proto.TypeQueueStatus)
}

func TestIllegalMoveDoesNotEchoHubError(t *testing.T) {
	ctrl := gomock.NewController(t)
	th := newTestHub(t)
	alice, _ := th.connect(t, ctrl, "alice")
	bob, bobLog := th.connect(t, ctrl, "bob")

	send(t, th, alice, proto.TypeCreateRoom, proto.CreateRoomPayload{
		RoomKind: "quickplay", GameKind: game.KindGrid, MaxPlayers: 2,
	})
	rooms := th.hub.rooms.List()
	require.Len(t, rooms, 1)
	roomID := rooms[0].ID

	send(t, th, bob, proto.TypeJoinRoom, proto.JoinRoomPayload{RoomID: roomID})
	send(t, th, alice, proto.TypeReady, proto.ReadyPayload{RoomID: roomID, Ready: true})
	send(t, th, bob, proto.TypeReady, proto.ReadyPayload{RoomID: roomID, Ready: true})
	send(t, th, alice, proto.TypeStartRoom, proto.StartRoomPayload{RoomID: roomID})

	joined, ok := bobLog.last(proto.TypeGameJoined)
	require.True(t, ok)
	var joinedPayload proto.GameJoinedPayload
	require.NoError(t, json.Unmarshal(joined.Payload, &joinedPayload))

	// Bob moves off turn: exactly one error envelope, from the session.
	before := len(bobLog.types())
	send(t, th, bob, proto.TypeGameMove, proto.GameMovePayload{
		SessionID: joinedPayload.SessionID, Move: game.Move{Row: 0, Col: 0},
	})
	errCount := 0
	for _, msgType := range bobLog.types()[before:] {
		if msgType == proto.TypeError {
			errCount++
		}
	}
	assert.Equal(t, 1, errCount, "rejection surfaced more than once")
}

func TestDisconnectAbandonsSessionAndClosesRoom(t *testing.T) {
	ctrl := gomock.NewController(t)
	th := newTestHub(t)
	alice, _ := th.connect(t, ctrl, "alice")
	bob, bobLog := th.connect(t, ctrl, "bob")

	send(t, th, alice, proto.TypeCreateRoom, proto.CreateRoomPayload{
		RoomKind: "quickplay", GameKind: game.KindConnect, MaxPlayers: 2,
	})
	rooms := th.hub.rooms.List()
	require.Len(t, rooms, 1)
	roomID := rooms[0].ID

	send(t, th, bob, proto.TypeJoinRoom, proto.JoinRoomPayload{RoomID: roomID})
	send(t, th, alice, proto.TypeReady, proto.ReadyPayload{RoomID: roomID, Ready: true})
	send(t, th, bob, proto.TypeReady, proto.ReadyPayload{RoomID: roomID, Ready: true})
	send(t, th, alice, proto.TypeStartRoom, proto.StartRoomPayload{RoomID: roomID})

	th.hub.handleDisconnect(context.Background(), alice)

	require.Equal(t, 1, th.results.outcomeCount())
	outcome := th.results.outcomes[0]
	assert.True(t, outcome.Abandoned)
	assert.Equal(t, "alice", outcome.AbandonedBy)
	assert.Empty(t, outcome.WinnerID)

	_, ok := bobLog.last(proto.TypeGameOver)
	assert.True(t, ok, "remaining player not told the game ended")
}
