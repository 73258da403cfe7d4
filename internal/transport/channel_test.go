package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ctarcade/Game-Arcade/pkg/proto"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// flakyServer upgrades the first acceptUntilFail connections and drops them
// immediately, then refuses every later upgrade.
func flakyServer(t *testing.T, acceptUntilFail int32) (*httptest.Server, *int32) {
	t.Helper()
	var served int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&served, 1) > acceptUntilFail {
			http.Error(w, "gone", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	t.Cleanup(srv.Close)
	return srv, &served
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestConnectFailureReturnsConnectError(t *testing.T) {
	c := NewChannel("ws://127.0.0.1:1/ws", "tok")
	err := c.Connect(context.Background())
	require.Error(t, err)

	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Empty(t, c.attempts(), "failed initial dial must not start the reconnect loop")
}

func TestReconnectExhaustionNotifiesOnce(t *testing.T) {
	srv, _ := flakyServer(t, 1)

	var disconnects int32
	c := NewChannel(wsURL(srv), "tok",
		WithBackoff(5*time.Millisecond, time.Second, 3),
		WithDisconnectHandler(func() { atomic.AddInt32(&disconnects, 1) }),
	)
	require.NoError(t, c.Connect(context.Background()))

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("channel did not shut down after exhausting reconnects")
	}

	attempts := c.attempts()
	require.Len(t, attempts, 3, "reconnect attempt count")
	for i := 1; i < len(attempts); i++ {
		gap := attempts[i].Sub(attempts[i-1])
		wantMin := 5 * time.Millisecond << i
		assert.GreaterOrEqual(t, gap, wantMin, "attempt %d fired before its backoff delay", i+1)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&disconnects), "disconnect handler count")
}

func TestReconnectResumesReading(t *testing.T) {
	var served int32
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&served, 1)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if n == 1 {
			// First connection dies straight away to force a redial.
			conn.Close()
			return
		}
		mu.Lock()
		defer mu.Unlock()
		env, _ := proto.NewEnvelope(proto.TypeConnected, proto.ConnectedPayload{PlayerID: "p1"})
		conn.WriteJSON(env)
	}))
	t.Cleanup(srv.Close)

	c := NewChannel(wsURL(srv), "tok", WithBackoff(5*time.Millisecond, time.Second, 5))
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(c.Close)

	select {
	case env := <-c.Incoming():
		assert.Equal(t, proto.TypeConnected, env.Type)
	case <-time.After(5 * time.Second):
		t.Fatal("no envelope received after reconnect")
	}
	assert.GreaterOrEqual(t, len(c.attempts()), 1, "resume must have gone through the backoff loop")
}

func TestSendPreservesOrder(t *testing.T) {
	received := make(chan string, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var env proto.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				return
			}
			received <- env.Type
		}
	}))
	t.Cleanup(srv.Close)

	c := NewChannel(wsURL(srv), "tok")
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(c.Close)

	sent := []string{proto.TypeEnqueue, proto.TypeGameMove, proto.TypeLeaveQueue}
	for _, msgType := range sent {
		env, err := proto.NewEnvelope(msgType, struct{}{})
		require.NoError(t, err)
		c.Send(env)
	}

	for i, want := range sent {
		select {
		case got := <-received:
			assert.Equal(t, want, got, "message %d out of order", i)
		case <-time.After(5 * time.Second):
			t.Fatalf("message %d never arrived", i)
		}
	}
}

func TestCloseDuringBackoffSuppressesDisconnect(t *testing.T) {
	srv, _ := flakyServer(t, 1)

	var disconnects int32
	c := NewChannel(wsURL(srv), "tok",
		WithBackoff(2*time.Second, 4*time.Second, 3),
		WithDisconnectHandler(func() { atomic.AddInt32(&disconnects, 1) }),
	)
	require.NoError(t, c.Connect(context.Background()))

	// The server drops the first connection immediately, so the read loop is
	// deep in its first 2s backoff wait by the time Close lands.
	time.Sleep(200 * time.Millisecond)
	c.Close()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("channel did not shut down after Close")
	}
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&disconnects),
		"explicit Close must not fire the disconnect handler")
}

func TestSendWhileClosedIsDropped(t *testing.T) {
	srv, _ := flakyServer(t, 1)
	c := NewChannel(wsURL(srv), "tok", WithBackoff(time.Millisecond, time.Second, 1))
	require.NoError(t, c.Connect(context.Background()))
	c.Close()

	env, err := proto.NewEnvelope(proto.TypeEnqueue, struct{}{})
	require.NoError(t, err)
	c.Send(env) // must not panic or block
}
