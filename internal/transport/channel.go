// Package transport provides the client-side channel used by bots and CLI
// clients to hold a resilient connection to the arcade server.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"ctarcade/Game-Arcade/pkg/proto"

	"github.com/gorilla/websocket"
)

// ConnectError reports a failed initial dial. Reconnect failures after a
// successful Connect surface through the disconnect handler instead.
type ConnectError struct {
	URL string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting to %s: %v", e.URL, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Channel is a reconnecting websocket client. Reads feed the Incoming
// channel; writes go through a single writer goroutine so send order is
// preserved across reconnects. A dropped connection is redialed with
// exponential backoff; once the attempts are exhausted the disconnect
// handler fires exactly once and the channel shuts down.
type Channel struct {
	url    string
	token  string
	dialer *websocket.Dialer

	backoffBase time.Duration
	backoffCap  time.Duration
	maxAttempts int

	onDisconnect   func()
	disconnectOnce sync.Once
	closeOnce      sync.Once

	incoming chan proto.Envelope
	outgoing chan proto.Envelope
	done     chan struct{}

	mu           sync.Mutex
	conn         *websocket.Conn
	open         bool
	attemptTimes []time.Time
}

type Option func(*Channel)

// WithBackoff sets the base delay and attempt limit of the reconnect loop.
// The n-th attempt waits base<<n, capped.
func WithBackoff(base, cap time.Duration, maxAttempts int) Option {
	return func(c *Channel) {
		c.backoffBase = base
		c.backoffCap = cap
		c.maxAttempts = maxAttempts
	}
}

// WithDisconnectHandler registers the callback fired when the channel gives
// up reconnecting.
func WithDisconnectHandler(fn func()) Option {
	return func(c *Channel) { c.onDisconnect = fn }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Channel) { c.dialer = d }
}

func NewChannel(url, token string, opts ...Option) *Channel {
	c := &Channel{
		url:         url,
		token:       token,
		dialer:      websocket.DefaultDialer,
		backoffBase: 500 * time.Millisecond,
		backoffCap:  30 * time.Second,
		maxAttempts: 5,
		incoming:    make(chan proto.Envelope, 64),
		outgoing:    make(chan proto.Envelope, 64),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect dials the server and starts the read and write loops. A failed
// initial dial returns a ConnectError without starting the reconnect loop.
func (c *Channel) Connect(ctx context.Context) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header())
	if resp != nil {
		resp.Body.Close()
	}
	if err != nil {
		return &ConnectError{URL: c.url, Err: err}
	}

	c.mu.Lock()
	c.conn = conn
	c.open = true
	c.mu.Unlock()

	go c.readLoop(ctx)
	go c.writeLoop(ctx)
	return nil
}

// Incoming returns the channel of envelopes read from the server.
func (c *Channel) Incoming() <-chan proto.Envelope {
	return c.incoming
}

// Done is closed once the channel has shut down for good.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Send queues an envelope for the writer goroutine. While the connection is
// down the envelope is dropped with a log line rather than blocking the
// caller.
func (c *Channel) Send(env *proto.Envelope) {
	c.mu.Lock()
	open := c.open
	c.mu.Unlock()
	if !open {
		slog.Warn("dropping outbound message, channel not open", "type", env.Type)
		return
	}
	select {
	case c.outgoing <- *env:
	case <-c.done:
	}
}

// Close tears the channel down without firing the disconnect handler.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.open = false
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()
		close(c.done)
	})
}

func (c *Channel) header() http.Header {
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	return h
}

func (c *Channel) readLoop(ctx context.Context) {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return
			case <-ctx.Done():
				c.Close()
				return
			default:
			}

			slog.Warn("connection lost, reconnecting", "error", err)
			if !c.reconnect(ctx) {
				// The loop stops either because the attempts ran out or
				// because someone closed the channel mid-backoff. Only
				// exhaustion counts as a disconnect.
				select {
				case <-c.done:
					return
				case <-ctx.Done():
					c.Close()
					return
				default:
				}
				c.disconnectOnce.Do(func() {
					if c.onDisconnect != nil {
						c.onDisconnect()
					}
				})
				c.Close()
				return
			}
			continue
		}

		var env proto.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Warn("discarding malformed envelope", "error", err)
			continue
		}
		select {
		case c.incoming <- env:
		case <-c.done:
			return
		case <-ctx.Done():
			c.Close()
			return
		}
	}
}

func (c *Channel) writeLoop(ctx context.Context) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case env := <-c.outgoing:
			data, err := json.Marshal(env)
			if err != nil {
				slog.Error("error marshalling outbound envelope", "type", env.Type, "error", err)
				continue
			}
			c.mu.Lock()
			conn, open := c.conn, c.open
			c.mu.Unlock()
			if !open || conn == nil {
				slog.Warn("dropping outbound message, channel not open", "type", env.Type)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				slog.Warn("error writing message", "type", env.Type, "error", err)
			}
		}
	}
}

// reconnect redials with exponential backoff. It reports whether a new
// connection was established before the attempts ran out.
func (c *Channel) reconnect(ctx context.Context) bool {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		delay := c.backoffBase << attempt
		if delay > c.backoffCap {
			delay = c.backoffCap
		}
		select {
		case <-time.After(delay):
		case <-c.done:
			return false
		case <-ctx.Done():
			return false
		}

		c.mu.Lock()
		c.attemptTimes = append(c.attemptTimes, time.Now())
		c.mu.Unlock()

		conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header())
		if resp != nil {
			resp.Body.Close()
		}
		if err != nil {
			slog.Warn("reconnect attempt failed", "attempt", attempt+1, "error", err)
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.open = true
		c.mu.Unlock()
		slog.Info("reconnected", "attempt", attempt+1)
		return true
	}
	return false
}

func (c *Channel) attempts() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Time, len(c.attemptTimes))
	copy(out, c.attemptTimes)
	return out
}
