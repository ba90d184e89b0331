package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size.
	maxMessageSize = 64 << 10

	// Outbound queue depth per connection.
	sendBuffer = 32
)

// conn is a single realtime channel between one client tab/device and
// the server.
type conn struct {
	id     string
	userID string
	ctx    context.Context
	sock   *websocket.Conn
	send   chan []byte
	gw     *Gateway

	mu     sync.Mutex
	closed bool
}

// emit marshals and queues an event for this connection.
func (c *conn) emit(event string, data any) {
	frame, err := marshalEnvelope(event, data)
	if err != nil {
		c.gw.log.ErrorContext(c.ctx, "marshal event",
			slog.String("event", event),
			slog.Any("error", err),
		)
		return
	}
	c.queue(frame)
}

// queue enqueues a prepared frame, dropping it if the connection is gone
// or the client cannot keep up. Push delivery is best-effort; durable
// records are the source of truth for anything a slow client misses.
func (c *conn) queue(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- frame:
	default:
		c.gw.log.WarnContext(c.ctx, "send buffer full, dropping frame",
			slog.String("conn_id", c.id),
		)
	}
}

// shutdown closes the outbound queue exactly once; writePump exits when
// the channel drains.
func (c *conn) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump reads inbound frames and dispatches them until the connection
// closes. Runs in the HTTP handler goroutine.
func (c *conn) readPump() {
	defer c.gw.dropConn(c)

	c.sock.SetReadLimit(maxMessageSize)
	_ = c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.gw.log.DebugContext(c.ctx, "unexpected close",
					slog.String("conn_id", c.id),
					slog.Any("error", err),
				)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.emit(EventError, "Invalid message format.")
			continue
		}

		c.gw.dispatch(c, env)
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings. Runs in its own goroutine; exits when the send channel closes.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.sock.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.sock.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.sock.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
