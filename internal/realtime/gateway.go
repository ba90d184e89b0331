// Package realtime implements the websocket gateway: it authenticates
// incoming connections against the shared session store, routes named
// events to handlers, and owns all mutation of the client registry and
// job tracker.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/colabhq/campaignd/internal/chat"
	"github.com/colabhq/campaignd/pkg/session"
)

const defaultCookieName = "__sid"

// Bridge is the messaging surface the gateway delegates chat traffic to.
// Implemented by chat.Service.
type Bridge interface {
	Send(ctx context.Context, m chat.Message) (chat.Message, error)
	History(ctx context.Context, threadID string) ([]chat.Message, error)
	MarkSeen(ctx context.Context, threadID, userID string) error
}

// Gateway manages the realtime connection lifecycle. Registry and tracker
// are injected at construction so tests can substitute their own.
type Gateway struct {
	log      *slog.Logger
	sessions session.Store
	bridge   Bridge
	registry *Registry
	tracker  *Tracker
	rooms    *rooms

	cookieName string
	upgrader   websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*conn // connID -> conn
}

// Option configures the gateway.
type Option func(*Gateway)

// WithCookieName overrides the session cookie name checked during the
// handshake. Defaults to "__sid".
func WithCookieName(name string) Option {
	return func(g *Gateway) {
		g.cookieName = name
	}
}

// WithCheckOrigin overrides the websocket origin check. The default
// accepts any origin; cross-origin clients are gated by the session
// cookie instead.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(g *Gateway) {
		g.upgrader.CheckOrigin = fn
	}
}

// NewGateway creates the realtime gateway.
func NewGateway(log *slog.Logger, sessions session.Store, bridge Bridge, registry *Registry, tracker *Tracker, opts ...Option) *Gateway {
	g := &Gateway{
		log:        log,
		sessions:   sessions,
		bridge:     bridge,
		registry:   registry,
		tracker:    tracker,
		rooms:      newRooms(),
		cookieName: defaultCookieName,
		conns:      make(map[string]*conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ServeHTTP upgrades an authenticated request to a websocket connection.
// The handshake is gated by the same session store as the HTTP stack: a
// connection is only valid if its session is still present.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(g.cookieName)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sess, err := g.sessions.Get(r.Context(), cookie.Value)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	sock, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		g.log.DebugContext(r.Context(), "websocket upgrade failed", slog.Any("error", err))
		return
	}

	c := &conn{
		id:     uuid.NewString(),
		userID: sess.UserID,
		ctx:    r.Context(),
		sock:   sock,
		send:   make(chan []byte, sendBuffer),
		gw:     g,
	}

	g.mu.Lock()
	g.conns[c.id] = c
	g.mu.Unlock()

	g.log.InfoContext(r.Context(), "client connected",
		slog.String("conn_id", c.id),
		slog.String("user_id", c.userID),
	)

	go c.writePump()
	c.readPump()
}

// Push emits an event to the user's registered connection, if any.
// Returns false on a miss; a miss is not an error, the durable record
// remains retrievable.
func (g *Gateway) Push(userID, event string, data any) bool {
	connID, ok := g.registry.Get(userID)
	if !ok {
		return false
	}

	g.mu.RLock()
	c, ok := g.conns[connID]
	g.mu.RUnlock()
	if !ok {
		return false
	}

	c.emit(event, data)
	return true
}

// dispatch routes one inbound event to its handler. Every handler guards
// its own failures; a recover here keeps one bad event from tearing down
// the connection.
func (g *Gateway) dispatch(c *conn, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			g.log.ErrorContext(c.ctx, "panic in event handler",
				slog.String("event", env.Event),
				slog.Any("panic", r),
			)
			c.emit(EventError, "Internal error.")
		}
	}()

	switch env.Event {
	case EventRegister:
		g.handleRegister(c, env.Data)
	case EventCancelProcessing:
		g.handleCancelProcessing(c, env.Data)
	case EventCheckQueue:
		g.handleCheckQueue(c, env.Data)
	case EventRoom:
		g.handleRoom(c, env.Data)
	case EventSendMessage:
		g.handleSendMessage(c, env.Data)
	case EventMarkSeen:
		g.handleMarkSeen(c, env.Data)
	default:
		g.log.DebugContext(c.ctx, "unknown event", slog.String("event", env.Event))
	}
}

// handleRegister binds the user identity to this connection for pushes.
// Idempotent; a second registration for the same user overwrites the
// first (last write wins).
func (g *Gateway) handleRegister(c *conn, data json.RawMessage) {
	var userID string
	if err := json.Unmarshal(data, &userID); err != nil || userID == "" {
		c.emit(EventError, "Invalid register payload.")
		return
	}
	g.registry.Set(userID, c.id)
}

// handleCancelProcessing kills a tracked background job. No-op for
// unknown submissions.
func (g *Gateway) handleCancelProcessing(c *conn, data json.RawMessage) {
	var ref SubmissionRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.SubmissionID == "" {
		return
	}

	handle, ok := g.tracker.Get(ref.SubmissionID)
	if !ok {
		return
	}

	handle.Kill()
	g.tracker.Remove(ref.SubmissionID)

	c.emit(EventProgress, ProgressPayload{SubmissionID: ref.SubmissionID, Progress: 0})
}

// handleCheckQueue answers a queue-position poll. An event is emitted
// only while the job is still queued; running or absent jobs stay silent.
func (g *Gateway) handleCheckQueue(c *conn, data json.RawMessage) {
	var ref SubmissionRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.SubmissionID == "" {
		return
	}

	handle, ok := g.tracker.Get(ref.SubmissionID)
	if !ok || handle.Status() != StatusQueued {
		return
	}

	c.emit(EventStatusQueue, StatusQueuePayload{Status: "queue"})
}

// handleRoom joins the connection to a thread group and replays history.
func (g *Gateway) handleRoom(c *conn, data json.RawMessage) {
	var threadID string
	if err := json.Unmarshal(data, &threadID); err != nil || threadID == "" {
		c.emit(EventError, "Invalid room payload.")
		return
	}

	g.rooms.join(threadID, c)

	history, err := g.bridge.History(c.ctx, threadID)
	if err != nil {
		g.log.ErrorContext(c.ctx, "fetch thread history",
			slog.String("thread_id", threadID),
			slog.Any("error", err),
		)
		c.emit(EventError, "Failed to fetch messages")
		return
	}

	c.emit(EventExistingMessages, ExistingMessagesPayload{
		ThreadID:    threadID,
		OldMessages: history,
	})
}

// handleSendMessage persists the message and fans it out to the thread
// group, sender included.
func (g *Gateway) handleSendMessage(c *conn, data json.RawMessage) {
	var m chat.Message
	if err := json.Unmarshal(data, &m); err != nil {
		c.emit(EventError, "Invalid message payload.")
		return
	}

	stored, err := g.bridge.Send(c.ctx, m)
	if err != nil {
		g.log.ErrorContext(c.ctx, "persist message",
			slog.String("thread_id", m.ThreadID),
			slog.Any("error", err),
		)
		c.emit(EventError, "Failed to send message.")
		return
	}

	g.broadcast(stored.ThreadID, EventLatestMessage, stored)
}

// handleMarkSeen marks the thread read for the user and broadcasts the
// receipt.
func (g *Gateway) handleMarkSeen(c *conn, data json.RawMessage) {
	var payload MessagesSeenPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.emit(EventError, "Invalid payload.")
		return
	}

	if payload.UserID == "" {
		c.emit(EventError, "User not authenticated.")
		return
	}

	if err := g.bridge.MarkSeen(c.ctx, payload.ThreadID, payload.UserID); err != nil {
		g.log.ErrorContext(c.ctx, "mark messages as seen",
			slog.String("thread_id", payload.ThreadID),
			slog.Any("error", err),
		)
		c.emit(EventError, "Failed to mark messages as seen.")
		return
	}

	g.broadcast(payload.ThreadID, EventMessagesSeen, payload)
}

// broadcast emits an event to every member of a thread group.
func (g *Gateway) broadcast(threadID, event string, data any) {
	frame, err := marshalEnvelope(event, data)
	if err != nil {
		g.log.Error("marshal broadcast", slog.String("event", event), slog.Any("error", err))
		return
	}
	g.rooms.broadcast(threadID, frame)
}

// dropConn tears down a disconnecting connection: leaves all thread
// groups, removes the registry entry that still points at this
// connection, and closes the outbound queue. A newer registration for
// the same user is never removed.
func (g *Gateway) dropConn(c *conn) {
	g.mu.Lock()
	if _, ok := g.conns[c.id]; !ok {
		g.mu.Unlock()
		return
	}
	delete(g.conns, c.id)
	g.mu.Unlock()

	g.rooms.leave(c)
	g.registry.RemoveByConnID(c.id)
	c.shutdown()

	g.log.InfoContext(c.ctx, "client disconnected",
		slog.String("conn_id", c.id),
		slog.String("user_id", c.userID),
	)
}
