package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colabhq/campaignd/internal/chat"
	"github.com/colabhq/campaignd/pkg/logger"
	"github.com/colabhq/campaignd/pkg/session"
)

type stubSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
}

func newStubSessionStore() *stubSessionStore {
	return &stubSessionStore{sessions: make(map[string]*session.Session)}
}

func (s *stubSessionStore) add(sess *session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
}

func (s *stubSessionStore) Create(_ context.Context, sess *session.Session) error {
	s.add(sess)
	return nil
}

func (s *stubSessionStore) Get(_ context.Context, token string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, session.ErrNotFound
	}
	return sess, nil
}

func (s *stubSessionStore) Update(_ context.Context, sess *session.Session) error {
	s.add(sess)
	return nil
}

func (s *stubSessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, sess := range s.sessions {
		if sess.ID == id {
			delete(s.sessions, token)
		}
	}
	return nil
}

func (s *stubSessionStore) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type stubBridge struct {
	mu         sync.Mutex
	messages   map[string][]chat.Message
	historyErr error
	seenErr    error
	seenCalls  []string // "threadID/userID"
}

func newStubBridge() *stubBridge {
	return &stubBridge{messages: make(map[string][]chat.Message)}
}

func (b *stubBridge) Send(_ context.Context, m chat.Message) (chat.Message, error) {
	if m.ThreadID == "" {
		return chat.Message{}, chat.ErrThreadRequired
	}
	m.ID = uuid.NewString()
	m.CreatedAt = time.Now().UTC()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages[m.ThreadID] = append(b.messages[m.ThreadID], m)
	return m, nil
}

func (b *stubBridge) History(_ context.Context, threadID string) ([]chat.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.historyErr != nil {
		return nil, b.historyErr
	}
	return b.messages[threadID], nil
}

func (b *stubBridge) MarkSeen(_ context.Context, threadID, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.seenErr != nil {
		return b.seenErr
	}
	b.seenCalls = append(b.seenCalls, threadID+"/"+userID)
	return nil
}

type gatewayFixture struct {
	gw       *Gateway
	srv      *httptest.Server
	sessions *stubSessionStore
	bridge   *stubBridge
	tracker  *Tracker
	registry *Registry
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	sessions := newStubSessionStore()
	bridge := newStubBridge()
	registry := NewRegistry()
	tracker := NewTracker()

	gw := NewGateway(logger.NewNope(), sessions, bridge, registry, tracker)
	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)

	return &gatewayFixture{
		gw:       gw,
		srv:      srv,
		sessions: sessions,
		bridge:   bridge,
		tracker:  tracker,
		registry: registry,
	}
}

// dial opens a websocket connection authenticated as userID, creating the
// backing session on the fly.
func (f *gatewayFixture) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()

	sess := session.New(userID, "Test User", session.RoleCreator, time.Hour)
	f.sessions.add(sess)

	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http")
	header := http.Header{}
	header.Add("Cookie", (&http.Cookie{Name: defaultCookieName, Value: sess.Token}).String())

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func sendEvent(t *testing.T, ws *websocket.Conn, event string, data any) {
	t.Helper()
	frame, err := marshalEnvelope(event, data)
	require.NoError(t, err)
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, frame))
}

func readEvent(t *testing.T, ws *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

// expectSilence asserts that no frame arrives within the window.
func expectSilence(t *testing.T, ws *websocket.Conn) {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := ws.ReadMessage()
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func TestGateway_Handshake_RejectsMissingSession(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http")

	// No cookie at all.
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Cookie present but no backing session.
	header := http.Header{}
	header.Add("Cookie", (&http.Cookie{Name: defaultCookieName, Value: "bogus"}).String())
	_, resp, err = websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGateway_RegisterAndPush(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	ws := f.dial(t, "user-1")

	sendEvent(t, ws, EventRegister, "user-1")
	waitFor(t, func() bool { return f.registry.Len() == 1 })

	ok := f.gw.Push("user-1", EventNotification, map[string]string{"message": "hello"})
	assert.True(t, ok)

	env := readEvent(t, ws)
	assert.Equal(t, EventNotification, env.Event)
	assert.JSONEq(t, `{"message":"hello"}`, string(env.Data))
}

func TestGateway_Push_MissForUnregisteredUser(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	assert.False(t, f.gw.Push("nobody", EventNotification, nil))
}

func TestGateway_DoubleRegister_LastWins(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	first := f.dial(t, "user-1")
	second := f.dial(t, "user-1")

	sendEvent(t, first, EventRegister, "user-1")
	waitFor(t, func() bool { return f.registry.Len() == 1 })
	firstConn, _ := f.registry.Get("user-1")

	sendEvent(t, second, EventRegister, "user-1")
	waitFor(t, func() bool {
		id, _ := f.registry.Get("user-1")
		return id != firstConn
	})

	require.True(t, f.gw.Push("user-1", EventNotification, "ping"))
	env := readEvent(t, second)
	assert.Equal(t, EventNotification, env.Event)
	expectSilence(t, first)
}

func TestGateway_StaleDisconnect_KeepsNewRegistration(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	old := f.dial(t, "user-1")
	fresh := f.dial(t, "user-1")

	sendEvent(t, old, EventRegister, "user-1")
	waitFor(t, func() bool { return f.registry.Len() == 1 })
	oldID, _ := f.registry.Get("user-1")

	sendEvent(t, fresh, EventRegister, "user-1")
	freshID := func() string { id, _ := f.registry.Get("user-1"); return id }
	waitFor(t, func() bool { return freshID() != oldID })
	want := freshID()

	// The old socket disconnecting must not evict the fresh registration.
	require.NoError(t, old.Close())
	time.Sleep(100 * time.Millisecond)

	id, ok := f.registry.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, want, id)
}

func TestGateway_CancelProcessing(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	ws := f.dial(t, "user-1")

	var killed bool
	f.tracker.Start("sub-1", func() error {
		killed = true
		return nil
	}, StatusRunning)

	sendEvent(t, ws, EventCancelProcessing, SubmissionRef{SubmissionID: "sub-1"})

	env := readEvent(t, ws)
	assert.Equal(t, EventProgress, env.Event)
	assert.JSONEq(t, `{"submissionId":"sub-1","progress":0}`, string(env.Data))

	assert.True(t, killed)
	_, ok := f.tracker.Get("sub-1")
	assert.False(t, ok)
}

func TestGateway_CancelProcessing_UnknownJobIsSilent(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	ws := f.dial(t, "user-1")

	sendEvent(t, ws, EventCancelProcessing, SubmissionRef{SubmissionID: "ghost"})
	expectSilence(t, ws)
}

func TestGateway_CheckQueue(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	ws := f.dial(t, "user-1")

	f.tracker.Start("sub-queued", nil, StatusQueued)
	sendEvent(t, ws, EventCheckQueue, SubmissionRef{SubmissionID: "sub-queued"})

	env := readEvent(t, ws)
	assert.Equal(t, EventStatusQueue, env.Event)
	assert.JSONEq(t, `{"status":"queue"}`, string(env.Data))
}

func TestGateway_CheckQueue_SilentWhenRunningOrUnknown(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	ws := f.dial(t, "user-1")

	f.tracker.Start("sub-running", func() error { return nil }, StatusRunning)
	sendEvent(t, ws, EventCheckQueue, SubmissionRef{SubmissionID: "sub-running"})
	expectSilence(t, ws)

	sendEvent(t, ws, EventCheckQueue, SubmissionRef{SubmissionID: "ghost"})
	expectSilence(t, ws)
}

func TestGateway_Room_ReplaysHistory(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	ws := f.dial(t, "user-1")

	_, err := f.bridge.Send(context.Background(), chat.Message{
		ThreadID: "thread-1",
		SenderID: "user-2",
		Content:  "hi there",
	})
	require.NoError(t, err)

	sendEvent(t, ws, EventRoom, "thread-1")

	env := readEvent(t, ws)
	require.Equal(t, EventExistingMessages, env.Event)

	var payload ExistingMessagesPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "thread-1", payload.ThreadID)
	require.Len(t, payload.OldMessages, 1)
	assert.Equal(t, "hi there", payload.OldMessages[0].Content)
}

func TestGateway_Room_HistoryFailure(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	f.bridge.historyErr = errors.New("db down")
	ws := f.dial(t, "user-1")

	sendEvent(t, ws, EventRoom, "thread-1")

	env := readEvent(t, ws)
	assert.Equal(t, EventError, env.Event)
	assert.JSONEq(t, `"Failed to fetch messages"`, string(env.Data))
}

func TestGateway_SendMessage_BroadcastsToRoomIncludingSender(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	sender := f.dial(t, "user-1")
	peer := f.dial(t, "user-2")

	sendEvent(t, sender, EventRoom, "thread-1")
	require.Equal(t, EventExistingMessages, readEvent(t, sender).Event)
	sendEvent(t, peer, EventRoom, "thread-1")
	require.Equal(t, EventExistingMessages, readEvent(t, peer).Event)

	sendEvent(t, sender, EventSendMessage, chat.Message{
		ThreadID: "thread-1",
		SenderID: "user-1",
		Content:  "hello room",
	})

	for _, ws := range []*websocket.Conn{sender, peer} {
		env := readEvent(t, ws)
		require.Equal(t, EventLatestMessage, env.Event)

		var m chat.Message
		require.NoError(t, json.Unmarshal(env.Data, &m))
		assert.Equal(t, "hello room", m.Content)
		assert.NotEmpty(t, m.ID)
	}
}

func TestGateway_MarkSeen_RequiresUser(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	ws := f.dial(t, "user-1")

	sendEvent(t, ws, EventMarkSeen, MessagesSeenPayload{ThreadID: "thread-1"})

	env := readEvent(t, ws)
	assert.Equal(t, EventError, env.Event)
	assert.JSONEq(t, `"User not authenticated."`, string(env.Data))
	assert.Empty(t, f.bridge.seenCalls)
}

func TestGateway_MarkSeen_BroadcastsReceipt(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	ws := f.dial(t, "user-1")

	sendEvent(t, ws, EventRoom, "thread-1")
	require.Equal(t, EventExistingMessages, readEvent(t, ws).Event)

	sendEvent(t, ws, EventMarkSeen, MessagesSeenPayload{ThreadID: "thread-1", UserID: "user-1"})

	env := readEvent(t, ws)
	require.Equal(t, EventMessagesSeen, env.Event)
	assert.JSONEq(t, `{"threadId":"thread-1","userId":"user-1"}`, string(env.Data))
	assert.Equal(t, []string{"thread-1/user-1"}, f.bridge.seenCalls)
}

func TestGateway_MarkSeen_StoreFailure(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	f.bridge.seenErr = errors.New("db down")
	ws := f.dial(t, "user-1")

	sendEvent(t, ws, EventMarkSeen, MessagesSeenPayload{ThreadID: "thread-1", UserID: "user-1"})

	env := readEvent(t, ws)
	assert.Equal(t, EventError, env.Event)
	assert.JSONEq(t, `"Failed to mark messages as seen."`, string(env.Data))
}

func TestGateway_MalformedFrame(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	ws := f.dial(t, "user-1")

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))

	env := readEvent(t, ws)
	assert.Equal(t, EventError, env.Event)
	assert.JSONEq(t, `"Invalid message format."`, string(env.Data))
}
