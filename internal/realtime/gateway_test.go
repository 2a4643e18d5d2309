package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/archosan/realtime-chat-v2/internal/auth"
	"github.com/archosan/realtime-chat-v2/internal/chat/domain"
	"github.com/archosan/realtime-chat-v2/internal/chat/repository/port"
	"github.com/archosan/realtime-chat-v2/internal/chat/usecase"
)

const gatewaySecret = "gateway-test-secret"

type fakePresenceStore struct {
	mu    sync.Mutex
	conns map[string]map[string]struct{}
}

func newFakePresence() *fakePresenceStore {
	return &fakePresenceStore{conns: make(map[string]map[string]struct{})}
}

func (s *fakePresenceStore) Connect(_ context.Context, userID, connID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.conns[userID]
	if set == nil {
		set = make(map[string]struct{})
		s.conns[userID] = set
	}
	set[connID] = struct{}{}
	return len(set) == 1, nil
}

func (s *fakePresenceStore) Disconnect(_ context.Context, userID, connID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.conns[userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(s.conns, userID)
		return true, nil
	}
	return false, nil
}

func (s *fakePresenceStore) Online(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id := range s.conns {
		out = append(out, id)
	}
	return out, nil
}

func (s *fakePresenceStore) IsOnline(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns[userID]) > 0, nil
}

func (s *fakePresenceStore) Close() error { return nil }

type stubConvs struct {
	mu     sync.Mutex
	byPair map[string]*domain.Conversation
	nextID int
}

func (s *stubConvs) FindOrCreate(_ context.Context, userA, userB string) (*domain.Conversation, error) {
	low, high, err := domain.PairKey(userA, userB)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byPair == nil {
		s.byPair = make(map[string]*domain.Conversation)
	}
	key := low + "|" + high
	if c, ok := s.byPair[key]; ok {
		return c, nil
	}
	s.nextID++
	c := &domain.Conversation{ID: fmt.Sprintf("conv-%d", s.nextID), UserLow: low, UserHigh: high}
	s.byPair[key] = c
	return c, nil
}

func (s *stubConvs) SetLastMessage(context.Context, string, string) error { return nil }

type stubMsgs struct {
	mu     sync.Mutex
	byID   map[string]*domain.Message
	nextID int
}

func (s *stubMsgs) Save(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byID == nil {
		s.byID = make(map[string]*domain.Message)
	}
	s.nextID++
	m.ID = fmt.Sprintf("msg-%d", s.nextID)
	stored := *m
	s.byID[m.ID] = &stored
	return nil
}

func (s *stubMsgs) FindByID(_ context.Context, id string) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (s *stubMsgs) AddReader(_ context.Context, messageID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.byID[messageID]; ok {
		m.MarkRead(userID)
	}
	return nil
}

func newGatewayServer(t *testing.T) (*httptest.Server, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	t.Cleanup(hub.Close)

	verifier, err := auth.NewVerifier(gatewaySecret)
	require.NoError(t, err)

	msgs := &stubMsgs{}
	send := usecase.NewSendMessageUseCase(&stubConvs{}, msgs, nil, zerolog.Nop())
	read := usecase.NewMarkMessageReadUseCase(msgs)
	gw := NewGateway(hub, newFakePresence(), verifier, send, read, zerolog.Nop())

	r := gin.New()
	r.GET("/ws", gw.Handle())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub
}

func accessToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
		"jti":    "tok-" + userID,
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(gatewaySecret))
	require.NoError(t, err)
	return signed
}

func dialGateway(t *testing.T, srv *httptest.Server, userID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + accessToken(t, userID)
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func readEvent(t *testing.T, client *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func sendEvent(t *testing.T, client *websocket.Conn, ev map[string]any) {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, client.WriteMessage(websocket.TextMessage, data))
}

// waitForRoomMembers polls until the room reaches the expected size; joins
// carry no acknowledgement frame.
func waitForRoomMembers(t *testing.T, hub *Hub, roomName string, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return len(hub.rooms[roomName]) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGatewayRejectsUnauthenticatedHandshake(t *testing.T) {
	srv, _ := newGatewayServer(t)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=garbage"
	_, resp2, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	if resp2 != nil {
		require.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
	}
}

func TestGatewayRelaysMessageToRoomPeer(t *testing.T) {
	srv, hub := newGatewayServer(t)
	room := domain.RoomName("alice", "bob")

	alice := dialGateway(t, srv, "alice")
	bob := dialGateway(t, srv, "bob")

	// Alice sees Bob come online (she connected first).
	online := readEvent(t, alice)
	require.Equal(t, EventUserOnline, online["type"])
	require.Equal(t, "bob", online["userId"])

	sendEvent(t, alice, map[string]any{"type": EventJoinRoom, "roomName": room})
	sendEvent(t, bob, map[string]any{"type": EventJoinRoom, "roomName": room})
	waitForRoomMembers(t, hub, room, 2)

	sendEvent(t, alice, map[string]any{
		"type":       EventSendMessage,
		"roomName":   room,
		"receiverId": "bob",
		"message":    "hello bob",
	})

	received := readEvent(t, bob)
	require.Equal(t, EventMessageReceived, received["type"])
	require.Equal(t, "hello bob", received["message"])
	require.Equal(t, "alice", received["senderId"])
	require.NotEmpty(t, received["messageId"])

	// The sender gets no echo of its own message.
	require.NoError(t, alice.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := alice.ReadMessage()
	require.Error(t, err)
}

func TestGatewayRejectsForeignRoomJoin(t *testing.T) {
	srv, hub := newGatewayServer(t)
	room := domain.RoomName("alice", "bob")

	mallory := dialGateway(t, srv, "mallory")
	sendEvent(t, mallory, map[string]any{"type": EventJoinRoom, "roomName": room})

	ev := readEvent(t, mallory)
	require.Equal(t, EventError, ev["type"])

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	require.Empty(t, hub.rooms[room])
}

func TestGatewayRelaysReadReceipts(t *testing.T) {
	srv, hub := newGatewayServer(t)
	room := domain.RoomName("alice", "bob")

	alice := dialGateway(t, srv, "alice")
	bob := dialGateway(t, srv, "bob")
	require.Equal(t, EventUserOnline, readEvent(t, alice)["type"])

	sendEvent(t, alice, map[string]any{"type": EventJoinRoom, "roomName": room})
	sendEvent(t, bob, map[string]any{"type": EventJoinRoom, "roomName": room})
	waitForRoomMembers(t, hub, room, 2)

	sendEvent(t, alice, map[string]any{
		"type":       EventSendMessage,
		"roomName":   room,
		"receiverId": "bob",
		"message":    "check this",
	})
	received := readEvent(t, bob)
	messageID := received["messageId"].(string)

	sendEvent(t, bob, map[string]any{
		"type":      EventMessageRead,
		"roomName":  room,
		"messageId": messageID,
	})

	wasRead := readEvent(t, alice)
	require.Equal(t, EventMessageWasRead, wasRead["type"])
	require.Equal(t, messageID, wasRead["messageId"])
	require.Equal(t, "bob", wasRead["readerId"])
}

func TestGatewayRelaysTyping(t *testing.T) {
	srv, hub := newGatewayServer(t)
	room := domain.RoomName("alice", "bob")

	alice := dialGateway(t, srv, "alice")
	bob := dialGateway(t, srv, "bob")
	require.Equal(t, EventUserOnline, readEvent(t, alice)["type"])

	sendEvent(t, alice, map[string]any{"type": EventJoinRoom, "roomName": room})
	sendEvent(t, bob, map[string]any{"type": EventJoinRoom, "roomName": room})
	waitForRoomMembers(t, hub, room, 2)

	sendEvent(t, bob, map[string]any{"type": EventStartTyping, "roomName": room})
	ev := readEvent(t, alice)
	require.Equal(t, EventUserTyping, ev["type"])
	require.Equal(t, "bob", ev["userId"])

	sendEvent(t, bob, map[string]any{"type": EventStopTyping, "roomName": room})
	ev = readEvent(t, alice)
	require.Equal(t, EventStoppedTyping, ev["type"])
}
