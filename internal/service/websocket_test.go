package service_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tabletop_session/internal/models"
	"tabletop_session/internal/repository"
	"tabletop_session/internal/repository/memory"
	"tabletop_session/internal/service"
	"tabletop_session/internal/utils"
)

type gatewayFixture struct {
	repos    *repository.Repositories
	services *service.Services
	server   *httptest.Server
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	repos := memory.NewStore().Repositories()
	services := service.NewServices(repos, service.Options{
		JWT:        utils.NewJWTManager("test-secret", time.Hour),
		BcryptCost: bcrypt.MinCost,
	})

	server := serveGateway(t, services.WebSocket)
	return &gatewayFixture{repos: repos, services: services, server: server}
}

// serveGateway upgrades every request and authenticates it from ?user=.
func serveGateway(t *testing.T, gateway *service.WebSocketService) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.ParseUint(r.URL.Query().Get("user"), 10, 32)
		if err != nil {
			http.Error(w, "bad user", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		gateway.HandleConnection(context.Background(), conn, uint(userID))
	}))
	t.Cleanup(func() {
		gateway.Shutdown()
		server.Close()
	})
	return server
}

func (f *gatewayFixture) user(t *testing.T, nickname string) uint {
	t.Helper()
	u := &models.User{Email: nickname + "@example.com", Nickname: nickname, Password: "x"}
	require.NoError(t, f.repos.User.Create(context.Background(), u))
	return u.ID
}

func (f *gatewayFixture) dial(t *testing.T, userID uint) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?user=" + strconv.FormatUint(uint64(userID), 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func receive(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got map[string]any
	require.NoError(t, conn.ReadJSON(&got))
	return got
}

func joinOverSocket(t *testing.T, conn *websocket.Conn, roomID uuid.UUID) {
	t.Helper()
	send(t, conn, map[string]any{"type": "joinRoom", "roomId": roomID})
	got := receive(t, conn)
	require.Equal(t, "joinedRoom", got["type"], "got %v", got)
}

func chat(roomID uuid.UUID, content string) map[string]any {
	return map[string]any{
		"type":    "sendMessage",
		"roomId":  roomID,
		"payload": map[string]any{"content": content},
	}
}

func (f *gatewayFixture) roomWith(t *testing.T, creator uint, members ...uint) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	room, err := f.services.Room.CreateRoom(ctx, creator, service.CreateRoomInput{Name: "table", Password: "1234", MaxParticipants: 8})
	require.NoError(t, err)
	for _, m := range members {
		_, err := f.services.Room.JoinRoom(ctx, room.ID, m, "1234")
		require.NoError(t, err)
	}
	return room.ID
}

func TestGateway_Ping(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, f.user(t, "alice"))

	send(t, conn, map[string]any{"type": "ping"})
	assert.Equal(t, "pong", receive(t, conn)["type"])
}

func TestGateway_MalformedAndUnknownEvents(t *testing.T) {
	f := newGatewayFixture(t)
	conn := f.dial(t, f.user(t, "alice"))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	got := receive(t, conn)
	assert.Equal(t, "error", got["type"])
	assert.Equal(t, service.ErrMalformedEvent.Message, got["message"])

	send(t, conn, map[string]any{"type": "castSpell"})
	got = receive(t, conn)
	assert.Equal(t, "error", got["type"])
	assert.Contains(t, got["message"], "castSpell")
}

func TestGateway_JoinRequiresMembership(t *testing.T) {
	f := newGatewayFixture(t)
	alice, mallory := f.user(t, "alice"), f.user(t, "mallory")
	roomID := f.roomWith(t, alice)

	conn := f.dial(t, mallory)
	send(t, conn, map[string]any{"type": "joinRoom", "roomId": roomID})
	got := receive(t, conn)
	assert.Equal(t, "error", got["type"])
	assert.Equal(t, service.ErrNotParticipant.Message, got["message"])
	assert.False(t, f.services.Presence.IsUserPresent(roomID, mallory))
}

// leavesAfterFirstCheck reports membership once, as if a leave committed
// right after.
type leavesAfterFirstCheck struct {
	mu    sync.Mutex
	calls int
}

func (m *leavesAfterFirstCheck) EnsureParticipant(_ context.Context, roomID uuid.UUID, userID uint) (*models.RoomParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls > 1 {
		return nil, service.ErrNotParticipant
	}
	return &models.RoomParticipant{RoomID: roomID, UserID: userID, Role: models.RolePlayer}, nil
}

func TestGateway_JoinRacingLeaveLeavesNoPresence(t *testing.T) {
	presence := service.NewPresenceTracker()
	gateway := service.NewWebSocketService(&leavesAfterFirstCheck{}, nil, nil, presence)
	f := &gatewayFixture{server: serveGateway(t, gateway)}
	roomID := uuid.New()

	conn := f.dial(t, 7)
	send(t, conn, map[string]any{"type": "joinRoom", "roomId": roomID})
	got := receive(t, conn)
	assert.Equal(t, "error", got["type"])
	assert.Equal(t, service.ErrNotParticipant.Message, got["message"])
	assert.False(t, presence.IsUserPresent(roomID, 7))
	assert.Zero(t, presence.RoomCount())
}

func TestGateway_MessageBroadcast(t *testing.T) {
	f := newGatewayFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	roomID := f.roomWith(t, alice, bob)

	a, b := f.dial(t, alice), f.dial(t, bob)
	joinOverSocket(t, a, roomID)
	joinOverSocket(t, b, roomID)

	send(t, a, chat(roomID, "  hello table  "))
	for _, conn := range []*websocket.Conn{a, b} {
		got := receive(t, conn)
		require.Equal(t, "newMessage", got["type"], "got %v", got)
		msg := got["message"].(map[string]any)
		assert.Equal(t, "hello table", msg["content"])
		assert.Equal(t, float64(alice), msg["senderId"])
	}

	history, err := f.services.Chat.RecentMessages(context.Background(), roomID, bob, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestGateway_ActionNeedsPresenceOnThisConnection(t *testing.T) {
	f := newGatewayFixture(t)
	alice := f.user(t, "alice")
	roomID := f.roomWith(t, alice)

	joined, other := f.dial(t, alice), f.dial(t, alice)
	joinOverSocket(t, joined, roomID)

	send(t, other, chat(roomID, "from the second tab"))
	got := receive(t, other)
	assert.Equal(t, "error", got["type"])
	assert.Equal(t, service.ErrNotInRoom.Message, got["message"])

	send(t, joined, chat(roomID, "from the first tab"))
	assert.Equal(t, "newMessage", receive(t, joined)["type"])
}

func TestGateway_LeaveOverSocketKeepsMembership(t *testing.T) {
	f := newGatewayFixture(t)
	alice := f.user(t, "alice")
	roomID := f.roomWith(t, alice)

	conn := f.dial(t, alice)
	joinOverSocket(t, conn, roomID)

	send(t, conn, map[string]any{"type": "leaveRoom", "roomId": roomID})
	assert.Equal(t, "leftRoom", receive(t, conn)["type"])
	assert.False(t, f.services.Presence.IsUserPresent(roomID, alice))

	_, err := f.services.Membership.EnsureParticipant(context.Background(), roomID, alice)
	assert.NoError(t, err)
}

func TestGateway_StoreLeaveRevokesPresence(t *testing.T) {
	f := newGatewayFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	roomID := f.roomWith(t, alice, bob)

	b := f.dial(t, bob)
	joinOverSocket(t, b, roomID)

	require.NoError(t, f.services.Room.LeaveRoom(context.Background(), bob, roomID))
	got := receive(t, b)
	assert.Equal(t, "leftRoom", got["type"])
	assert.False(t, f.services.Presence.IsUserPresent(roomID, bob))

	send(t, b, chat(roomID, "still here?"))
	got = receive(t, b)
	assert.Equal(t, "error", got["type"])
	assert.Equal(t, service.ErrNotParticipant.Message, got["message"])
}

func TestGateway_RoomDeleted(t *testing.T) {
	f := newGatewayFixture(t)
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	roomID := f.roomWith(t, alice, bob)

	a, b := f.dial(t, alice), f.dial(t, bob)
	joinOverSocket(t, a, roomID)
	joinOverSocket(t, b, roomID)

	require.NoError(t, f.services.Room.DeleteRoom(context.Background(), roomID, alice))
	for _, conn := range []*websocket.Conn{a, b} {
		got := receive(t, conn)
		assert.Equal(t, "roomDeleted", got["type"])
		assert.Equal(t, roomID.String(), got["roomId"])
	}
	assert.Empty(t, f.services.Presence.Connections(roomID))
}

func TestGateway_MoveToken(t *testing.T) {
	f := newGatewayFixture(t)
	ctx := context.Background()
	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	roomID := f.roomWith(t, alice, bob)

	token, err := f.services.Token.CreateToken(ctx, roomID, alice, "goblin", 0, 0)
	require.NoError(t, err)

	a, b := f.dial(t, alice), f.dial(t, bob)
	joinOverSocket(t, a, roomID)
	joinOverSocket(t, b, roomID)

	move := func(x, y float64) map[string]any {
		return map[string]any{
			"type":    "moveToken",
			"roomId":  roomID,
			"payload": map[string]any{"tokenId": token.ID, "x": x, "y": y},
		}
	}

	send(t, b, move(1, 1))
	got := receive(t, b)
	assert.Equal(t, "error", got["type"])
	assert.Equal(t, service.ErrNoMovePermission.Message, got["message"])

	send(t, a, move(5, 7))
	for _, conn := range []*websocket.Conn{a, b} {
		got := receive(t, conn)
		require.Equal(t, "tokenMoved", got["type"], "got %v", got)
		assert.Equal(t, token.ID.String(), got["tokenId"])
		assert.Equal(t, 5.0, got["x"])
		assert.Equal(t, 7.0, got["y"])
	}
}

func TestGateway_DisconnectCleansPresence(t *testing.T) {
	f := newGatewayFixture(t)
	alice := f.user(t, "alice")
	roomID := f.roomWith(t, alice)

	conn := f.dial(t, alice)
	joinOverSocket(t, conn, roomID)
	require.True(t, f.services.Presence.IsUserPresent(roomID, alice))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return !f.services.Presence.IsUserPresent(roomID, alice) && f.services.WebSocket.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
