package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"tabletop_session/internal/events"
	"tabletop_session/internal/models"
)

const (
	maxMessageSize = 4096
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	writeWait      = 10 * time.Second
	sendBufferSize = 256
)

var (
	ErrBackpressure     = errors.New("send queue full")
	ErrConnectionClosed = errors.New("connection closed")
)

// Client → server event types.
const (
	EventJoinRoom    = "joinRoom"
	EventLeaveRoom   = "leaveRoom"
	EventSendMessage = "sendMessage"
	EventMoveToken   = "moveToken"
	EventPing        = "ping"
)

// Server → client event types.
const (
	EventJoinedRoom  = "joinedRoom"
	EventLeftRoom    = "leftRoom"
	EventNewMessage  = "newMessage"
	EventTokenMoved  = "tokenMoved"
	EventRoomDeleted = "roomDeleted"
	EventPong        = "pong"
	EventError       = "error"
)

type ChatSender interface {
	CreateMessage(ctx context.Context, roomID uuid.UUID, senderID uint, content string) (*models.ChatMessage, error)
}

type TokenMover interface {
	MoveToken(ctx context.Context, roomID, tokenID uuid.UUID, userID uint, x, y float64) (*models.Token, error)
}

// Client is one live connection of an authenticated user.
type Client struct {
	ID     string
	UserID uint

	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newClient(conn *websocket.Conn, userID uint) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
	}
}

// TrySend queues a frame without blocking.
func (c *Client) TrySend(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- b:
		return nil
	default:
		return ErrBackpressure
	}
}

// Close closes the send queue and the socket. Later calls are no-ops.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

type inboundEvent struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"roomId"`
	Payload json.RawMessage `json:"payload"`
}

type roomEvent struct {
	Type   string    `json:"type"`
	RoomID uuid.UUID `json:"roomId"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type newMessageEvent struct {
	Type    string              `json:"type"`
	RoomID  uuid.UUID           `json:"roomId"`
	Message *models.ChatMessage `json:"message"`
}

type tokenMovedEvent struct {
	Type    string    `json:"type"`
	RoomID  uuid.UUID `json:"roomId"`
	TokenID uuid.UUID `json:"tokenId"`
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
}

type sendMessagePayload struct {
	Content string `json:"content"`
}

type moveTokenPayload struct {
	TokenID uuid.UUID `json:"tokenId"`
	X       float64   `json:"x"`
	Y       float64   `json:"y"`
}

// WebSocketService is the live session gateway. Every broadcast-producing
// action needs both an active membership (store) and this connection's
// presence in the room (tracker).
type WebSocketService struct {
	membership MembershipChecker
	chat       ChatSender
	tokens     TokenMover
	presence   *PresenceTracker

	clients    map[string]*Client
	clientsMux sync.RWMutex
}

// NewWebSocketService creates the gateway. It must be subscribed to room
// events so committed leaves and deletes reach presence.
func NewWebSocketService(membership MembershipChecker, chat ChatSender, tokens TokenMover, presence *PresenceTracker) *WebSocketService {
	return &WebSocketService{
		membership: membership,
		chat:       chat,
		tokens:     tokens,
		presence:   presence,
		clients:    make(map[string]*Client),
	}
}

// HandleConnection serves an authenticated connection until it closes.
// Presence cleanup runs on every exit path.
func (s *WebSocketService) HandleConnection(ctx context.Context, conn *websocket.Conn, userID uint) {
	client := newClient(conn, userID)
	s.addClient(client)
	logger := log.With().Str("module", "gateway").Str("conn_id", client.ID).Uint("user_id", userID).Logger()
	logger.Info().Msg("connection opened")

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("connection handler panicked")
		}
		rooms := s.presence.RemoveConnection(userID, client.ID)
		s.removeClient(client)
		client.Close()
		logger.Info().Int("rooms", len(rooms)).Msg("connection closed")
	}()

	go s.writePump(client)
	s.readPump(ctx, client)
}

func (s *WebSocketService) readPump(ctx context.Context, client *Client) {
	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "gateway").Str("conn_id", client.ID).Msg("unexpected close")
			}
			return
		}
		s.dispatch(ctx, client, data)
	}
}

func (s *WebSocketService) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				client.Close()
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.Close()
				return
			}
		}
	}
}

func (s *WebSocketService) dispatch(ctx context.Context, client *Client, data []byte) {
	var env inboundEvent
	if err := json.Unmarshal(data, &env); err != nil {
		s.sendError(client, ErrMalformedEvent)
		return
	}

	switch env.Type {
	case EventJoinRoom:
		s.handleJoinRoom(ctx, client, env)
	case EventLeaveRoom:
		s.handleLeaveRoom(client, env)
	case EventSendMessage:
		s.handleSendMessage(ctx, client, env)
	case EventMoveToken:
		s.handleMoveToken(ctx, client, env)
	case EventPing:
		s.sendJSON(client, map[string]string{"type": EventPong})
	default:
		log.Warn().Str("module", "gateway").Str("type", env.Type).Msg("unknown event")
		s.sendError(client, newError(KindInvalidInput, "UNKNOWN_EVENT", "Unknown event type: "+env.Type))
	}
}

func (s *WebSocketService) handleJoinRoom(ctx context.Context, client *Client, env inboundEvent) {
	roomID, err := uuid.Parse(env.RoomID)
	if err != nil {
		s.sendError(client, ErrInvalidRoomID)
		return
	}
	if _, err := s.membership.EnsureParticipant(ctx, roomID, client.UserID); err != nil {
		s.sendError(client, err)
		return
	}

	s.presence.AddToRoom(roomID, client.UserID, client.ID)
	// A leave or delete that committed after the first check has already
	// been published, so its cleanup would miss this entry.
	if _, err := s.membership.EnsureParticipant(ctx, roomID, client.UserID); err != nil {
		s.presence.RemoveConnectionFromRoom(roomID, client.UserID, client.ID)
		s.sendError(client, err)
		return
	}
	s.sendJSON(client, roomEvent{Type: EventJoinedRoom, RoomID: roomID})
}

func (s *WebSocketService) handleLeaveRoom(client *Client, env inboundEvent) {
	roomID, err := uuid.Parse(env.RoomID)
	if err != nil {
		s.sendError(client, ErrInvalidRoomID)
		return
	}
	s.presence.RemoveConnectionFromRoom(roomID, client.UserID, client.ID)
	s.sendJSON(client, roomEvent{Type: EventLeftRoom, RoomID: roomID})
}

func (s *WebSocketService) handleSendMessage(ctx context.Context, client *Client, env inboundEvent) {
	roomID, err := s.authorizeAction(ctx, client, env.RoomID)
	if err != nil {
		s.sendError(client, err)
		return
	}

	var payload sendMessagePayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		s.sendError(client, ErrInvalidMessage)
		return
	}
	msg, err := s.chat.CreateMessage(ctx, roomID, client.UserID, payload.Content)
	if err != nil {
		s.sendError(client, err)
		return
	}

	s.BroadcastToRoom(roomID, newMessageEvent{Type: EventNewMessage, RoomID: roomID, Message: msg})
}

func (s *WebSocketService) handleMoveToken(ctx context.Context, client *Client, env inboundEvent) {
	roomID, err := s.authorizeAction(ctx, client, env.RoomID)
	if err != nil {
		s.sendError(client, err)
		return
	}

	var payload moveTokenPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil || payload.TokenID == uuid.Nil {
		s.sendError(client, ErrTokenNotFound)
		return
	}
	token, err := s.tokens.MoveToken(ctx, roomID, payload.TokenID, client.UserID, payload.X, payload.Y)
	if err != nil {
		s.sendError(client, err)
		return
	}

	s.BroadcastToRoom(roomID, tokenMovedEvent{
		Type:    EventTokenMoved,
		RoomID:  roomID,
		TokenID: token.ID,
		X:       token.X,
		Y:       token.Y,
	})
}

// authorizeAction checks persisted membership first, then that this very
// connection has joined the room.
func (s *WebSocketService) authorizeAction(ctx context.Context, client *Client, rawRoomID string) (uuid.UUID, error) {
	roomID, err := uuid.Parse(rawRoomID)
	if err != nil {
		return uuid.Nil, ErrInvalidRoomID
	}
	if _, err := s.membership.EnsureParticipant(ctx, roomID, client.UserID); err != nil {
		return uuid.Nil, err
	}
	if !s.presence.IsPresent(roomID, client.UserID, client.ID) {
		return uuid.Nil, ErrNotInRoom
	}
	return roomID, nil
}

// BroadcastToRoom sends v to every connection attached to the room. A client
// whose queue is full gets disconnected.
func (s *WebSocketService) BroadcastToRoom(roomID uuid.UUID, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("broadcast marshal")
		return
	}

	for _, connID := range s.presence.Connections(roomID) {
		client := s.getClient(connID)
		if client == nil {
			continue
		}
		if err := client.TrySend(data); errors.Is(err, ErrBackpressure) {
			log.Warn().Str("module", "gateway").Str("conn_id", connID).Msg("send queue full, closing connection")
			client.Close()
		}
	}
}

// Publish keeps presence in line with committed membership changes.
func (s *WebSocketService) Publish(_ context.Context, event events.RoomEvent) {
	switch event.Type {
	case events.RoomLeft:
		for _, connID := range s.presence.RemoveFromRoom(event.RoomID, event.UserID) {
			if client := s.getClient(connID); client != nil {
				s.sendJSON(client, roomEvent{Type: EventLeftRoom, RoomID: event.RoomID})
			}
		}
	case events.RoomDeleted:
		for _, connID := range s.presence.DropRoom(event.RoomID) {
			if client := s.getClient(connID); client != nil {
				s.sendJSON(client, roomEvent{Type: EventRoomDeleted, RoomID: event.RoomID})
			}
		}
	}
}

// Shutdown closes every live connection.
func (s *WebSocketService) Shutdown() {
	s.clientsMux.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMux.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}

// ClientCount returns the number of live connections.
func (s *WebSocketService) ClientCount() int {
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()
	return len(s.clients)
}

func (s *WebSocketService) sendJSON(client *Client, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("sendJSON marshal")
		return
	}
	if err := client.TrySend(data); err != nil {
		log.Debug().Err(err).Str("module", "gateway").Str("conn_id", client.ID).Msg("frame dropped")
	}
}

func (s *WebSocketService) sendError(client *Client, err error) {
	s.sendJSON(client, errorEvent{Type: EventError, Message: ErrorMessage(err)})
}

func (s *WebSocketService) addClient(client *Client) {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()
	s.clients[client.ID] = client
}

func (s *WebSocketService) removeClient(client *Client) {
	s.clientsMux.Lock()
	defer s.clientsMux.Unlock()
	delete(s.clients, client.ID)
}

func (s *WebSocketService) getClient(id string) *Client {
	s.clientsMux.RLock()
	defer s.clientsMux.RUnlock()
	return s.clients[id]
}
