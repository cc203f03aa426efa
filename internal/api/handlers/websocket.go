package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"tabletop_session/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict to the configured frontend origin once it is part of the config.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler upgrades authenticated requests and hands the connection
// to the gateway. Rooms are joined over the socket, not in the handshake.
type WebSocketHandler struct {
	gateway *service.WebSocketService
}

// NewWebSocketHandler creates the upgrade handler.
func NewWebSocketHandler(gateway *service.WebSocketService) *WebSocketHandler {
	return &WebSocketHandler{gateway: gateway}
}

// HandleWebSocket upgrades an authenticated request and serves it until close.
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		log.Warn().Err(err).Str("module", "gateway").Uint("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	h.gateway.HandleConnection(c.Request.Context(), conn, userID)
}
