package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tabletop_session/internal/service"
)

// ContentHandler serves chat history and the token map of a room.
type ContentHandler struct {
	chatService  *service.ChatService
	tokenService *service.TokenService
}

// NewContentHandler creates the chat history and token handler.
func NewContentHandler(chatService *service.ChatService, tokenService *service.TokenService) *ContentHandler {
	return &ContentHandler{chatService: chatService, tokenService: tokenService}
}

type CreateTokenInput struct {
	Name string  `json:"name" binding:"required,min=1,max=50"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (h *ContentHandler) ListMessages(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	messages, err := h.chatService.RecentMessages(c.Request.Context(), roomID, userID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *ContentHandler) ListTokens(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	tokens, err := h.tokenService.ListTokens(c.Request.Context(), roomID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

func (h *ContentHandler) CreateToken(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	var input CreateTokenInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	token, err := h.tokenService.CreateToken(c.Request.Context(), roomID, userID, input.Name, input.X, input.Y)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token})
}
