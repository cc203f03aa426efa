package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tabletop_session/internal/models"
	"tabletop_session/internal/service"
)

// RoomHandler serves the room membership routes.
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler creates the room handler.
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

type CreateRoomInput struct {
	Name            string `json:"name" binding:"required,min=1,max=50"`
	Password        string `json:"password" binding:"required,min=4,max=20"`
	MaxParticipants int    `json:"maxParticipants" binding:"omitempty,min=2,max=8"`
}

type JoinRoomInput struct {
	Password string `json:"password" binding:"required,min=4,max=20"`
}

type TransferCreatorInput struct {
	NewCreatorID uint `json:"newCreatorId" binding:"required"`
}

type UpdateRoleInput struct {
	Role models.ParticipantRole `json:"role" binding:"required,oneof=GM PLAYER"`
}

// ListRooms handles GET /api/rooms.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.roomService.ListRooms(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// CreateRoom handles POST /api/rooms.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var input CreateRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), userID, service.CreateRoomInput{
		Name:            input.Name,
		Password:        input.Password,
		MaxParticipants: input.MaxParticipants,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Room created", "room": room})
}

// GetRoom handles GET /api/rooms/:id.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	room, err := h.roomService.GetRoom(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// ListParticipants handles GET /api/rooms/:id/participants.
func (h *RoomHandler) ListParticipants(c *gin.Context) {
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	participants, err := h.roomService.ListParticipants(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

// JoinRoom handles POST /api/rooms/:id/join.
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	var input JoinRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	room, err := h.roomService.JoinRoom(c.Request.Context(), roomID, userID, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Joined room", "room": room})
}

// LeaveRoom handles POST /api/rooms/:id/leave.
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	if err := h.roomService.LeaveRoom(c.Request.Context(), userID, roomID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Left room"})
}

// DeleteRoom handles DELETE /api/rooms/:id.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}

	if err := h.roomService.DeleteRoom(c.Request.Context(), roomID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Room deleted"})
}

// TransferCreator handles POST /api/rooms/:id/transfer.
func (h *RoomHandler) TransferCreator(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	var input TransferCreatorInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	room, err := h.roomService.TransferCreator(c.Request.Context(), roomID, userID, input.NewCreatorID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Creator transferred", "room": room})
}

// UpdateParticipantRole handles PATCH /api/rooms/:id/participants/:userId/role.
func (h *RoomHandler) UpdateParticipantRole(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := roomIDParam(c)
	if !ok {
		return
	}
	targetID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil {
		bindError(c, err)
		return
	}
	var input UpdateRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	room, err := h.roomService.UpdateParticipantRole(c.Request.Context(), roomID, userID, uint(targetID), input.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role updated", "room": room})
}
