package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tabletop_session/internal/service"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	userService *service.UserService
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(userService *service.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Nickname string `json:"nickname" binding:"required,min=1,max=30"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// Register handles POST /api/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.userService.Register(c.Request.Context(), input.Email, input.Nickname, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User registered", "user": user})
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}

	token, err := h.userService.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		if service.KindOf(err) == service.KindInvalidInput {
			c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrorMessage(err), "code": service.ErrInvalidCredentials.Code})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
