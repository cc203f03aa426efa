package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tabletop_session/internal/api/handlers"
	"tabletop_session/internal/middleware"
	"tabletop_session/internal/service"
	"tabletop_session/internal/utils"
	"tabletop_session/pkg/config"
)

// SetupRoutes registers every route on r. rateLimiter may be nil, in which
// case rate limiting is skipped even when enabled in cfg.
func SetupRoutes(r *gin.Engine, services *service.Services, jwt *utils.JWTManager, rateLimiter middleware.Allower, cfg config.RateLimitConfig) {
	authHandler := handlers.NewAuthHandler(services.User)
	roomHandler := handlers.NewRoomHandler(services.Room)
	contentHandler := handlers.NewContentHandler(services.Chat, services.Token)
	wsHandler := handlers.NewWebSocketHandler(services.WebSocket)

	r.Use(middleware.Logger())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	api := r.Group("/api")
	if cfg.Enabled && rateLimiter != nil {
		api.Use(middleware.RateLimit(rateLimiter, cfg.Requests, cfg.Window))
	}

	// Public routes
	{
		api.POST("/register", authHandler.Register)
		api.POST("/login", authHandler.Login)

		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	authorized := api.Group("/")
	authorized.Use(middleware.AuthMiddleware(jwt))
	{
		rooms := authorized.Group("/rooms")
		{
			rooms.GET("", roomHandler.ListRooms)
			rooms.POST("", roomHandler.CreateRoom)
			rooms.GET("/:id", roomHandler.GetRoom)
			rooms.DELETE("/:id", roomHandler.DeleteRoom)

			// Membership
			rooms.GET("/:id/participants", roomHandler.ListParticipants)
			rooms.POST("/:id/join", roomHandler.JoinRoom)
			rooms.POST("/:id/leave", roomHandler.LeaveRoom)
			rooms.POST("/:id/transfer", roomHandler.TransferCreator)
			rooms.PATCH("/:id/participants/:userId/role", roomHandler.UpdateParticipantRole)

			// Session content
			rooms.GET("/:id/messages", contentHandler.ListMessages)
			rooms.GET("/:id/tokens", contentHandler.ListTokens)
			rooms.POST("/:id/tokens", contentHandler.CreateToken)
		}

		authorized.GET("/ws", wsHandler.HandleWebSocket)
	}
}
