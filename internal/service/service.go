package service

import (
	"tabletop_session/internal/events"
	"tabletop_session/internal/repository"
	"tabletop_session/internal/utils"
)

type Services struct {
	User       *UserService
	Room       *RoomService
	Chat       *ChatService
	Token      *TokenService
	Membership *Membership
	Presence   *PresenceTracker
	WebSocket  *WebSocketService
}

type Options struct {
	JWT        *utils.JWTManager
	BcryptCost int
	Attempts   PasswordAttemptLimiter
	// Publisher receives room events in addition to the gateway.
	Publisher events.Publisher
}

// NewServices builds every service over one set of repositories and
// subscribes the gateway to room events.
func NewServices(repos *repository.Repositories, opts Options) *Services {
	membership := NewMembership(repos.Participant)
	presence := NewPresenceTracker()

	chatService := NewChatService(repos.Message, membership)
	tokenService := NewTokenService(repos.Token, membership)
	wsService := NewWebSocketService(membership, chatService, tokenService, presence)

	publisher := events.Multi{wsService}
	if opts.Publisher != nil {
		publisher = append(publisher, opts.Publisher)
	}

	return &Services{
		User:       NewUserService(repos.User, opts.JWT, opts.BcryptCost),
		Room:       NewRoomService(repos, opts.Attempts, publisher, opts.BcryptCost),
		Chat:       chatService,
		Token:      tokenService,
		Membership: membership,
		Presence:   presence,
		WebSocket:  wsService,
	}
}
