package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"tabletop_session/internal/models"
	"tabletop_session/internal/repository"
)

const (
	maxMessageLength   = 1000
	defaultRecentLimit = 50
	maxRecentLimit     = 200
)

type ChatService struct {
	messages   repository.MessageRepository
	membership MembershipChecker
}

// NewChatService creates the chat service.
func NewChatService(messages repository.MessageRepository, membership MembershipChecker) *ChatService {
	return &ChatService{messages: messages, membership: membership}
}

// CreateMessage persists a chat line from an active participant.
func (s *ChatService) CreateMessage(ctx context.Context, roomID uuid.UUID, senderID uint, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > maxMessageLength {
		return nil, ErrInvalidMessage
	}
	if _, err := s.membership.EnsureParticipant(ctx, roomID, senderID); err != nil {
		return nil, err
	}

	msg := models.NewChatMessage(roomID, senderID, content)
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	return msg, nil
}

// RecentMessages returns the latest messages of the room, oldest first.
func (s *ChatService) RecentMessages(ctx context.Context, roomID uuid.UUID, userID uint, limit int) ([]models.ChatMessage, error) {
	if _, err := s.membership.EnsureParticipant(ctx, roomID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	msgs, err := s.messages.FindRecentByRoom(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	return msgs, nil
}
