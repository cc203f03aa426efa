package repository

import (
	"context"

	"github.com/google/uuid"

	"tabletop_session/internal/models"
	"tabletop_session/internal/storage"
)

type MessageRepository interface {
	Create(ctx context.Context, message *models.ChatMessage) error
	// FindRecentByRoom returns up to limit messages, oldest first.
	FindRecentByRoom(ctx context.Context, roomID uuid.UUID, limit int) ([]models.ChatMessage, error)
}

type messageRepository struct {
	baseRepository
}

func NewMessageRepository(db *storage.PostgresDB) MessageRepository {
	return &messageRepository{baseRepository: newBaseRepository(db)}
}

func (r *messageRepository) Create(ctx context.Context, message *models.ChatMessage) error {
	return translateError(r.conn(ctx).Create(message).Error)
}

func (r *messageRepository) FindRecentByRoom(ctx context.Context, roomID uuid.UUID, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := r.conn(ctx).
		Where("room_id = ?", roomID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, translateError(err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
