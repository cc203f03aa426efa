package repository

import (
	"context"

	"github.com/google/uuid"

	"tabletop_session/internal/models"
	"tabletop_session/internal/storage"
)

type TokenRepository interface {
	Create(ctx context.Context, token *models.Token) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Token, error)
	FindByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Token, error)
	UpdatePosition(ctx context.Context, token *models.Token) error
}

type tokenRepository struct {
	baseRepository
}

func NewTokenRepository(db *storage.PostgresDB) TokenRepository {
	return &tokenRepository{baseRepository: newBaseRepository(db)}
}

func (r *tokenRepository) Create(ctx context.Context, token *models.Token) error {
	return translateError(r.conn(ctx).Create(token).Error)
}

func (r *tokenRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Token, error) {
	var token models.Token
	if err := r.conn(ctx).First(&token, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &token, nil
}

func (r *tokenRepository) FindByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Token, error) {
	var tokens []models.Token
	err := r.conn(ctx).Where("room_id = ?", roomID).Order("created_at ASC").Find(&tokens).Error
	return tokens, translateError(err)
}

func (r *tokenRepository) UpdatePosition(ctx context.Context, token *models.Token) error {
	return translateError(r.conn(ctx).Model(token).
		Updates(map[string]interface{}{"x": token.X, "y": token.Y}).Error)
}
