package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"tabletop_session/internal/models"
	"tabletop_session/internal/repository"
)

var _ repository.TokenRepository = (*TokenRepository)(nil)

type TokenRepository struct {
	mock.Mock
}

func (m *TokenRepository) Create(ctx context.Context, token *models.Token) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *TokenRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Token, error) {
	args := m.Called(ctx, id)
	if t := args.Get(0); t != nil {
		return t.(*models.Token), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TokenRepository) FindByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Token, error) {
	args := m.Called(ctx, roomID)
	if ts := args.Get(0); ts != nil {
		return ts.([]models.Token), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TokenRepository) UpdatePosition(ctx context.Context, token *models.Token) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}
