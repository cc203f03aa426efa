package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tabletop_session/internal/models"
	"tabletop_session/internal/repository"
	"tabletop_session/internal/repository/mocks"
	"tabletop_session/internal/service"
)

func TestTokenService_MoveToken(t *testing.T) {
	ctx := context.Background()
	roomID := uuid.New()
	owner := uint(1)
	tokenID := uuid.New()

	participants := new(mocks.ParticipantRepository)
	participants.On("FindActive", ctx, roomID, uint(1)).Return(&models.RoomParticipant{UserID: 1, Role: models.RolePlayer}, nil)
	participants.On("FindActive", ctx, roomID, uint(2)).Return(&models.RoomParticipant{UserID: 2, Role: models.RolePlayer}, nil)
	participants.On("FindActive", ctx, roomID, uint(3)).Return(&models.RoomParticipant{UserID: 3, Role: models.RoleGM}, nil)
	participants.On("FindActive", ctx, roomID, uint(4)).Return(nil, repository.ErrNotFound)

	newTokens := func() *mocks.TokenRepository {
		tokens := new(mocks.TokenRepository)
		tokens.On("FindByID", ctx, tokenID).Return(&models.Token{ID: tokenID, RoomID: roomID, OwnerID: &owner}, nil)
		tokens.On("UpdatePosition", ctx, mock.AnythingOfType("*models.Token")).Return(nil)
		return tokens
	}

	tests := []struct {
		name    string
		userID  uint
		wantErr error
	}{
		{name: "owner", userID: 1},
		{name: "gm", userID: 3},
		{name: "other player", userID: 2, wantErr: service.ErrNoMovePermission},
		{name: "not a participant", userID: 4, wantErr: service.ErrNoMovePermission},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := newTokens()
			svc := service.NewTokenService(tokens, service.NewMembership(participants))

			token, err := svc.MoveToken(ctx, roomID, tokenID, tt.userID, 3, 4)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				tokens.AssertNotCalled(t, "UpdatePosition", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 3.0, token.X)
			assert.Equal(t, 4.0, token.Y)
		})
	}
}

func TestTokenService_MoveToken_OtherRoom(t *testing.T) {
	ctx := context.Background()
	tokenID := uuid.New()
	tokens := new(mocks.TokenRepository)
	tokens.On("FindByID", ctx, tokenID).Return(&models.Token{ID: tokenID, RoomID: uuid.New()}, nil)
	svc := service.NewTokenService(tokens, service.NewMembership(new(mocks.ParticipantRepository)))

	_, err := svc.MoveToken(ctx, uuid.New(), tokenID, 1, 0, 0)
	assert.ErrorIs(t, err, service.ErrTokenNotFound)
}

func TestTokenService_CreateToken_InvalidName(t *testing.T) {
	svc := service.NewTokenService(new(mocks.TokenRepository), service.NewMembership(new(mocks.ParticipantRepository)))

	_, err := svc.CreateToken(context.Background(), uuid.New(), 1, "   ", 0, 0)
	assert.ErrorIs(t, err, service.ErrInvalidTokenName)
}
