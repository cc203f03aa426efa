package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tabletop_session/internal/models"
	"tabletop_session/internal/repository"
	"tabletop_session/internal/repository/mocks"
	"tabletop_session/internal/service"
)

func newTestRoom(t *testing.T, creatorID uint, password string, max int) *models.Room {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.Room{
		ID:              uuid.New(),
		Name:            "Test Room",
		Password:        string(hash),
		MaxParticipants: max,
		CreatorID:       &creatorID,
	}
}

func TestRoomValidator_CreatorAuthority(t *testing.T) {
	v := service.NewRoomValidator(new(mocks.ParticipantRepository))
	room := newTestRoom(t, 1, "1234", 2)

	assert.NoError(t, v.CreatorAuthority(room, 1))
	assert.ErrorIs(t, v.CreatorAuthority(room, 2), service.ErrNotRoomCreator)

	room.CreatorID = nil
	assert.ErrorIs(t, v.CreatorAuthority(room, 1), service.ErrNotRoomCreator)
}

func TestRoomValidator_SingleRoomParticipation(t *testing.T) {
	ctx := context.Background()
	repo := new(mocks.ParticipantRepository)
	repo.On("CountActiveByUser", ctx, uint(1)).Return(int64(0), nil).Once()
	repo.On("CountActiveByUser", ctx, uint(2)).Return(int64(1), nil).Once()
	repo.On("CountActiveByUser", ctx, uint(3)).Return(int64(0), errors.New("connection reset")).Once()
	v := service.NewRoomValidator(repo)

	assert.NoError(t, v.SingleRoomParticipation(ctx, 1))
	assert.ErrorIs(t, v.SingleRoomParticipation(ctx, 2), service.ErrAlreadyInRoom)

	err := v.SingleRoomParticipation(ctx, 3)
	require.Error(t, err)
	assert.Equal(t, service.KindInternal, service.KindOf(err))

	repo.AssertExpectations(t)
}

func TestRoomValidator_PasswordMatch(t *testing.T) {
	v := service.NewRoomValidator(new(mocks.ParticipantRepository))
	room := newTestRoom(t, 1, "1234", 2)

	assert.NoError(t, v.PasswordMatch(room, "1234"))
	assert.ErrorIs(t, v.PasswordMatch(room, "4321"), service.ErrPasswordMismatch)
	assert.ErrorIs(t, v.PasswordMatch(room, ""), service.ErrPasswordRequired)

	room.Password = ""
	assert.ErrorIs(t, v.PasswordMatch(room, "1234"), service.ErrPasswordRequired)
}

func TestRoomValidator_Capacity(t *testing.T) {
	ctx := context.Background()
	room := newTestRoom(t, 1, "1234", 2)
	repo := new(mocks.ParticipantRepository)
	repo.On("CountActiveByRoom", ctx, room.ID).Return(int64(1), nil).Once()
	repo.On("CountActiveByRoom", ctx, room.ID).Return(int64(2), nil).Once()
	v := service.NewRoomValidator(repo)

	assert.NoError(t, v.Capacity(ctx, room))
	assert.ErrorIs(t, v.Capacity(ctx, room), service.ErrRoomFull)
	repo.AssertExpectations(t)
}

func TestRoomValidator_TransferTarget(t *testing.T) {
	ctx := context.Background()
	room := newTestRoom(t, 1, "1234", 4)
	repo := new(mocks.ParticipantRepository)
	repo.On("FindActive", ctx, room.ID, uint(2)).Return(&models.RoomParticipant{RoomID: room.ID, UserID: 2}, nil)
	repo.On("FindActive", ctx, room.ID, uint(3)).Return(nil, repository.ErrNotFound)
	v := service.NewRoomValidator(repo)

	assert.NoError(t, v.TransferTarget(ctx, room, 1, 2))
	assert.ErrorIs(t, v.TransferTarget(ctx, room, 2, 1), service.ErrNotRoomCreator)
	assert.ErrorIs(t, v.TransferTarget(ctx, room, 1, 1), service.ErrCannotTransferToSelf)
	assert.ErrorIs(t, v.TransferTarget(ctx, room, 1, 3), service.ErrTargetNotInRoom)
}

func TestRoomValidator_RoleChangeTarget_RoleCheckedFirst(t *testing.T) {
	ctx := context.Background()
	room := newTestRoom(t, 1, "1234", 4)
	repo := new(mocks.ParticipantRepository)
	repo.On("FindActive", ctx, room.ID, uint(2)).Return(&models.RoomParticipant{RoomID: room.ID, UserID: 2}, nil)
	v := service.NewRoomValidator(repo)

	// A non-creator sending a bad role still hears about the role.
	assert.ErrorIs(t, v.RoleChangeTarget(ctx, room, 9, 2, "WIZARD"), service.ErrInvalidParticipantRole)
	assert.ErrorIs(t, v.RoleChangeTarget(ctx, room, 9, 2, models.RoleGM), service.ErrNotRoomCreator)
	assert.NoError(t, v.RoleChangeTarget(ctx, room, 1, 2, models.RoleGM))
	repo.AssertNotCalled(t, "FindActive", ctx, room.ID, uint(9))
}

func TestRoomValidator_Join_Order(t *testing.T) {
	ctx := context.Background()
	room := newTestRoom(t, 1, "1234", 2)

	t.Run("membership elsewhere wins over a wrong password", func(t *testing.T) {
		repo := new(mocks.ParticipantRepository)
		repo.On("CountActiveByUser", ctx, uint(5)).Return(int64(1), nil).Once()
		v := service.NewRoomValidator(repo)

		assert.ErrorIs(t, v.Join(ctx, room, 5, "wrong"), service.ErrAlreadyInRoom)
		repo.AssertNotCalled(t, "CountActiveByRoom", ctx, room.ID)
	})

	t.Run("password checked before capacity", func(t *testing.T) {
		repo := new(mocks.ParticipantRepository)
		repo.On("CountActiveByUser", ctx, uint(5)).Return(int64(0), nil).Once()
		v := service.NewRoomValidator(repo)

		assert.ErrorIs(t, v.Join(ctx, room, 5, "wrong"), service.ErrPasswordMismatch)
		repo.AssertNotCalled(t, "CountActiveByRoom", ctx, room.ID)
	})

	t.Run("full room", func(t *testing.T) {
		repo := new(mocks.ParticipantRepository)
		repo.On("CountActiveByUser", ctx, uint(5)).Return(int64(0), nil).Once()
		repo.On("CountActiveByRoom", ctx, room.ID).Return(int64(2), nil).Once()
		v := service.NewRoomValidator(repo)

		assert.ErrorIs(t, v.Join(ctx, room, 5, "1234"), service.ErrRoomFull)
		repo.AssertExpectations(t)
	})
}
