package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabletop_session/internal/models"
	"tabletop_session/internal/repository"
)

func TestStore_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repos := s.Repositories()
	roomID := uuid.New()

	err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, repos.Participant.Create(ctx, &models.RoomParticipant{RoomID: roomID, UserID: 1}))
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.Empty(t, s.AllParticipants())

	require.NoError(t, repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return repos.Participant.Create(ctx, &models.RoomParticipant{RoomID: roomID, UserID: 1})
	}))
	assert.Len(t, s.ActiveParticipants(), 1)
}

func TestStore_RollbackKeepsWritesOutsideTx(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repos := s.Repositories()
	roomID := uuid.New()

	inTx := make(chan struct{})
	release := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
			close(inTx)
			<-release
			return errors.New("boom")
		})
	}()
	<-inTx

	writesDone := make(chan error, 1)
	go func() {
		if err := repos.Message.Create(ctx, &models.ChatMessage{RoomID: roomID, SenderID: 1, Content: "hi"}); err != nil {
			writesDone <- err
			return
		}
		writesDone <- repos.User.Create(ctx, &models.User{Email: "a@example.com", Nickname: "a", Password: "h"})
	}()

	close(release)
	require.Error(t, <-txDone)
	require.NoError(t, <-writesDone)

	msgs, err := repos.Message.FindRecentByRoom(ctx, roomID, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	_, err = repos.User.FindByEmail(ctx, "a@example.com")
	assert.NoError(t, err)
}

func TestStore_SingleActiveMembershipConstraint(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	first := &models.RoomParticipant{RoomID: uuid.New(), UserID: 1}
	require.NoError(t, repos.Participant.Create(ctx, first))

	err := repos.Participant.Create(ctx, &models.RoomParticipant{RoomID: uuid.New(), UserID: 1})
	assert.ErrorIs(t, err, repository.ErrDuplicateEntry)

	require.NoError(t, repos.Participant.Leave(ctx, first))
	assert.NoError(t, repos.Participant.Create(ctx, &models.RoomParticipant{RoomID: uuid.New(), UserID: 1}))
}

func TestStore_RoomSoftDelete(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	room := &models.Room{Name: "r", Password: "h", MaxParticipants: 2}
	require.NoError(t, repos.Room.Create(ctx, room))
	require.NoError(t, repos.Room.SoftDelete(ctx, room.ID))

	_, err := repos.Room.FindByID(ctx, room.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	locked, err := repos.Room.FindByIDForUpdate(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, locked.IsDeleted())
}
