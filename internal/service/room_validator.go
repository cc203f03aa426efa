package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"tabletop_session/internal/models"
	"tabletop_session/internal/repository"
)

// RoomValidator checks room invariants. It only reads from the store;
// RoomService applies the mutations once a check has passed.
type RoomValidator struct {
	participants repository.ParticipantRepository
}

// NewRoomValidator creates a validator backed by the membership store.
func NewRoomValidator(participants repository.ParticipantRepository) *RoomValidator {
	return &RoomValidator{participants: participants}
}

// CreatorAuthority fails with ErrNotRoomCreator unless userID created the room.
func (v *RoomValidator) CreatorAuthority(room *models.Room, userID uint) error {
	if !room.IsCreator(userID) {
		return ErrNotRoomCreator
	}
	return nil
}

// SingleRoomParticipation fails if the user is an active participant anywhere.
func (v *RoomValidator) SingleRoomParticipation(ctx context.Context, userID uint) error {
	n, err := v.participants.CountActiveByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("count active memberships: %w", err)
	}
	if n > 0 {
		return ErrAlreadyInRoom
	}
	return nil
}

// PasswordMatch compares the supplied password with the stored bcrypt hash.
func (v *RoomValidator) PasswordMatch(room *models.Room, supplied string) error {
	if room.Password == "" || supplied == "" {
		return ErrPasswordRequired
	}
	if err := bcrypt.CompareHashAndPassword([]byte(room.Password), []byte(supplied)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}

// Capacity fails with ErrRoomFull once active members reach the room limit.
func (v *RoomValidator) Capacity(ctx context.Context, room *models.Room) error {
	n, err := v.participants.CountActiveByRoom(ctx, room.ID)
	if err != nil {
		return fmt.Errorf("count room participants: %w", err)
	}
	if n >= int64(room.MaxParticipants) {
		return ErrRoomFull
	}
	return nil
}

// TransferTarget checks that creatorship can move from currentUserID to newCreatorID.
func (v *RoomValidator) TransferTarget(ctx context.Context, room *models.Room, currentUserID, newCreatorID uint) error {
	if err := v.CreatorAuthority(room, currentUserID); err != nil {
		return err
	}
	if currentUserID == newCreatorID {
		return ErrCannotTransferToSelf
	}
	return v.targetInRoom(ctx, room, newCreatorID)
}

// RoleChangeTarget rejects an unknown role before looking at authority, so
// malformed input gets the same answer from every caller.
func (v *RoomValidator) RoleChangeTarget(ctx context.Context, room *models.Room, currentUserID, targetUserID uint, role models.ParticipantRole) error {
	if !role.Valid() {
		return ErrInvalidParticipantRole
	}
	if err := v.CreatorAuthority(room, currentUserID); err != nil {
		return err
	}
	return v.targetInRoom(ctx, room, targetUserID)
}

// Join runs the join checks in order: membership elsewhere, password, capacity.
func (v *RoomValidator) Join(ctx context.Context, room *models.Room, userID uint, password string) error {
	if err := v.SingleRoomParticipation(ctx, userID); err != nil {
		return err
	}
	if err := v.PasswordMatch(room, password); err != nil {
		return err
	}
	return v.Capacity(ctx, room)
}

func (v *RoomValidator) targetInRoom(ctx context.Context, room *models.Room, userID uint) error {
	_, err := v.participants.FindActive(ctx, room.ID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTargetNotInRoom
	}
	if err != nil {
		return fmt.Errorf("find target participant: %w", err)
	}
	return nil
}
