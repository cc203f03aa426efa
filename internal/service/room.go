package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"tabletop_session/internal/events"
	"tabletop_session/internal/models"
	"tabletop_session/internal/repository"
)

const maxRoomNameLength = 50

var (
	ErrInvalidRoomName = newError(KindInvalidInput, "INVALID_ROOM_NAME", "Room name must be between 1 and 50 characters")
	ErrInvalidCapacity = newError(KindInvalidInput, "INVALID_CAPACITY", "Room capacity must be between 2 and 8")
)

// PasswordAttemptLimiter tracks wrong room passwords per (room, user).
type PasswordAttemptLimiter interface {
	Blocked(ctx context.Context, roomID uuid.UUID, userID uint) (bool, error)
	RecordFailure(ctx context.Context, roomID uuid.UUID, userID uint) error
	Reset(ctx context.Context, roomID uuid.UUID, userID uint) error
}

type noopAttemptLimiter struct{}

func (noopAttemptLimiter) Blocked(context.Context, uuid.UUID, uint) (bool, error) { return false, nil }
func (noopAttemptLimiter) RecordFailure(context.Context, uuid.UUID, uint) error   { return nil }
func (noopAttemptLimiter) Reset(context.Context, uuid.UUID, uint) error           { return nil }

// NoopAttemptLimiter never blocks.
func NoopAttemptLimiter() PasswordAttemptLimiter { return noopAttemptLimiter{} }

type CreateRoomInput struct {
	Name            string
	Password        string
	MaxParticipants int
}

// RoomService is the transactional entry point for the room membership
// lifecycle. Every mutating method runs in a single transaction.
type RoomService struct {
	tx           repository.Transactor
	rooms        repository.RoomRepository
	participants repository.ParticipantRepository
	users        UserDirectory
	validator    *RoomValidator
	attempts     PasswordAttemptLimiter
	events       events.Publisher
	bcryptCost   int
}

// NewRoomService wires the room lifecycle. A nil limiter never blocks and a
// nil publisher drops events.
func NewRoomService(repos *repository.Repositories, attempts PasswordAttemptLimiter, publisher events.Publisher, bcryptCost int) *RoomService {
	if attempts == nil {
		attempts = NoopAttemptLimiter()
	}
	if publisher == nil {
		publisher = events.NewNopPublisher()
	}
	return &RoomService{
		tx:           repos.Tx,
		rooms:        repos.Room,
		participants: repos.Participant,
		users:        NewUserService(repos.User, nil, bcryptCost),
		validator:    NewRoomValidator(repos.Participant),
		attempts:     attempts,
		events:       publisher,
		bcryptCost:   bcryptCost,
	}
}

// GetRoom returns a live room with its creator and active members.
func (s *RoomService) GetRoom(ctx context.Context, roomID uuid.UUID) (*Room, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find room: %w", err)
	}
	return convertModelToRoom(room), nil
}

// ListRooms returns live rooms, newest first.
func (s *RoomService) ListRooms(ctx context.Context) ([]*Room, error) {
	rooms, err := s.rooms.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	out := make([]*Room, 0, len(rooms))
	for i := range rooms {
		out = append(out, convertModelToRoom(&rooms[i]))
	}
	return out, nil
}

// ListParticipants returns the active members of a live room in join order.
func (s *RoomService) ListParticipants(ctx context.Context, roomID uuid.UUID) ([]Participant, error) {
	if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("find room: %w", err)
	}
	ps, err := s.participants.FindActiveByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return convertParticipants(ps), nil
}

// CreateRoom inserts the room and the creator's PLAYER membership together.
func (s *RoomService) CreateRoom(ctx context.Context, creatorID uint, input CreateRoomInput) (*Room, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || utf8.RuneCountInString(name) > maxRoomNameLength {
		return nil, ErrInvalidRoomName
	}
	if input.MaxParticipants == 0 {
		input.MaxParticipants = models.MinRoomParticipants
	}
	if input.MaxParticipants < models.MinRoomParticipants || input.MaxParticipants > models.MaxRoomParticipants {
		return nil, ErrInvalidCapacity
	}
	if input.Password == "" {
		return nil, ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash room password: %w", err)
	}

	roomID := uuid.New()
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.validator.SingleRoomParticipation(ctx, creatorID); err != nil {
			return err
		}
		creator, err := s.findUser(ctx, creatorID)
		if err != nil {
			return err
		}

		room := &models.Room{
			ID:              roomID,
			Name:            name,
			Password:        string(hash),
			MaxParticipants: input.MaxParticipants,
			CreatorID:       &creator.ID,
		}
		if err := s.rooms.Create(ctx, room); err != nil {
			return fmt.Errorf("create room: %w", err)
		}
		if err := s.addParticipant(ctx, room.ID, creator.ID, models.RolePlayer); err != nil {
			return err
		}

		creator.CreatedRoomID = &room.ID
		if err := s.users.UpdateUser(ctx, creator); err != nil {
			return fmt.Errorf("set created room: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("module", "room").Str("room_id", roomID.String()).Uint("user_id", creatorID).Msg("room created")
	s.events.Publish(ctx, events.NewRoomEvent(events.RoomCreated, roomID, creatorID))
	return s.GetRoom(ctx, roomID)
}

// JoinRoom adds the user as a PLAYER. The room row stays locked for the whole
// transaction, so concurrent joins and deletes of the same room serialize.
// The room is re-read after commit; an empty result means it was deleted
// underneath the join and is reported as ErrRoomJoinConflict.
func (s *RoomService) JoinRoom(ctx context.Context, roomID uuid.UUID, userID uint, password string) (*Room, error) {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		room, err := s.rooms.FindByIDForUpdate(ctx, roomID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRoomNotFound
		}
		if err != nil {
			return fmt.Errorf("lock room: %w", err)
		}
		if room.IsDeleted() {
			return ErrRoomJoinConflict
		}

		if s.passwordAttemptsExhausted(ctx, roomID, userID) {
			return ErrTooManyPasswordAttempts
		}
		if err := s.validator.Join(ctx, room, userID, password); err != nil {
			if errors.Is(err, ErrPasswordMismatch) {
				s.recordPasswordFailure(ctx, roomID, userID)
			}
			return err
		}

		if _, err := s.findUser(ctx, userID); err != nil {
			return err
		}
		return s.addParticipant(ctx, roomID, userID, models.RolePlayer)
	})
	if err != nil {
		return nil, err
	}

	if err := s.attempts.Reset(ctx, roomID, userID); err != nil {
		log.Warn().Err(err).Str("module", "room").Msg("reset password attempts")
	}

	room, err := s.GetRoom(ctx, roomID)
	if errors.Is(err, ErrRoomNotFound) {
		return nil, ErrRoomJoinConflict
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("module", "room").Str("room_id", roomID.String()).Uint("user_id", userID).Msg("room joined")
	s.events.Publish(ctx, events.NewRoomEvent(events.RoomJoined, roomID, userID))
	return room, nil
}

// LeaveRoom is idempotent: leaving a missing or deleted room, or a room the
// user is not in, succeeds without side effects.
func (s *RoomService) LeaveRoom(ctx context.Context, userID uint, roomID uuid.UUID) error {
	left := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		room, err := s.rooms.FindByIDForUpdate(ctx, roomID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock room: %w", err)
		}
		if room.IsDeleted() {
			return nil
		}
		if room.IsCreator(userID) {
			return ErrCannotLeaveAsCreator
		}

		p, err := s.participants.FindActive(ctx, roomID, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("find participant: %w", err)
		}
		if err := s.participants.Leave(ctx, p); err != nil {
			return fmt.Errorf("leave room: %w", err)
		}
		left = true
		return nil
	})
	if err != nil {
		return err
	}

	if left {
		log.Info().Str("module", "room").Str("room_id", roomID.String()).Uint("user_id", userID).Msg("room left")
		s.events.Publish(ctx, events.NewRoomEvent(events.RoomLeft, roomID, userID))
	}
	return nil
}

// DeleteRoom soft-leaves every participant, soft-deletes the room and clears
// the creator's back-reference. Deleting an absent or deleted room succeeds.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID uuid.UUID, userID uint) error {
	deleted := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		room, err := s.rooms.FindByIDForUpdate(ctx, roomID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock room: %w", err)
		}
		if room.IsDeleted() {
			return nil
		}
		if err := s.validator.CreatorAuthority(room, userID); err != nil {
			return err
		}

		if err := s.participants.LeaveAllByRoom(ctx, roomID); err != nil {
			return fmt.Errorf("remove participants: %w", err)
		}
		if err := s.rooms.SoftDelete(ctx, roomID); err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
		if room.CreatorID != nil {
			if err := s.clearCreatedRoom(ctx, *room.CreatorID); err != nil {
				return err
			}
		}
		deleted = true
		return nil
	})
	if err != nil {
		return err
	}

	if deleted {
		log.Info().Str("module", "room").Str("room_id", roomID.String()).Uint("user_id", userID).Msg("room deleted")
		s.events.Publish(ctx, events.NewRoomEvent(events.RoomDeleted, roomID, userID))
	}
	return nil
}

// TransferCreator hands the creator seat to another active participant. The
// old back-reference is cleared before the new one is set.
func (s *RoomService) TransferCreator(ctx context.Context, roomID uuid.UUID, currentUserID, newCreatorID uint) (*Room, error) {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		room, err := s.lockActiveRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if err := s.validator.TransferTarget(ctx, room, currentUserID, newCreatorID); err != nil {
			return err
		}
		newCreator, err := s.findUser(ctx, newCreatorID)
		if err != nil {
			return err
		}

		if room.CreatorID != nil {
			if err := s.clearCreatedRoom(ctx, *room.CreatorID); err != nil {
				return err
			}
		}
		newCreator.CreatedRoomID = &room.ID
		if err := s.users.UpdateUser(ctx, newCreator); err != nil {
			return fmt.Errorf("set created room: %w", err)
		}
		room.CreatorID = &newCreator.ID
		if err := s.rooms.Update(ctx, room); err != nil {
			return fmt.Errorf("update room creator: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("module", "room").Str("room_id", roomID.String()).
		Uint("from", currentUserID).Uint("to", newCreatorID).Msg("creator transferred")
	e := events.NewRoomEvent(events.RoomCreatorTransferred, roomID, currentUserID)
	e.TargetID = newCreatorID
	s.events.Publish(ctx, e)
	return s.GetRoom(ctx, roomID)
}

// UpdateParticipantRole lets the creator set a member to GM or PLAYER.
func (s *RoomService) UpdateParticipantRole(ctx context.Context, roomID uuid.UUID, currentUserID, targetUserID uint, role models.ParticipantRole) (*Room, error) {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		room, err := s.lockActiveRoom(ctx, roomID)
		if err != nil {
			return err
		}
		if err := s.validator.RoleChangeTarget(ctx, room, currentUserID, targetUserID, role); err != nil {
			return err
		}
		p, err := s.participants.FindActive(ctx, roomID, targetUserID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrParticipantNotFound
		}
		if err != nil {
			return fmt.Errorf("find participant: %w", err)
		}
		if err := s.participants.UpdateRole(ctx, p.ID, role); err != nil {
			return fmt.Errorf("update role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e := events.NewRoomEvent(events.RoomRoleUpdated, roomID, currentUserID)
	e.TargetID = targetUserID
	e.Role = string(role)
	s.events.Publish(ctx, e)
	return s.GetRoom(ctx, roomID)
}

func (s *RoomService) lockActiveRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	room, err := s.rooms.FindByIDForUpdate(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock room: %w", err)
	}
	if room.IsDeleted() {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (s *RoomService) findUser(ctx context.Context, userID uint) (*models.User, error) {
	return s.users.GetActiveUserByID(ctx, userID)
}

func (s *RoomService) addParticipant(ctx context.Context, roomID uuid.UUID, userID uint, role models.ParticipantRole) error {
	err := s.participants.Create(ctx, &models.RoomParticipant{
		RoomID: roomID,
		UserID: userID,
		Role:   role,
	})
	if errors.Is(err, repository.ErrDuplicateEntry) {
		// another active membership committed first
		return ErrAlreadyInRoom
	}
	if err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return nil
}

// clearCreatedRoom drops the user's back-reference. Withdrawn users are skipped.
func (s *RoomService) clearCreatedRoom(ctx context.Context, userID uint) error {
	user, err := s.users.GetActiveUserByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	user.CreatedRoomID = nil
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("clear created room: %w", err)
	}
	return nil
}

// Limiter errors are logged and treated as not blocked.
func (s *RoomService) passwordAttemptsExhausted(ctx context.Context, roomID uuid.UUID, userID uint) bool {
	blocked, err := s.attempts.Blocked(ctx, roomID, userID)
	if err != nil {
		log.Warn().Err(err).Str("module", "room").Msg("password attempt check failed")
		return false
	}
	return blocked
}

func (s *RoomService) recordPasswordFailure(ctx context.Context, roomID uuid.UUID, userID uint) {
	if err := s.attempts.RecordFailure(ctx, roomID, userID); err != nil {
		log.Warn().Err(err).Str("module", "room").Msg("record password failure")
	}
}
