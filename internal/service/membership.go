package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tabletop_session/internal/models"
	"tabletop_session/internal/repository"
)

// MembershipChecker answers whether a user holds an active membership of a room.
type MembershipChecker interface {
	EnsureParticipant(ctx context.Context, roomID uuid.UUID, userID uint) (*models.RoomParticipant, error)
}

// Membership is the store-backed MembershipChecker.
type Membership struct {
	participants repository.ParticipantRepository
}

// NewMembership creates a MembershipChecker over the participant store.
func NewMembership(participants repository.ParticipantRepository) *Membership {
	return &Membership{participants: participants}
}

// EnsureParticipant returns the active row or ErrNotParticipant.
func (m *Membership) EnsureParticipant(ctx context.Context, roomID uuid.UUID, userID uint) (*models.RoomParticipant, error) {
	p, err := m.participants.FindActive(ctx, roomID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotParticipant
	}
	if err != nil {
		return nil, fmt.Errorf("find participant: %w", err)
	}
	return p, nil
}
