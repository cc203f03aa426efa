package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"tabletop_session/internal/models"
	"tabletop_session/internal/repository"
)

var _ repository.ParticipantRepository = (*ParticipantRepository)(nil)

type ParticipantRepository struct {
	mock.Mock
}

func (m *ParticipantRepository) Create(ctx context.Context, p *models.RoomParticipant) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ParticipantRepository) FindActive(ctx context.Context, roomID uuid.UUID, userID uint) (*models.RoomParticipant, error) {
	args := m.Called(ctx, roomID, userID)
	if p := args.Get(0); p != nil {
		return p.(*models.RoomParticipant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ParticipantRepository) FindActiveByRoom(ctx context.Context, roomID uuid.UUID) ([]models.RoomParticipant, error) {
	args := m.Called(ctx, roomID)
	if ps := args.Get(0); ps != nil {
		return ps.([]models.RoomParticipant), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ParticipantRepository) CountActiveByRoom(ctx context.Context, roomID uuid.UUID) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ParticipantRepository) CountActiveByUser(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ParticipantRepository) Leave(ctx context.Context, p *models.RoomParticipant) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ParticipantRepository) LeaveAllByRoom(ctx context.Context, roomID uuid.UUID) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *ParticipantRepository) UpdateRole(ctx context.Context, id uint, role models.ParticipantRole) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}
