package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"tabletop_session/internal/models"
	"tabletop_session/internal/storage"
)

// ParticipantRepository stores room memberships. Leaving soft-deletes the row;
// rows are never hard-deleted and never revived.
type ParticipantRepository interface {
	Create(ctx context.Context, p *models.RoomParticipant) error
	FindActive(ctx context.Context, roomID uuid.UUID, userID uint) (*models.RoomParticipant, error)
	FindActiveByRoom(ctx context.Context, roomID uuid.UUID) ([]models.RoomParticipant, error)
	CountActiveByRoom(ctx context.Context, roomID uuid.UUID) (int64, error)
	CountActiveByUser(ctx context.Context, userID uint) (int64, error)
	Leave(ctx context.Context, p *models.RoomParticipant) error
	LeaveAllByRoom(ctx context.Context, roomID uuid.UUID) error
	UpdateRole(ctx context.Context, id uint, role models.ParticipantRole) error
}

type participantRepository struct {
	baseRepository
}

func NewParticipantRepository(db *storage.PostgresDB) ParticipantRepository {
	return &participantRepository{baseRepository: newBaseRepository(db)}
}

func (r *participantRepository) Create(ctx context.Context, p *models.RoomParticipant) error {
	return translateError(r.conn(ctx).Omit(clause.Associations).Create(p).Error)
}

func (r *participantRepository) FindActive(ctx context.Context, roomID uuid.UUID, userID uint) (*models.RoomParticipant, error) {
	var p models.RoomParticipant
	err := r.conn(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&p).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

// FindActiveByRoom returns active memberships in join order with users attached.
func (r *participantRepository) FindActiveByRoom(ctx context.Context, roomID uuid.UUID) ([]models.RoomParticipant, error) {
	var ps []models.RoomParticipant
	err := r.conn(ctx).
		Preload("User").
		Where("room_id = ?", roomID).
		Order("joined_at ASC, id ASC").
		Find(&ps).Error
	return ps, translateError(err)
}

func (r *participantRepository) CountActiveByRoom(ctx context.Context, roomID uuid.UUID) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.RoomParticipant{}).Where("room_id = ?", roomID).Count(&n).Error
	return n, translateError(err)
}

func (r *participantRepository) CountActiveByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.RoomParticipant{}).Where("user_id = ?", userID).Count(&n).Error
	return n, translateError(err)
}

func (r *participantRepository) Leave(ctx context.Context, p *models.RoomParticipant) error {
	return translateError(r.conn(ctx).Delete(p).Error)
}

func (r *participantRepository) LeaveAllByRoom(ctx context.Context, roomID uuid.UUID) error {
	return translateError(r.conn(ctx).Where("room_id = ?", roomID).Delete(&models.RoomParticipant{}).Error)
}

func (r *participantRepository) UpdateRole(ctx context.Context, id uint, role models.ParticipantRole) error {
	res := r.conn(ctx).Model(&models.RoomParticipant{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
