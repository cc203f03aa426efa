package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tabletop_session/internal/models"
	"tabletop_session/internal/storage"
)

type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	// FindByID returns an active room with its creator and active participants.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Room, error)
	FindByIDWithDeleted(ctx context.Context, id uuid.UUID) (*models.Room, error)
	// FindByIDForUpdate locks the room row, soft-deleted or not, until the
	// surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Room, error)
	Update(ctx context.Context, room *models.Room) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	FindAll(ctx context.Context) ([]models.Room, error)
}

type roomRepository struct {
	baseRepository
}

func NewRoomRepository(db *storage.PostgresDB) RoomRepository {
	return &roomRepository{baseRepository: newBaseRepository(db)}
}

func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	return translateError(r.conn(ctx).Omit(clause.Associations).Create(room).Error)
}

func withMembers(db *gorm.DB) *gorm.DB {
	return db.Preload("Creator").
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC")
		}).
		Preload("Participants.User")
}

func (r *roomRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := r.conn(ctx).Scopes(withMembers).First(&room, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &room, nil
}

func (r *roomRepository) FindByIDWithDeleted(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := r.conn(ctx).Unscoped().Preload("Creator").First(&room, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &room, nil
}

func (r *roomRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room
	err := r.conn(ctx).Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&room, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &room, nil
}

func (r *roomRepository) Update(ctx context.Context, room *models.Room) error {
	return translateError(r.conn(ctx).Omit(clause.Associations).Save(room).Error)
}

func (r *roomRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return translateError(r.conn(ctx).Delete(&models.Room{}, "id = ?", id).Error)
}

// FindAll lists active rooms, newest first.
func (r *roomRepository) FindAll(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := r.conn(ctx).Scopes(withMembers).Order("created_at DESC").Find(&rooms).Error
	return rooms, translateError(err)
}
