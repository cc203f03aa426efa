package repository

import (
	"context"

	"tabletop_session/internal/models"
	"tabletop_session/internal/storage"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

type userRepository struct {
	baseRepository
}

func NewUserRepository(db *storage.PostgresDB) UserRepository {
	return &userRepository{baseRepository: newBaseRepository(db)}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return translateError(r.conn(ctx).Create(user).Error)
}

// FindByID skips withdrawn (soft-deleted) users.
func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.conn(ctx).First(&user, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.conn(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// Update saves every column, so a nil CreatedRoomID clears the back-reference.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return translateError(r.conn(ctx).Save(user).Error)
}
