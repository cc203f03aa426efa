package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"tabletop_session/internal/models"
	"tabletop_session/internal/repository"
	"tabletop_session/internal/utils"
)

// UserDirectory resolves active users and keeps their created-room
// back-reference.
type UserDirectory interface {
	GetActiveUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
}

// UserService is the user directory plus credential issuance.
type UserService struct {
	userRepo   repository.UserRepository
	jwt        *utils.JWTManager
	bcryptCost int
}

// NewUserService creates the user directory. jwt may be nil when Login is not used.
func NewUserService(userRepo repository.UserRepository, jwt *utils.JWTManager, bcryptCost int) *UserService {
	return &UserService{userRepo: userRepo, jwt: jwt, bcryptCost: bcryptCost}
}

// Register hashes the password and stores a new account.
func (s *UserService) Register(ctx context.Context, email, nickname, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Nickname: strings.TrimSpace(nickname),
		Password: string(hashed),
		Role:     models.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies the password and returns a signed bearer token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// GetActiveUserByID returns ErrUserNotFound for unknown or withdrawn users.
func (s *UserService) GetActiveUserByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// GetUserByEmail matches the address case-insensitively.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// UpdateUser persists the user, including its created-room back-reference.
func (s *UserService) UpdateUser(ctx context.Context, user *models.User) error {
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}
