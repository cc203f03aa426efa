package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"tabletop_session/internal/models"
	"tabletop_session/internal/repository"
)

const maxTokenNameLength = 50

var ErrInvalidTokenName = newError(KindInvalidInput, "INVALID_TOKEN_NAME", "Token name must be between 1 and 50 characters")

// TokenService manages map tokens. Moving a token is allowed for its owner
// and for any GM of the token's room.
type TokenService struct {
	tokens     repository.TokenRepository
	membership MembershipChecker
}

// NewTokenService creates the token service.
func NewTokenService(tokens repository.TokenRepository, membership MembershipChecker) *TokenService {
	return &TokenService{tokens: tokens, membership: membership}
}

// CreateToken places a token owned by userID. Members only.
func (s *TokenService) CreateToken(ctx context.Context, roomID uuid.UUID, userID uint, name string, x, y float64) (*models.Token, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxTokenNameLength {
		return nil, ErrInvalidTokenName
	}
	if _, err := s.membership.EnsureParticipant(ctx, roomID, userID); err != nil {
		return nil, err
	}
	token := &models.Token{RoomID: roomID, OwnerID: &userID, Name: name, X: x, Y: y}
	if err := s.tokens.Create(ctx, token); err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}
	return token, nil
}

// ListTokens returns the tokens of a room to one of its members.
func (s *TokenService) ListTokens(ctx context.Context, roomID uuid.UUID, userID uint) ([]models.Token, error) {
	if _, err := s.membership.EnsureParticipant(ctx, roomID, userID); err != nil {
		return nil, err
	}
	tokens, err := s.tokens.FindByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return tokens, nil
}

// MoveToken updates the position of a token of roomID after the ownership check.
func (s *TokenService) MoveToken(ctx context.Context, roomID, tokenID uuid.UUID, userID uint, x, y float64) (*models.Token, error) {
	token, err := s.tokens.FindByID(ctx, tokenID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && token.RoomID != roomID) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}

	p, err := s.membership.EnsureParticipant(ctx, token.RoomID, userID)
	if err != nil {
		if errors.Is(err, ErrNotParticipant) {
			return nil, ErrNoMovePermission
		}
		return nil, err
	}
	if !token.IsOwnedBy(userID) && p.Role != models.RoleGM {
		return nil, ErrNoMovePermission
	}

	token.X, token.Y = x, y
	if err := s.tokens.UpdatePosition(ctx, token); err != nil {
		return nil, fmt.Errorf("move token: %w", err)
	}
	return token, nil
}
