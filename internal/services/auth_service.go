package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/example/paygate/internal/models"
	"github.com/example/paygate/internal/repository"
	"github.com/example/paygate/internal/utils"
)

// AuthService checks pay-keys and issues access tokens for them.
type AuthService struct {
	repo   repository.UserRepository
	secret string
	ttl    time.Duration
}

func NewAuthService(repo repository.UserRepository, secret string, ttl time.Duration) *AuthService {
	return &AuthService{repo: repo, secret: secret, ttl: ttl}
}

// GetUserByUserID returns the registered user or ErrUserNotFound.
func (s *AuthService) GetUserByUserID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}

	user, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ValidatePayKey reports whether payKey belongs to the active user userID.
// Unknown users are not an error.
func (s *AuthService) ValidatePayKey(ctx context.Context, userID, payKey string) (bool, error) {
	if userID == "" || payKey == "" {
		return false, nil
	}

	user, err := s.GetUserByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}

	if !user.IsActive() {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(user.PayKey), []byte(payKey)) == 1, nil
}

// IssueToken exchanges a valid pay-key for a signed access token.
func (s *AuthService) IssueToken(ctx context.Context, userID, payKey string) (string, time.Time, error) {
	ok, err := s.ValidatePayKey(ctx, userID, payKey)
	if err != nil {
		return "", time.Time{}, err
	}
	if !ok {
		return "", time.Time{}, ErrInvalidPayKey
	}
	return utils.GenerateToken(s.secret, userID, s.ttl)
}
