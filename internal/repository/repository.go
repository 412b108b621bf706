package repository

import (
	"context"
	"errors"

	"github.com/example/paygate/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
)

// UserRepository is the keyed store of registered users.
type UserRepository interface {
	ExistsByUserID(ctx context.Context, userID string) (bool, error)
	FindByUserID(ctx context.Context, userID string) (*models.User, error)
	FindByPayKey(ctx context.Context, payKey string) (*models.User, error)
	// Create inserts a new record. A user id or pay-key collision returns
	// ErrDuplicateUser.
	Create(ctx context.Context, user *models.User) error
}
