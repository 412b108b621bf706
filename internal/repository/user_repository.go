package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/example/paygate/internal/models"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a UserRepository backed by db. The connection
// must be opened with TranslateError so unique violations surface as
// gorm.ErrDuplicatedKey.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) ExistsByUserID(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("user_id = ?", userID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check user %q: %w", userID, err)
	}
	return count > 0, nil
}

func (r *userRepository) FindByUserID(ctx context.Context, userID string) (*models.User, error) {
	return r.findOne(ctx, "user_id = ?", userID)
}

func (r *userRepository) FindByPayKey(ctx context.Context, payKey string) (*models.User, error) {
	return r.findOne(ctx, "pay_key = ?", payKey)
}

func (r *userRepository) findOne(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateUser
		}
		return fmt.Errorf("create user %q: %w", user.UserID, err)
	}
	return nil
}
