package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/paygate/internal/events"
	"github.com/example/paygate/internal/models"
	"github.com/example/paygate/internal/repository"
)

// UserService registers users and assigns their pay-keys.
type UserService struct {
	repo      repository.UserRepository
	publisher events.Publisher
	topic     string
	now       func() time.Time
	logger    *zap.Logger
}

func NewUserService(repo repository.UserRepository, publisher events.Publisher, topic string, logger *zap.Logger) *UserService {
	return &UserService{
		repo:      repo,
		publisher: publisher,
		topic:     topic,
		now:       time.Now,
		logger:    logger,
	}
}

type userRegisteredData struct {
	UserID  string    `json:"userId"`
	Status  string    `json:"status"`
	RegDate time.Time `json:"regDate"`
}

// CreateUser registers userID as a new ACTIVE user with a fresh pay-key.
// Exactly one insert is issued on success and none on any failure path.
func (s *UserService) CreateUser(ctx context.Context, userID string) (*models.User, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserIDMissing
	}

	exists, err := s.repo.ExistsByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		s.logger.Warn("registration rejected, user id taken", zap.String("user_id", userID))
		return nil, ErrUserAlreadyExists
	}

	now := s.now()
	user := &models.User{
		UserID:  userID,
		Status:  models.UserStatusActive,
		PayKey:  GeneratePayKey(now),
		RegDate: now.UTC().Truncate(time.Second),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, s.resolveDuplicate(ctx, user)
		}
		return nil, fmt.Errorf("register user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.UserID))

	event := events.New(events.TypeUserRegistered, userRegisteredData{
		UserID:  user.UserID,
		Status:  string(user.Status),
		RegDate: user.RegDate,
	})
	if err := s.publisher.Publish(ctx, s.topic, user.UserID, event); err != nil {
		s.logger.Warn("failed to publish registration event", zap.String("user_id", user.UserID), zap.Error(err))
	}

	return user, nil
}

// resolveDuplicate tells a concurrent registration of the same id apart from
// a pay-key collision after the insert hit a unique index.
func (s *UserService) resolveDuplicate(ctx context.Context, user *models.User) error {
	exists, err := s.repo.ExistsByUserID(ctx, user.UserID)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Warn("concurrent registration lost the race", zap.String("user_id", user.UserID))
		return ErrUserAlreadyExists
	}

	owner, err := s.repo.FindByPayKey(ctx, user.PayKey)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("register user: %w", repository.ErrDuplicateUser)
		}
		return err
	}
	s.logger.Error("generated pay key already assigned",
		zap.String("user_id", user.UserID),
		zap.String("owner_user_id", owner.UserID))
	return fmt.Errorf("register user: pay key collision: %w", repository.ErrDuplicateUser)
}
