package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/dailypen/internal/model"
	appErr "github.com/xxxsen/dailypen/internal/pkg/errors"
)

const (
	nameMinLength = 2
	nameMaxLength = 50
)

type UserService struct {
	users CredentialStore
	now   func() time.Time
}

func NewUserService(users CredentialStore) *UserService {
	return &UserService{users: users, now: time.Now}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, strings.TrimSpace(userID))
}

// UpdateProfile renames the account. An empty name keeps the current one.
func (s *UserService) UpdateProfile(ctx context.Context, userID, name string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return user, nil
	}
	if n := utf8.RuneCountInString(name); n < nameMinLength || n > nameMaxLength {
		return nil, appErr.ErrInvalid
	}
	now := s.now().UnixMilli()
	if err := s.users.UpdateName(ctx, userID, name, now); err != nil {
		return nil, err
	}
	user.Name = name
	user.Mtime = now
	return user, nil
}

// Role reports the stored role of userID.
func (s *UserService) Role(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.users.ListUsers(ctx)
}

// DeleteUser removes a non-admin account.
func (s *UserService) DeleteUser(ctx context.Context, actorID, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == model.RoleAdmin {
		return appErr.ErrForbidden
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("user deleted",
		zap.String("user_id", userID),
		zap.String("by", actorID),
	)
	return nil
}
