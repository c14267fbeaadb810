package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"interviewer/roomhub/internal/model"
	"interviewer/roomhub/internal/repository"
)

type UserService interface {
	// ChangeRole sets userID's global role on behalf of actorID, who must be
	// an admin. Every cached resolution for userID is dropped afterwards.
	ChangeRole(ctx context.Context, actorID, userID uuid.UUID, role model.UserRole) (*model.User, error)
}

type userService struct {
	store  repository.Store
	cache  *PermissionCache
	logger *zap.Logger
}

func NewUserService(store repository.Store, cache *PermissionCache, logger *zap.Logger) UserService {
	return &userService{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

func (s *userService) ChangeRole(ctx context.Context, actorID, userID uuid.UUID, role model.UserRole) (*model.User, error) {
	if !role.Valid() {
		return nil, ErrUnknownRole
	}

	var user *model.User
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		// 1. Only admins hand out or take away admin
		actor, err := tx.Users().GetByID(ctx, actorID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load actor: %w", err)
		}
		if err != nil || !actor.IsAdmin() {
			return &AccessDeniedError{Permission: "UserRoleChange", Reason: ReasonNotAdmin}
		}

		// 2. Update the target
		if err := tx.Users().UpdateRole(ctx, userID, role); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("update role: %w", err)
		}

		user, err = tx.Users().GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("reload user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateUser(ctx, userID)
	s.logger.Info("user role changed",
		zap.String("actor_id", actorID.String()),
		zap.String("user_id", userID.String()),
		zap.String("role", string(role)),
	)
	return user, nil
}

var _ UserService = (*userService)(nil)
