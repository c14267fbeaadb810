package repository

import (
	"context"

	"github.com/google/uuid"

	"interviewer/roomhub/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// UpdateRole returns gorm.ErrRecordNotFound when no such user exists.
	UpdateRole(ctx context.Context, id uuid.UUID, role model.UserRole) error
}
