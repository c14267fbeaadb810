package repository

import (
	"context"

	"github.com/google/uuid"

	"interviewer/roomhub/internal/model"
)

type RoomRepository interface {
	Create(ctx context.Context, room *model.Room) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error)
}
