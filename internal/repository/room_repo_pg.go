package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"interviewer/roomhub/internal/model"
)

type pgRoomRepository struct {
	db *gorm.DB
}

func NewPGRoomRepository(db *gorm.DB) RoomRepository {
	return &pgRoomRepository{db: db}
}

func (r *pgRoomRepository) Create(ctx context.Context, room *model.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *pgRoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).First(&room, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}
