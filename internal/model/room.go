package model

import (
	"time"

	"github.com/google/uuid"
)

type RoomStatus string

const (
	RoomStatusNew    RoomStatus = "new"
	RoomStatusActive RoomStatus = "active"
	RoomStatusReview RoomStatus = "review"
	RoomStatusClosed RoomStatus = "closed"
)

type Room struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name      string     `gorm:"type:varchar(256);not null" json:"name"`
	Status    RoomStatus `gorm:"type:varchar(16);not null;default:'new'" json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Room) TableName() string { return "rooms" }
