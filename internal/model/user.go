package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserStatus int

const (
	UserStatusActive   UserStatus = 1
	UserStatusDisabled UserStatus = 2
	UserStatusBanned   UserStatus = 3
)

// UserRole is the global role. Admins bypass room-scoped permission checks.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Nickname  string         `gorm:"type:varchar(128);not null;default:''" json:"nickname"`
	Role      UserRole       `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	Status    UserStatus     `gorm:"type:smallint;not null;default:1" json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool { return u != nil && u.Role == UserRoleAdmin }

func (r UserRole) Valid() bool { return r == UserRoleUser || r == UserRoleAdmin }
