package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultInviteUsesMax is the redemption budget of every freshly issued invite.
const DefaultInviteUsesMax = 5

// Invite is a bounded-use token. UsesCurrent never exceeds UsesMax; Version
// increases on every write and backs the compare-and-swap in the repository.
type Invite struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UsesCurrent int       `gorm:"not null;default:0" json:"uses_current"`
	UsesMax     int       `gorm:"not null;default:5" json:"uses_max"`
	Version     int64     `gorm:"not null;default:1" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Invite) TableName() string { return "invites" }

func (i *Invite) Exhausted() bool { return i.UsesCurrent >= i.UsesMax }

// NewInvite returns an unused invite with the default budget.
func NewInvite() *Invite {
	return &Invite{
		ID:          uuid.New(),
		UsesCurrent: 0,
		UsesMax:     DefaultInviteUsesMax,
		Version:     1,
	}
}

// RoomInvite binds an Invite to a room and a participant type. Both references
// are nullable at the schema level and must be checked where they are used.
type RoomInvite struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	InviteID        *uuid.UUID      `gorm:"type:uuid;uniqueIndex" json:"invite_id"`
	RoomID          *uuid.UUID      `gorm:"type:uuid;index" json:"room_id"`
	ParticipantType ParticipantType `gorm:"type:varchar(16);not null" json:"participant_type"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (RoomInvite) TableName() string { return "room_invites" }
