package model

import (
	"time"

	"github.com/google/uuid"
)

type ParticipantType string

const (
	ParticipantTypeViewer   ParticipantType = "Viewer"
	ParticipantTypeExpert   ParticipantType = "Expert"
	ParticipantTypeExaminee ParticipantType = "Examinee"
)

// ParticipantTypes lists every known type in a stable order.
var ParticipantTypes = []ParticipantType{
	ParticipantTypeViewer,
	ParticipantTypeExpert,
	ParticipantTypeExaminee,
}

func (t ParticipantType) Valid() bool {
	for _, known := range ParticipantTypes {
		if t == known {
			return true
		}
	}
	return false
}

// RoomParticipant is a user's membership in a room. It owns its permission rows.
type RoomParticipant struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null" json:"user_id"`
	RoomID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"room_id"`
	Type      ParticipantType `gorm:"type:varchar(16);not null" json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Permissions []ParticipantPermission `gorm:"foreignKey:ParticipantID;constraint:OnDelete:CASCADE" json:"-"`
}

func (RoomParticipant) TableName() string { return "room_participants" }

// PermissionIDs returns the granted permission ids in row order.
func (p *RoomParticipant) PermissionIDs() []PermissionID {
	ids := make([]PermissionID, 0, len(p.Permissions))
	for _, pp := range p.Permissions {
		ids = append(ids, pp.PermissionID)
	}
	return ids
}

// ParticipantPermission is the join row between a participant and a permission.
type ParticipantPermission struct {
	ParticipantID uuid.UUID    `gorm:"type:uuid;primaryKey" json:"participant_id"`
	PermissionID  PermissionID `gorm:"type:smallint;primaryKey" json:"permission_id"`

	Permission *Permission `gorm:"foreignKey:PermissionID;references:ID" json:"-"`
}

func (ParticipantPermission) TableName() string { return "participant_permissions" }
