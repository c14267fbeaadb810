package repository

import (
	"context"

	"github.com/google/uuid"

	"interviewer/roomhub/internal/model"
)

// ParticipantRepository always returns participants with their permission
// rows loaded.
type ParticipantRepository interface {
	// Create inserts the participant and its permission rows. A second
	// participant for the same (room, user) fails with gorm.ErrDuplicatedKey.
	Create(ctx context.Context, participant *model.RoomParticipant) error
	FindByRoomAndUser(ctx context.Context, roomID, userID uuid.UUID) (*model.RoomParticipant, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.RoomParticipant, error)
	UpdateType(ctx context.Context, participantID uuid.UUID, participantType model.ParticipantType) error
	ReplacePermissions(ctx context.Context, participantID uuid.UUID, ids []model.PermissionID) error
	AddPermission(ctx context.Context, participantID uuid.UUID, id model.PermissionID) error
	RemovePermission(ctx context.Context, participantID uuid.UUID, id model.PermissionID) error
}
