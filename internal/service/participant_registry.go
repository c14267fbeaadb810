package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"interviewer/roomhub/internal/model"
	"interviewer/roomhub/internal/permission"
	"interviewer/roomhub/internal/repository"
)

// ParticipantRegistry creates and looks up room participants. It works on
// whatever repository it is handed, so callers decide the transaction.
type ParticipantRegistry struct {
	catalog *permission.Catalog
}

func NewParticipantRegistry(catalog *permission.Catalog) *ParticipantRegistry {
	return &ParticipantRegistry{catalog: catalog}
}

func (r *ParticipantRegistry) Catalog() *permission.Catalog { return r.catalog }

// CreateParticipant snapshots the default set for participantType into rows
// owned by the new participant.
func (r *ParticipantRegistry) CreateParticipant(
	ctx context.Context,
	participants repository.ParticipantRepository,
	userID, roomID uuid.UUID,
	participantType model.ParticipantType,
) (*model.RoomParticipant, error) {
	defaults, err := r.catalog.DefaultsFor(participantType)
	if err != nil {
		return nil, err
	}

	participant := &model.RoomParticipant{
		ID:     uuid.New(),
		UserID: userID,
		RoomID: roomID,
		Type:   participantType,
	}
	for _, id := range defaults.IDs() {
		participant.Permissions = append(participant.Permissions, model.ParticipantPermission{
			ParticipantID: participant.ID,
			PermissionID:  id,
		})
	}

	if err := participants.Create(ctx, participant); err != nil {
		return nil, err
	}
	return participant, nil
}

// ChangeParticipantType resets the permission set to the new type's defaults.
// Custom grants are discarded.
func (r *ParticipantRegistry) ChangeParticipantType(
	ctx context.Context,
	participants repository.ParticipantRepository,
	participant *model.RoomParticipant,
	newType model.ParticipantType,
) error {
	defaults, err := r.catalog.DefaultsFor(newType)
	if err != nil {
		return err
	}
	ids := defaults.IDs()

	if err := participants.UpdateType(ctx, participant.ID, newType); err != nil {
		return fmt.Errorf("update participant type: %w", err)
	}
	if err := participants.ReplacePermissions(ctx, participant.ID, ids); err != nil {
		return fmt.Errorf("replace participant permissions: %w", err)
	}

	participant.Type = newType
	participant.Permissions = participant.Permissions[:0]
	for _, id := range ids {
		participant.Permissions = append(participant.Permissions, model.ParticipantPermission{
			ParticipantID: participant.ID,
			PermissionID:  id,
		})
	}
	return nil
}

// FindByRoomAndUser reports found=false, err=nil when there is no participant.
func (r *ParticipantRegistry) FindByRoomAndUser(
	ctx context.Context,
	participants repository.ParticipantRepository,
	roomID, userID uuid.UUID,
) (*model.RoomParticipant, bool, error) {
	participant, err := participants.FindByRoomAndUser(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("find participant: %w", err)
	}
	return participant, true, nil
}

// ParticipantDescriptor is the externally visible view of a participant.
type ParticipantDescriptor struct {
	ID          uuid.UUID             `json:"id"`
	RoomID      uuid.UUID             `json:"room_id"`
	UserID      uuid.UUID             `json:"user_id"`
	Type        model.ParticipantType `json:"type"`
	Permissions []string              `json:"permissions"`
	// Created is true when the call that produced the descriptor created the
	// participant.
	Created bool `json:"created"`
}

func (r *ParticipantRegistry) Describe(p *model.RoomParticipant, created bool) *ParticipantDescriptor {
	return &ParticipantDescriptor{
		ID:          p.ID,
		RoomID:      p.RoomID,
		UserID:      p.UserID,
		Type:        p.Type,
		Permissions: r.catalog.Names(permission.NewSet(p.PermissionIDs()...).IDs()),
		Created:     created,
	}
}
