package repository

import (
	"context"

	"github.com/google/uuid"

	"interviewer/roomhub/internal/model"
)

type InviteRepository interface {
	Create(ctx context.Context, invite *model.Invite) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Invite, error)
	// GetForUpdate loads the invite and holds a row lock until the enclosing
	// transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Invite, error)
	// IncrementUses bumps UsesCurrent if the row still carries invite.Version
	// and has budget left, otherwise it returns ErrConcurrentUpdate. On
	// success invite is updated in place.
	IncrementUses(ctx context.Context, invite *model.Invite) error
	// Delete removes the invite if it still carries invite.Version.
	Delete(ctx context.Context, invite *model.Invite) error

	CreateRoomInvite(ctx context.Context, roomInvite *model.RoomInvite) error
	GetRoomInviteByInviteID(ctx context.Context, inviteID uuid.UUID) (*model.RoomInvite, error)
	DeleteRoomInvite(ctx context.Context, id uuid.UUID) error
	ListRoomInvites(ctx context.Context, roomID uuid.UUID) ([]model.RoomInvite, error)
}
