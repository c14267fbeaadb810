package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"interviewer/roomhub/internal/model"
)

type pgInviteRepository struct {
	db *gorm.DB
}

func NewPGInviteRepository(db *gorm.DB) InviteRepository {
	return &pgInviteRepository{db: db}
}

func (r *pgInviteRepository) Create(ctx context.Context, invite *model.Invite) error {
	return r.db.WithContext(ctx).Create(invite).Error
}

func (r *pgInviteRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Invite, error) {
	var invite model.Invite
	if err := r.db.WithContext(ctx).First(&invite, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

// GetForUpdate issues SELECT ... FOR UPDATE. Outside a transaction the lock is
// released as soon as the statement completes.
func (r *pgInviteRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Invite, error) {
	var invite model.Invite
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invite, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invite, nil
}

func (r *pgInviteRepository) IncrementUses(ctx context.Context, invite *model.Invite) error {
	res := r.db.WithContext(ctx).
		Model(&model.Invite{}).
		Where("id = ? AND version = ? AND uses_current < uses_max", invite.ID, invite.Version).
		UpdateColumns(map[string]interface{}{
			"uses_current": gorm.Expr("uses_current + 1"),
			"version":      gorm.Expr("version + 1"),
			"updated_at":   gorm.Expr("now()"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	invite.UsesCurrent++
	invite.Version++
	return nil
}

func (r *pgInviteRepository) Delete(ctx context.Context, invite *model.Invite) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND version = ?", invite.ID, invite.Version).
		Delete(&model.Invite{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

func (r *pgInviteRepository) CreateRoomInvite(ctx context.Context, roomInvite *model.RoomInvite) error {
	return r.db.WithContext(ctx).Create(roomInvite).Error
}

func (r *pgInviteRepository) GetRoomInviteByInviteID(ctx context.Context, inviteID uuid.UUID) (*model.RoomInvite, error) {
	var roomInvite model.RoomInvite
	if err := r.db.WithContext(ctx).First(&roomInvite, "invite_id = ?", inviteID).Error; err != nil {
		return nil, err
	}
	return &roomInvite, nil
}

func (r *pgInviteRepository) DeleteRoomInvite(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.RoomInvite{}, "id = ?", id).Error
}

func (r *pgInviteRepository) ListRoomInvites(ctx context.Context, roomID uuid.UUID) ([]model.RoomInvite, error) {
	var roomInvites []model.RoomInvite
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("participant_type, created_at").
		Find(&roomInvites).Error
	return roomInvites, err
}
