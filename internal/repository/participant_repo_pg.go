package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"interviewer/roomhub/internal/model"
)

type pgParticipantRepository struct {
	db *gorm.DB
}

func NewPGParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &pgParticipantRepository{db: db}
}

func permissionRows(participantID uuid.UUID, ids []model.PermissionID) []model.ParticipantPermission {
	rows := make([]model.ParticipantPermission, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, model.ParticipantPermission{ParticipantID: participantID, PermissionID: id})
	}
	return rows
}

// Create writes the participant row and its permission rows in one
// transaction (a savepoint when already inside one).
func (r *pgParticipantRepository) Create(ctx context.Context, participant *model.RoomParticipant) error {
	if participant.ID == uuid.Nil {
		participant.ID = uuid.New()
	}
	rows := permissionRows(participant.ID, participant.PermissionIDs())

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(participant).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
			return err
		}
		participant.Permissions = rows
		return nil
	})
}

func (r *pgParticipantRepository) FindByRoomAndUser(ctx context.Context, roomID, userID uuid.UUID) (*model.RoomParticipant, error) {
	var participant model.RoomParticipant
	err := r.db.WithContext(ctx).
		Preload("Permissions", func(db *gorm.DB) *gorm.DB { return db.Order("permission_id") }).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (r *pgParticipantRepository) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.RoomParticipant, error) {
	var participants []model.RoomParticipant
	err := r.db.WithContext(ctx).
		Preload("Permissions", func(db *gorm.DB) *gorm.DB { return db.Order("permission_id") }).
		Where("room_id = ?", roomID).
		Order("created_at").
		Find(&participants).Error
	return participants, err
}

func (r *pgParticipantRepository) UpdateType(ctx context.Context, participantID uuid.UUID, participantType model.ParticipantType) error {
	res := r.db.WithContext(ctx).
		Model(&model.RoomParticipant{}).
		Where("id = ?", participantID).
		Update("type", participantType)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *pgParticipantRepository) ReplacePermissions(ctx context.Context, participantID uuid.UUID, ids []model.PermissionID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("participant_id = ?", participantID).Delete(&model.ParticipantPermission{}).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		rows := permissionRows(participantID, ids)
		return tx.Omit(clause.Associations).Create(&rows).Error
	})
}

func (r *pgParticipantRepository) AddPermission(ctx context.Context, participantID uuid.UUID, id model.PermissionID) error {
	row := model.ParticipantPermission{ParticipantID: participantID, PermissionID: id}
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

func (r *pgParticipantRepository) RemovePermission(ctx context.Context, participantID uuid.UUID, id model.PermissionID) error {
	return r.db.WithContext(ctx).
		Where("participant_id = ? AND permission_id = ?", participantID, id).
		Delete(&model.ParticipantPermission{}).Error
}
