package model

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutoMigrate runs GORM auto-migration for all models, creates custom indexes
// and constraints, and upserts the permission catalog rows.
func AutoMigrate(db *gorm.DB, catalog []Permission) error {
	if err := db.AutoMigrate(
		&User{},
		&Room{},
		&Permission{},
		&Invite{},
		&RoomInvite{},
		&RoomParticipant{},
		&ParticipantPermission{},
	); err != nil {
		return err
	}

	// One membership per (room, user).
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_room_participants_room_user " +
			"ON room_participants (room_id, user_id)",
	).Error; err != nil {
		return err
	}

	// One live invite per (room, participant type). Rotation deletes the old
	// row before it inserts the fresh one.
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_room_invites_room_type " +
			"ON room_invites (room_id, participant_type)",
	).Error; err != nil {
		return err
	}

	// The usage counter is bounded by the row itself, not only by application code.
	if err := db.Exec(
		"DO $$ BEGIN " +
			"ALTER TABLE invites ADD CONSTRAINT chk_invites_uses " +
			"CHECK (uses_max > 0 AND uses_current >= 0 AND uses_current <= uses_max); " +
			"EXCEPTION WHEN duplicate_object THEN NULL; END $$",
	).Error; err != nil {
		return err
	}

	if len(catalog) == 0 {
		return nil
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&catalog).Error
}
