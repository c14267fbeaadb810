package repository

import (
	"context"

	"gorm.io/gorm"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore returns a Store backed by gorm. Nested Transaction calls become
// savepoints.
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Users() UserRepository               { return NewPGUserRepository(s.db) }
func (s *pgStore) Rooms() RoomRepository               { return NewPGRoomRepository(s.db) }
func (s *pgStore) Invites() InviteRepository           { return NewPGInviteRepository(s.db) }
func (s *pgStore) Participants() ParticipantRepository { return NewPGParticipantRepository(s.db) }

func (s *pgStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgStore{db: tx})
	})
}
