package repository

import (
	"context"
	"errors"
)

// ErrConcurrentUpdate reports a lost compare-and-swap on a versioned row.
// The caller is expected to restart its whole transaction.
var ErrConcurrentUpdate = errors.New("concurrent update")

// Store is the unit of work over the relational schema. Repositories returned
// by a Store obtained inside Transaction run on that transaction.
type Store interface {
	Users() UserRepository
	Rooms() RoomRepository
	Invites() InviteRepository
	Participants() ParticipantRepository

	// Transaction commits when fn returns nil and rolls back on error, panic
	// or context cancellation.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
