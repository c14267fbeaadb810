package service

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"interviewer/roomhub/internal/model"
	"interviewer/roomhub/internal/permission"
	"interviewer/roomhub/internal/repository"
)

type fixture struct {
	ctx          context.Context
	store        *repository.MemoryStore
	state        repository.StateStore
	cache        *PermissionCache
	registry     *ParticipantRegistry
	invites      InviteService
	participants ParticipantService
	security     SecurityService
	users        UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, nil)
}

// newFixtureWithStore wires the services over wrap(store) when wrap is set.
func newFixtureWithStore(t *testing.T, wrap func(repository.Store) repository.Store) *fixture {
	t.Helper()

	logger := zap.NewNop()
	store := repository.NewMemoryStore()
	var backing repository.Store = store
	if wrap != nil {
		backing = wrap(store)
	}

	state := repository.NewMemoryStateStore()
	cache := NewPermissionCache(state, 0, 0, logger)
	registry := NewParticipantRegistry(permission.Default())

	return &fixture{
		ctx:          context.Background(),
		store:        store,
		state:        state,
		cache:        cache,
		registry:     registry,
		invites:      NewInviteService(backing, registry, cache, logger, DefaultRedeemAttempts),
		participants: NewParticipantService(backing, registry, cache, logger),
		security:     NewSecurityService(backing, registry, cache, logger),
		users:        NewUserService(backing, cache, logger),
	}
}

func (f *fixture) seedUser(t *testing.T, role model.UserRole) *model.User {
	t.Helper()
	user := &model.User{ID: uuid.New(), Nickname: "user-" + uuid.NewString()[:8], Role: role}
	require.NoError(t, f.store.Users().Create(f.ctx, user))
	return user
}

func (f *fixture) seedRoom(t *testing.T) *model.Room {
	t.Helper()
	room := &model.Room{ID: uuid.New(), Name: "room-" + uuid.NewString()[:8]}
	require.NoError(t, f.store.Rooms().Create(f.ctx, room))
	return room
}

func (f *fixture) seedInvite(t *testing.T, roomID *uuid.UUID, participantType model.ParticipantType, usesCurrent int) (*model.Invite, *model.RoomInvite) {
	t.Helper()
	invite := model.NewInvite()
	invite.UsesCurrent = usesCurrent
	require.NoError(t, f.store.Invites().Create(f.ctx, invite))

	roomInvite := &model.RoomInvite{
		ID:              uuid.New(),
		InviteID:        &invite.ID,
		RoomID:          roomID,
		ParticipantType: participantType,
	}
	require.NoError(t, f.store.Invites().CreateRoomInvite(f.ctx, roomInvite))
	return invite, roomInvite
}

func (f *fixture) participantCount(t *testing.T, roomID uuid.UUID) int {
	t.Helper()
	list, err := f.store.Participants().ListByRoom(f.ctx, roomID)
	require.NoError(t, err)
	return len(list)
}

func defaultNames(t *testing.T, participantType model.ParticipantType) []string {
	t.Helper()
	set, err := permission.Default().DefaultsFor(participantType)
	require.NoError(t, err)
	return permission.Default().Names(set.IDs())
}

// faults injects failures into the invite repository of a wrapped store.
type faults struct {
	conflicts     atomic.Int32
	increments    atomic.Int32
	slotTaken     atomic.Int32
	roomInviteErr error
}

type faultyStore struct {
	repository.Store
	f *faults
}

func withFaults(f *faults) func(repository.Store) repository.Store {
	return func(s repository.Store) repository.Store { return faultyStore{Store: s, f: f} }
}

func (s faultyStore) Invites() repository.InviteRepository {
	return faultyInvites{InviteRepository: s.Store.Invites(), f: s.f}
}

func (s faultyStore) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.Transaction(ctx, func(tx repository.Store) error {
		return fn(faultyStore{Store: tx, f: s.f})
	})
}

type faultyInvites struct {
	repository.InviteRepository
	f *faults
}

func (r faultyInvites) IncrementUses(ctx context.Context, invite *model.Invite) error {
	r.f.increments.Add(1)
	if r.f.conflicts.Load() > 0 {
		r.f.conflicts.Add(-1)
		return repository.ErrConcurrentUpdate
	}
	return r.InviteRepository.IncrementUses(ctx, invite)
}

func (r faultyInvites) CreateRoomInvite(ctx context.Context, roomInvite *model.RoomInvite) error {
	if r.f.roomInviteErr != nil {
		return r.f.roomInviteErr
	}
	if r.f.slotTaken.Load() > 0 {
		r.f.slotTaken.Add(-1)
		return gorm.ErrDuplicatedKey
	}
	return r.InviteRepository.CreateRoomInvite(ctx, roomInvite)
}

// cancelOnCommit cancels the caller's context as soon as a transaction has
// committed, like a client hanging up right after the write.
type cancelOnCommit struct {
	repository.Store
	cancel context.CancelFunc
}

func (s cancelOnCommit) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	err := s.Store.Transaction(ctx, fn)
	if err == nil {
		s.cancel()
	}
	return err
}
