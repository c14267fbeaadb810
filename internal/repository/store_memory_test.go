package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"interviewer/roomhub/internal/model"
)

func TestMemoryStoreTransactionCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	invite := model.NewInvite()
	err := store.Transaction(ctx, func(tx Store) error {
		return tx.Invites().Create(ctx, invite)
	})
	require.NoError(t, err)

	got, err := store.Invites().GetByID(ctx, invite.ID)
	require.NoError(t, err)
	require.Equal(t, model.DefaultInviteUsesMax, got.UsesMax)
	require.EqualValues(t, 1, got.Version)
}

func TestMemoryStoreTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	boom := errors.New("boom")

	t.Run("on error", func(t *testing.T) {
		invite := model.NewInvite()
		err := store.Transaction(ctx, func(tx Store) error {
			require.NoError(t, tx.Invites().Create(ctx, invite))
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = store.Invites().GetByID(ctx, invite.ID)
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("on panic", func(t *testing.T) {
		invite := model.NewInvite()
		require.Panics(t, func() {
			_ = store.Transaction(ctx, func(tx Store) error {
				require.NoError(t, tx.Invites().Create(ctx, invite))
				panic("boom")
			})
		})

		_, err := store.Invites().GetByID(ctx, invite.ID)
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("on cancellation before commit", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		invite := model.NewInvite()
		err := store.Transaction(cctx, func(tx Store) error {
			require.NoError(t, tx.Invites().Create(cctx, invite))
			cancel()
			return nil
		})
		require.ErrorIs(t, err, context.Canceled)

		_, err = store.Invites().GetByID(ctx, invite.ID)
		require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestMemoryInviteCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	invite := &model.Invite{UsesCurrent: 3, UsesMax: 4}
	require.NoError(t, store.Invites().Create(ctx, invite))

	stale := *invite
	require.NoError(t, store.Invites().IncrementUses(ctx, invite))
	require.Equal(t, 4, invite.UsesCurrent)
	require.EqualValues(t, 2, invite.Version)

	// version moved on
	require.ErrorIs(t, store.Invites().IncrementUses(ctx, &stale), ErrConcurrentUpdate)
	require.ErrorIs(t, store.Invites().Delete(ctx, &stale), ErrConcurrentUpdate)

	// budget exhausted
	require.ErrorIs(t, store.Invites().IncrementUses(ctx, invite), ErrConcurrentUpdate)

	require.NoError(t, store.Invites().Delete(ctx, invite))
	_, err := store.Invites().GetByID(ctx, invite.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMemoryInviteRejectsBrokenCounters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Invites().Create(ctx, &model.Invite{UsesCurrent: 6, UsesMax: 5})
	require.ErrorIs(t, err, gorm.ErrCheckConstraintViolated)

	err = store.Invites().Create(ctx, &model.Invite{UsesMax: 0})
	require.ErrorIs(t, err, gorm.ErrCheckConstraintViolated)
}

func TestMemoryRoomInvites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	roomID := uuid.New()

	invite := model.NewInvite()
	require.NoError(t, store.Invites().Create(ctx, invite))
	ri := &model.RoomInvite{InviteID: &invite.ID, RoomID: &roomID, ParticipantType: model.ParticipantTypeViewer}
	require.NoError(t, store.Invites().CreateRoomInvite(ctx, ri))

	dup := &model.RoomInvite{InviteID: &invite.ID, RoomID: &roomID, ParticipantType: model.ParticipantTypeExpert}
	require.ErrorIs(t, store.Invites().CreateRoomInvite(ctx, dup), gorm.ErrDuplicatedKey)

	second := model.NewInvite()
	require.NoError(t, store.Invites().Create(ctx, second))
	sameSlot := &model.RoomInvite{InviteID: &second.ID, RoomID: &roomID, ParticipantType: model.ParticipantTypeViewer}
	require.ErrorIs(t, store.Invites().CreateRoomInvite(ctx, sameSlot), gorm.ErrDuplicatedKey)
	otherSlot := &model.RoomInvite{InviteID: &second.ID, RoomID: &roomID, ParticipantType: model.ParticipantTypeExpert}
	require.NoError(t, store.Invites().CreateRoomInvite(ctx, otherSlot))

	got, err := store.Invites().GetRoomInviteByInviteID(ctx, invite.ID)
	require.NoError(t, err)
	require.Equal(t, ri.ID, got.ID)

	list, err := store.Invites().ListRoomInvites(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, store.Invites().DeleteRoomInvite(ctx, ri.ID))
	_, err = store.Invites().GetRoomInviteByInviteID(ctx, invite.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMemoryParticipants(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	roomID, userID := uuid.New(), uuid.New()

	p := &model.RoomParticipant{
		RoomID: roomID,
		UserID: userID,
		Type:   model.ParticipantTypeViewer,
		Permissions: []model.ParticipantPermission{
			{PermissionID: 7}, {PermissionID: 1},
		},
	}
	require.NoError(t, store.Participants().Create(ctx, p))
	require.NotEqual(t, uuid.Nil, p.ID)

	err := store.Participants().Create(ctx, &model.RoomParticipant{RoomID: roomID, UserID: userID, Type: model.ParticipantTypeExpert})
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	got, err := store.Participants().FindByRoomAndUser(ctx, roomID, userID)
	require.NoError(t, err)
	require.Equal(t, []model.PermissionID{1, 7}, got.PermissionIDs())

	// returned values are copies
	got.Permissions[0].PermissionID = 40
	again, err := store.Participants().FindByRoomAndUser(ctx, roomID, userID)
	require.NoError(t, err)
	require.Equal(t, []model.PermissionID{1, 7}, again.PermissionIDs())

	require.NoError(t, store.Participants().AddPermission(ctx, p.ID, 3))
	require.NoError(t, store.Participants().AddPermission(ctx, p.ID, 3))
	require.NoError(t, store.Participants().RemovePermission(ctx, p.ID, 7))
	got, err = store.Participants().FindByRoomAndUser(ctx, roomID, userID)
	require.NoError(t, err)
	require.Equal(t, []model.PermissionID{1, 3}, got.PermissionIDs())

	require.NoError(t, store.Participants().UpdateType(ctx, p.ID, model.ParticipantTypeExpert))
	require.NoError(t, store.Participants().ReplacePermissions(ctx, p.ID, []model.PermissionID{2}))
	got, err = store.Participants().FindByRoomAndUser(ctx, roomID, userID)
	require.NoError(t, err)
	require.Equal(t, model.ParticipantTypeExpert, got.Type)
	require.Equal(t, []model.PermissionID{2}, got.PermissionIDs())

	require.ErrorIs(t, store.Participants().UpdateType(ctx, uuid.New(), model.ParticipantTypeViewer), gorm.ErrRecordNotFound)

	list, err := store.Participants().ListByRoom(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestMemoryUserRole(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	user := &model.User{ID: uuid.New()}
	require.NoError(t, store.Users().Create(ctx, user))
	require.Equal(t, model.UserRoleUser, user.Role)

	require.NoError(t, store.Users().UpdateRole(ctx, user.ID, model.UserRoleAdmin))
	got, err := store.Users().GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, got.IsAdmin())

	require.ErrorIs(t, store.Users().UpdateRole(ctx, uuid.New(), model.UserRoleAdmin), gorm.ErrRecordNotFound)
}
