package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"interviewer/roomhub/internal/model"
)

func TestApplyInviteCreatesParticipant(t *testing.T) {
	f := newFixture(t)
	room := f.seedRoom(t)
	user := f.seedUser(t, model.UserRoleUser)
	invite, _ := f.seedInvite(t, &room.ID, model.ParticipantTypeExaminee, 0)

	desc, err := f.invites.ApplyInvite(f.ctx, invite.ID, user.ID)
	require.NoError(t, err)
	require.True(t, desc.Created)
	require.Equal(t, room.ID, desc.RoomID)
	require.Equal(t, user.ID, desc.UserID)
	require.Equal(t, model.ParticipantTypeExaminee, desc.Type)
	require.Equal(t, defaultNames(t, model.ParticipantTypeExaminee), desc.Permissions)

	stored, err := f.store.Invites().GetByID(f.ctx, invite.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.UsesCurrent)
	require.Equal(t, 1, f.participantCount(t, room.ID))
}

func TestApplyInviteReturningMemberIsNoop(t *testing.T) {
	f := newFixture(t)
	room := f.seedRoom(t)
	user := f.seedUser(t, model.UserRoleUser)
	invite, _ := f.seedInvite(t, &room.ID, model.ParticipantTypeViewer, 0)

	first, err := f.invites.ApplyInvite(f.ctx, invite.ID, user.ID)
	require.NoError(t, err)

	second, err := f.invites.ApplyInvite(f.ctx, invite.ID, user.ID)
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.ID, second.ID)

	stored, err := f.store.Invites().GetByID(f.ctx, invite.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.UsesCurrent)
	require.Equal(t, 1, f.participantCount(t, room.ID))
}

func TestApplyInviteReturningMemberKeepsExistingType(t *testing.T) {
	f := newFixture(t)
	room := f.seedRoom(t)
	user := f.seedUser(t, model.UserRoleUser)
	_, err := f.participants.AddParticipant(f.ctx, room.ID, user.ID, model.ParticipantTypeExpert)
	require.NoError(t, err)

	invite, _ := f.seedInvite(t, &room.ID, model.ParticipantTypeViewer, 4)
	desc, err := f.invites.ApplyInvite(f.ctx, invite.ID, user.ID)
	require.NoError(t, err)
	require.False(t, desc.Created)
	require.Equal(t, model.ParticipantTypeExpert, desc.Type)

	// Not charged, so the last use is still available and no rotation ran.
	stored, err := f.store.Invites().GetByID(f.ctx, invite.ID)
	require.NoError(t, err)
	require.Equal(t, 4, stored.UsesCurrent)
}

func TestApplyInviteExhausted(t *testing.T) {
	f := newFixture(t)
	room := f.seedRoom(t)
	user := f.seedUser(t, model.UserRoleUser)
	invite, roomInvite := f.seedInvite(t, &room.ID, model.ParticipantTypeViewer, model.DefaultInviteUsesMax)

	_, err := f.invites.ApplyInvite(f.ctx, invite.ID, user.ID)
	require.ErrorIs(t, err, ErrInviteAlreadyUsed)

	stored, err := f.store.Invites().GetByID(f.ctx, invite.ID)
	require.NoError(t, err)
	require.Equal(t, invite.UsesCurrent, stored.UsesCurrent)
	require.Equal(t, invite.Version, stored.Version)

	ri, err := f.store.Invites().GetRoomInviteByInviteID(f.ctx, invite.ID)
	require.NoError(t, err)
	require.Equal(t, roomInvite.ID, ri.ID)
	require.Zero(t, f.participantCount(t, room.ID))
}

func TestApplyInviteRotatesOnLastUse(t *testing.T) {
	f := newFixture(t)
	room := f.seedRoom(t)
	user := f.seedUser(t, model.UserRoleUser)
	invite, roomInvite := f.seedInvite(t, &room.ID, model.ParticipantTypeExpert, 4)

	desc, err := f.invites.ApplyInvite(f.ctx, invite.ID, user.ID)
	require.NoError(t, err)
	require.True(t, desc.Created)
	require.Equal(t, model.ParticipantTypeExpert, desc.Type)
	require.Equal(t, defaultNames(t, model.ParticipantTypeExpert), desc.Permissions)

	_, err = f.store.Invites().GetByID(f.ctx, invite.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = f.store.Invites().GetRoomInviteByInviteID(f.ctx, invite.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	views, err := f.invites.ListRoomInvites(f.ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	fresh := views[0]
	require.NotEqual(t, invite.ID, fresh.InviteID)
	require.NotEqual(t, roomInvite.ID, fresh.RoomInviteID)
	require.Equal(t, room.ID, fresh.RoomID)
	require.Equal(t, model.ParticipantTypeExpert, fresh.ParticipantType)
	require.Zero(t, fresh.UsesCurrent)
	require.Equal(t, model.DefaultInviteUsesMax, fresh.UsesMax)

	// The old identifier stays dead.
	other := f.seedUser(t, model.UserRoleUser)
	_, err = f.invites.ApplyInvite(f.ctx, invite.ID, other.ID)
	require.ErrorIs(t, err, ErrInviteNotFound)
}

func TestApplyInviteMissingReferences(t *testing.T) {
	f := newFixture(t)
	room := f.seedRoom(t)
	user := f.seedUser(t, model.UserRoleUser)

	t.Run("invite", func(t *testing.T) {
		_, err := f.invites.ApplyInvite(f.ctx, uuid.New(), user.ID)
		require.ErrorIs(t, err, ErrInviteNotFound)
	})

	t.Run("room invite", func(t *testing.T) {
		invite := model.NewInvite()
		require.NoError(t, f.store.Invites().Create(f.ctx, invite))
		_, err := f.invites.ApplyInvite(f.ctx, invite.ID, user.ID)
		require.ErrorIs(t, err, ErrRoomInviteNotFound)
	})

	t.Run("room", func(t *testing.T) {
		missing := uuid.New()
		invite, _ := f.seedInvite(t, &missing, model.ParticipantTypeViewer, 0)
		_, err := f.invites.ApplyInvite(f.ctx, invite.ID, user.ID)
		require.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("user", func(t *testing.T) {
		invite, _ := f.seedInvite(t, &room.ID, model.ParticipantTypeViewer, 0)
		_, err := f.invites.ApplyInvite(f.ctx, invite.ID, uuid.New())
		require.ErrorIs(t, err, ErrUserNotFound)

		stored, err := f.store.Invites().GetByID(f.ctx, invite.ID)
		require.NoError(t, err)
		require.Zero(t, stored.UsesCurrent)
	})
}

func TestApplyInviteOrphanedRoomInvite(t *testing.T) {
	f := newFixture(t)
	user := f.seedUser(t, model.UserRoleUser)
	invite, roomInvite := f.seedInvite(t, nil, model.ParticipantTypeViewer, 0)

	_, err := f.invites.ApplyInvite(f.ctx, invite.ID, user.ID)
	require.ErrorIs(t, err, ErrIntegrityViolation)

	var integrityErr *IntegrityError
	require.True(t, errors.As(err, &integrityErr))
	require.Equal(t, roomInvite.ID, integrityErr.ID)

	stored, err := f.store.Invites().GetByID(f.ctx, invite.ID)
	require.NoError(t, err)
	require.Zero(t, stored.UsesCurrent)
}

func TestApplyInviteRollsBackOnRotationFailure(t *testing.T) {
	flt := &faults{roomInviteErr: errors.New("disk full")}
	f := newFixtureWithStore(t, withFaults(flt))
	room := f.seedRoom(t)
	user := f.seedUser(t, model.UserRoleUser)
	invite, roomInvite := f.seedInvite(t, &room.ID, model.ParticipantTypeViewer, 4)

	_, err := f.invites.ApplyInvite(f.ctx, invite.ID, user.ID)
	require.ErrorIs(t, err, flt.roomInviteErr)

	stored, err := f.store.Invites().GetByID(f.ctx, invite.ID)
	require.NoError(t, err)
	require.Equal(t, 4, stored.UsesCurrent)
	ri, err := f.store.Invites().GetRoomInviteByInviteID(f.ctx, invite.ID)
	require.NoError(t, err)
	require.Equal(t, roomInvite.ID, ri.ID)
	require.Zero(t, f.participantCount(t, room.ID))
}

func TestApplyInviteCancelledContext(t *testing.T) {
	f := newFixture(t)
	room := f.seedRoom(t)
	user := f.seedUser(t, model.UserRoleUser)
	invite, _ := f.seedInvite(t, &room.ID, model.ParticipantTypeViewer, 0)

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()
	_, err := f.invites.ApplyInvite(ctx, invite.ID, user.ID)
	require.ErrorIs(t, err, context.Canceled)

	stored, err := f.store.Invites().GetByID(f.ctx, invite.ID)
	require.NoError(t, err)
	require.Zero(t, stored.UsesCurrent)
	require.Zero(t, f.participantCount(t, room.ID))
}

func TestApplyInviteRetriesLostCompareAndSwap(t *testing.T) {
	t.Run("succeeds within budget", func(t *testing.T) {
		flt := &faults{}
		flt.conflicts.Store(DefaultRedeemAttempts - 1)
		f := newFixtureWithStore(t, withFaults(flt))
		room := f.seedRoom(t)
		user := f.seedUser(t, model.UserRoleUser)
		invite, _ := f.seedInvite(t, &room.ID, model.ParticipantTypeViewer, 0)

		desc, err := f.invites.ApplyInvite(f.ctx, invite.ID, user.ID)
		require.NoError(t, err)
		require.True(t, desc.Created)
		require.EqualValues(t, DefaultRedeemAttempts, flt.increments.Load())

		stored, err := f.store.Invites().GetByID(f.ctx, invite.ID)
		require.NoError(t, err)
		require.Equal(t, 1, stored.UsesCurrent)
		require.Equal(t, 1, f.participantCount(t, room.ID))
	})

	t.Run("gives up after budget", func(t *testing.T) {
		flt := &faults{}
		flt.conflicts.Store(DefaultRedeemAttempts)
		f := newFixtureWithStore(t, withFaults(flt))
		room := f.seedRoom(t)
		user := f.seedUser(t, model.UserRoleUser)
		invite, _ := f.seedInvite(t, &room.ID, model.ParticipantTypeViewer, 0)

		_, err := f.invites.ApplyInvite(f.ctx, invite.ID, user.ID)
		require.ErrorIs(t, err, ErrConcurrentRedemption)

		stored, err := f.store.Invites().GetByID(f.ctx, invite.ID)
		require.NoError(t, err)
		require.Zero(t, stored.UsesCurrent)
		require.Zero(t, f.participantCount(t, room.ID))
	})
}

func TestApplyInviteConcurrentRedemption(t *testing.T) {
	t.Run("last slot", func(t *testing.T) {
		f := newFixture(t)
		room := f.seedRoom(t)
		invite, _ := f.seedInvite(t, &room.ID, model.ParticipantTypeViewer, 4)
		users := []*model.User{f.seedUser(t, model.UserRoleUser), f.seedUser(t, model.UserRoleUser)}

		errs := redeemConcurrently(f, invite.ID, users)

		var ok int
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			// The winner rotated the invite away, so the loser usually sees
			// NotFound; AlreadyUsed is the other legal outcome.
			require.NotErrorIs(t, err, ErrConcurrentRedemption)
			require.True(t, errors.Is(err, ErrInviteNotFound) != errors.Is(err, ErrInviteAlreadyUsed), err)
		}
		require.Equal(t, 1, ok)
		require.Equal(t, 1, f.participantCount(t, room.ID))
	})

	t.Run("budget never exceeded", func(t *testing.T) {
		f := newFixture(t)
		room := f.seedRoom(t)
		invite, _ := f.seedInvite(t, &room.ID, model.ParticipantTypeViewer, 0)
		users := make([]*model.User, 20)
		for i := range users {
			users[i] = f.seedUser(t, model.UserRoleUser)
		}

		errs := redeemConcurrently(f, invite.ID, users)

		var ok int
		for _, err := range errs {
			if err == nil {
				ok++
				continue
			}
			require.NotErrorIs(t, err, ErrConcurrentRedemption)
		}
		require.Equal(t, model.DefaultInviteUsesMax, ok)
		require.Equal(t, model.DefaultInviteUsesMax, f.participantCount(t, room.ID))

		views, err := f.invites.ListRoomInvites(f.ctx, room.ID)
		require.NoError(t, err)
		require.Len(t, views, 1)
		require.Zero(t, views[0].UsesCurrent)
	})
}

func redeemConcurrently(f *fixture, inviteID uuid.UUID, users []*model.User) []error {
	errs := make([]error, len(users))
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = f.invites.ApplyInvite(f.ctx, inviteID, u.ID)
		}()
	}
	close(start)
	wg.Wait()
	return errs
}

func TestGenerateRoomInvites(t *testing.T) {
	f := newFixture(t)
	room := f.seedRoom(t)

	views, err := f.invites.GenerateRoomInvites(f.ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, views, len(model.ParticipantTypes))

	// Idempotent: existing slots are kept.
	again, err := f.invites.GenerateRoomInvites(f.ctx, room.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, views, again)

	_, err = f.invites.GenerateRoomInvites(f.ctx, uuid.New())
	require.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRegenerateRoomInvite(t *testing.T) {
	f := newFixture(t)
	room := f.seedRoom(t)
	old, _ := f.seedInvite(t, &room.ID, model.ParticipantTypeExaminee, 2)

	view, err := f.invites.RegenerateRoomInvite(f.ctx, room.ID, model.ParticipantTypeExaminee)
	require.NoError(t, err)
	require.NotEqual(t, old.ID, view.InviteID)
	require.Zero(t, view.UsesCurrent)

	_, err = f.store.Invites().GetByID(f.ctx, old.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	views, err := f.invites.ListRoomInvites(f.ctx, room.ID)
	require.NoError(t, err)
	require.Equal(t, []RoomInviteView{*view}, views)

	_, err = f.invites.RegenerateRoomInvite(f.ctx, room.ID, "Spectator")
	require.ErrorIs(t, err, ErrUnknownParticipantType)
}

func TestGenerateRoomInvitesConcurrently(t *testing.T) {
	f := newFixture(t)
	room := f.seedRoom(t)

	results := make([][]RoomInviteView, 8)
	errs := make([]error, len(results))
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i], errs[i] = f.invites.GenerateRoomInvites(f.ctx, room.ID)
		}()
	}
	close(start)
	wg.Wait()

	views, err := f.invites.ListRoomInvites(f.ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, views, len(model.ParticipantTypes))
	for i := range results {
		require.NoError(t, errs[i])
		require.ElementsMatch(t, views, results[i])
	}
}

func TestRoomInviteSlotTakenConcurrently(t *testing.T) {
	t.Run("generate retries", func(t *testing.T) {
		flt := &faults{}
		flt.slotTaken.Store(1)
		f := newFixtureWithStore(t, withFaults(flt))
		room := f.seedRoom(t)

		views, err := f.invites.GenerateRoomInvites(f.ctx, room.ID)
		require.NoError(t, err)
		require.Len(t, views, len(model.ParticipantTypes))
	})

	t.Run("regenerate retries", func(t *testing.T) {
		flt := &faults{}
		f := newFixtureWithStore(t, withFaults(flt))
		room := f.seedRoom(t)
		old, _ := f.seedInvite(t, &room.ID, model.ParticipantTypeExpert, 1)

		flt.slotTaken.Store(1)
		view, err := f.invites.RegenerateRoomInvite(f.ctx, room.ID, model.ParticipantTypeExpert)
		require.NoError(t, err)
		require.NotEqual(t, old.ID, view.InviteID)

		views, err := f.invites.ListRoomInvites(f.ctx, room.ID)
		require.NoError(t, err)
		require.Equal(t, []RoomInviteView{*view}, views)
	})

	t.Run("rotation retries", func(t *testing.T) {
		flt := &faults{}
		f := newFixtureWithStore(t, withFaults(flt))
		room := f.seedRoom(t)
		user := f.seedUser(t, model.UserRoleUser)
		invite, _ := f.seedInvite(t, &room.ID, model.ParticipantTypeViewer, 4)

		flt.slotTaken.Store(1)
		desc, err := f.invites.ApplyInvite(f.ctx, invite.ID, user.ID)
		require.NoError(t, err)
		require.True(t, desc.Created)
		require.Equal(t, 1, f.participantCount(t, room.ID))

		views, err := f.invites.ListRoomInvites(f.ctx, room.ID)
		require.NoError(t, err)
		require.Len(t, views, 1)
		require.Zero(t, views[0].UsesCurrent)
	})

	t.Run("gives up after budget", func(t *testing.T) {
		flt := &faults{}
		flt.slotTaken.Store(DefaultRedeemAttempts)
		f := newFixtureWithStore(t, withFaults(flt))
		room := f.seedRoom(t)

		_, err := f.invites.GenerateRoomInvites(f.ctx, room.ID)
		require.ErrorIs(t, err, ErrConcurrentInviteChange)

		roomInvites, err := f.store.Invites().ListRoomInvites(f.ctx, room.ID)
		require.NoError(t, err)
		require.Empty(t, roomInvites)
	})

	t.Run("broken slot is not duplicated", func(t *testing.T) {
		f := newFixture(t)
		room := f.seedRoom(t)
		require.NoError(t, f.store.Invites().CreateRoomInvite(f.ctx, &model.RoomInvite{
			ID: uuid.New(), RoomID: &room.ID, ParticipantType: model.ParticipantTypeViewer,
		}))

		views, err := f.invites.GenerateRoomInvites(f.ctx, room.ID)
		require.NoError(t, err)
		require.Len(t, views, len(model.ParticipantTypes)-1)
		for _, v := range views {
			require.NotEqual(t, model.ParticipantTypeViewer, v.ParticipantType)
		}
	})
}
