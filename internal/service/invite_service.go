package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"interviewer/roomhub/internal/model"
	"interviewer/roomhub/internal/repository"
)

// DefaultRedeemAttempts bounds how often an invite transaction restarts after
// losing a compare-and-swap on the invite row or a race for a room's slot.
const DefaultRedeemAttempts = 3

// RoomInviteView is a room's live invite slot for one participant type.
type RoomInviteView struct {
	InviteID        uuid.UUID             `json:"invite_id"`
	RoomInviteID    uuid.UUID             `json:"room_invite_id"`
	RoomID          uuid.UUID             `json:"room_id"`
	ParticipantType model.ParticipantType `json:"participant_type"`
	UsesCurrent     int                   `json:"uses_current"`
	UsesMax         int                   `json:"uses_max"`
}

type InviteService interface {
	// ApplyInvite turns an invite into room membership for userID. A user who
	// already participates gets their participant back and the invite is not
	// charged.
	ApplyInvite(ctx context.Context, inviteID, userID uuid.UUID) (*ParticipantDescriptor, error)
	// GenerateRoomInvites creates an invite for every participant type that
	// the room does not have one for yet.
	GenerateRoomInvites(ctx context.Context, roomID uuid.UUID) ([]RoomInviteView, error)
	// RegenerateRoomInvite replaces the room's invite for one participant type.
	RegenerateRoomInvite(ctx context.Context, roomID uuid.UUID, participantType model.ParticipantType) (*RoomInviteView, error)
	ListRoomInvites(ctx context.Context, roomID uuid.UUID) ([]RoomInviteView, error)
}

type inviteService struct {
	store       repository.Store
	registry    *ParticipantRegistry
	cache       *PermissionCache
	logger      *zap.Logger
	maxAttempts int
}

func NewInviteService(
	store repository.Store,
	registry *ParticipantRegistry,
	cache *PermissionCache,
	logger *zap.Logger,
	maxAttempts int,
) InviteService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultRedeemAttempts
	}
	return &inviteService{
		store:       store,
		registry:    registry,
		cache:       cache,
		logger:      logger,
		maxAttempts: maxAttempts,
	}
}

func (s *inviteService) ApplyInvite(ctx context.Context, inviteID, userID uuid.UUID) (*ParticipantDescriptor, error) {
	var desc *ParticipantDescriptor
	err := s.retryOnConflict("invite redemption", func() (err error) {
		desc, err = s.applyInvite(ctx, inviteID, userID)
		return err
	}, zap.String("invite_id", inviteID.String()))
	if errors.Is(err, repository.ErrConcurrentUpdate) {
		return nil, ErrConcurrentRedemption
	}
	if err != nil {
		return nil, err
	}

	if desc.Created {
		s.cache.Invalidate(ctx, userID, desc.RoomID)
		s.logger.Info("participant joined via invite",
			zap.String("invite_id", inviteID.String()),
			zap.String("room_id", desc.RoomID.String()),
			zap.String("user_id", userID.String()),
			zap.String("type", string(desc.Type)),
		)
	}
	return desc, nil
}

// retryOnConflict reruns attempt while it fails with ErrConcurrentUpdate, at
// most maxAttempts times. The last conflict is returned as is.
func (s *inviteService) retryOnConflict(op string, attempt func() error, field zap.Field) error {
	for n := 1; ; n++ {
		err := attempt()
		if !errors.Is(err, repository.ErrConcurrentUpdate) {
			return err
		}
		if n >= s.maxAttempts {
			s.logger.Warn(op+" gave up after conflicts", field, zap.Int("attempts", n))
			return err
		}
		s.logger.Debug(op+" conflict, retrying", field, zap.Int("attempt", n))
	}
}

// applyInvite is one attempt. Every exit except a nil return rolls back.
func (s *inviteService) applyInvite(ctx context.Context, inviteID, userID uuid.UUID) (*ParticipantDescriptor, error) {
	var desc *ParticipantDescriptor
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		// 1. Lock the invite row until commit
		invite, err := tx.Invites().GetForUpdate(ctx, inviteID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInviteNotFound
			}
			return fmt.Errorf("load invite: %w", err)
		}

		// 2. Budget
		if invite.Exhausted() {
			s.logger.Info("invite redemption rejected: exhausted",
				zap.String("invite_id", inviteID.String()),
				zap.Int("uses_current", invite.UsesCurrent),
				zap.Int("uses_max", invite.UsesMax),
			)
			return ErrInviteAlreadyUsed
		}

		// 3. Room binding
		roomInvite, err := tx.Invites().GetRoomInviteByInviteID(ctx, inviteID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomInviteNotFound
			}
			return fmt.Errorf("load room invite: %w", err)
		}
		if roomInvite.RoomID == nil {
			integrityErr := &IntegrityError{Entity: "room_invite", ID: roomInvite.ID, Detail: "room reference is null"}
			s.logger.Error("orphaned room invite",
				zap.String("invite_id", inviteID.String()),
				zap.String("room_invite_id", roomInvite.ID.String()),
				zap.Error(integrityErr),
			)
			return integrityErr
		}
		roomID := *roomInvite.RoomID
		if _, err := tx.Rooms().GetByID(ctx, roomID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRoomNotFound
			}
			return fmt.Errorf("load room: %w", err)
		}

		// 4. User
		if _, err := tx.Users().GetByID(ctx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}

		// 5. Returning members are a no-op and are not charged
		existing, found, err := s.registry.FindByRoomAndUser(ctx, tx.Participants(), roomID, userID)
		if err != nil {
			return err
		}
		if found {
			desc = s.registry.Describe(existing, false)
			return nil
		}

		participant, err := s.registry.CreateParticipant(ctx, tx.Participants(), userID, roomID, roomInvite.ParticipantType)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Joined through another invite meanwhile; the retry sees it.
				return repository.ErrConcurrentUpdate
			}
			return fmt.Errorf("create participant: %w", err)
		}

		if err := s.updateInviteLimit(ctx, tx.Invites(), invite, roomInvite); err != nil {
			return err
		}

		desc = s.registry.Describe(participant, true)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return desc, nil
}

// updateInviteLimit charges one use. The use that exhausts the invite rotates
// it: the old pair is deleted and a fresh one takes its slot.
func (s *inviteService) updateInviteLimit(
	ctx context.Context,
	invites repository.InviteRepository,
	invite *model.Invite,
	roomInvite *model.RoomInvite,
) error {
	if invite.UsesCurrent+1 < invite.UsesMax {
		if err := invites.IncrementUses(ctx, invite); err != nil {
			return wrapUnlessConflict("increment invite uses", err)
		}
		return nil
	}

	if err := invites.DeleteRoomInvite(ctx, roomInvite.ID); err != nil {
		return fmt.Errorf("delete room invite: %w", err)
	}
	if err := invites.Delete(ctx, invite); err != nil {
		return wrapUnlessConflict("delete invite", err)
	}

	fresh, err := s.createPair(ctx, invites, *roomInvite.RoomID, roomInvite.ParticipantType)
	if err != nil {
		return err
	}
	s.logger.Info("invite rotated",
		zap.String("old_invite_id", invite.ID.String()),
		zap.String("new_invite_id", fresh.InviteID.String()),
		zap.String("room_id", fresh.RoomID.String()),
		zap.String("type", string(fresh.ParticipantType)),
	)
	return nil
}

func wrapUnlessConflict(op string, err error) error {
	if errors.Is(err, repository.ErrConcurrentUpdate) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *inviteService) createPair(
	ctx context.Context,
	invites repository.InviteRepository,
	roomID uuid.UUID,
	participantType model.ParticipantType,
) (*RoomInviteView, error) {
	invite := model.NewInvite()
	if err := invites.Create(ctx, invite); err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}
	roomInvite := &model.RoomInvite{
		ID:              uuid.New(),
		InviteID:        &invite.ID,
		RoomID:          &roomID,
		ParticipantType: participantType,
	}
	if err := invites.CreateRoomInvite(ctx, roomInvite); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another transaction filled the slot first.
			return nil, repository.ErrConcurrentUpdate
		}
		return nil, fmt.Errorf("create room invite: %w", err)
	}
	return &RoomInviteView{
		InviteID:        invite.ID,
		RoomInviteID:    roomInvite.ID,
		RoomID:          roomID,
		ParticipantType: participantType,
		UsesCurrent:     invite.UsesCurrent,
		UsesMax:         invite.UsesMax,
	}, nil
}

func (s *inviteService) GenerateRoomInvites(ctx context.Context, roomID uuid.UUID) ([]RoomInviteView, error) {
	var views []RoomInviteView
	err := s.retryOnConflict("room invite generation", func() (err error) {
		views, err = s.generateRoomInvites(ctx, roomID)
		return err
	}, zap.String("room_id", roomID.String()))
	if errors.Is(err, repository.ErrConcurrentUpdate) {
		return nil, ErrConcurrentInviteChange
	}
	if err != nil {
		return nil, err
	}
	return views, nil
}

func (s *inviteService) generateRoomInvites(ctx context.Context, roomID uuid.UUID) ([]RoomInviteView, error) {
	var views []RoomInviteView
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := ensureRoom(ctx, tx, roomID); err != nil {
			return err
		}
		roomInvites, err := tx.Invites().ListRoomInvites(ctx, roomID)
		if err != nil {
			return fmt.Errorf("list room invites: %w", err)
		}
		existing, err := s.listViews(ctx, tx.Invites(), roomID)
		if err != nil {
			return err
		}

		// A slot held by a broken row is still taken.
		taken := make(map[model.ParticipantType]bool, len(roomInvites))
		for _, ri := range roomInvites {
			taken[ri.ParticipantType] = true
		}
		views = existing
		for _, pt := range model.ParticipantTypes {
			if taken[pt] {
				continue
			}
			view, err := s.createPair(ctx, tx.Invites(), roomID, pt)
			if err != nil {
				return err
			}
			views = append(views, *view)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

func (s *inviteService) RegenerateRoomInvite(ctx context.Context, roomID uuid.UUID, participantType model.ParticipantType) (*RoomInviteView, error) {
	if !participantType.Valid() {
		return nil, ErrUnknownParticipantType
	}

	var view *RoomInviteView
	err := s.retryOnConflict("room invite regeneration", func() (err error) {
		view, err = s.regenerateRoomInvite(ctx, roomID, participantType)
		return err
	}, zap.String("room_id", roomID.String()))
	if errors.Is(err, repository.ErrConcurrentUpdate) {
		return nil, ErrConcurrentInviteChange
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("room invite regenerated",
		zap.String("room_id", roomID.String()),
		zap.String("type", string(participantType)),
		zap.String("invite_id", view.InviteID.String()),
	)
	return view, nil
}

func (s *inviteService) regenerateRoomInvite(ctx context.Context, roomID uuid.UUID, participantType model.ParticipantType) (*RoomInviteView, error) {
	var view *RoomInviteView
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := ensureRoom(ctx, tx, roomID); err != nil {
			return err
		}
		roomInvites, err := tx.Invites().ListRoomInvites(ctx, roomID)
		if err != nil {
			return fmt.Errorf("list room invites: %w", err)
		}

		for _, ri := range roomInvites {
			if ri.ParticipantType != participantType {
				continue
			}
			if err := tx.Invites().DeleteRoomInvite(ctx, ri.ID); err != nil {
				return fmt.Errorf("delete room invite: %w", err)
			}
			if ri.InviteID == nil {
				continue
			}
			invite, err := tx.Invites().GetForUpdate(ctx, *ri.InviteID)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("load invite: %w", err)
			}
			if err := tx.Invites().Delete(ctx, invite); err != nil {
				return fmt.Errorf("delete invite: %w", err)
			}
		}

		view, err = s.createPair(ctx, tx.Invites(), roomID, participantType)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *inviteService) ListRoomInvites(ctx context.Context, roomID uuid.UUID) ([]RoomInviteView, error) {
	if err := ensureRoom(ctx, s.store, roomID); err != nil {
		return nil, err
	}
	return s.listViews(ctx, s.store.Invites(), roomID)
}

func (s *inviteService) listViews(ctx context.Context, invites repository.InviteRepository, roomID uuid.UUID) ([]RoomInviteView, error) {
	roomInvites, err := invites.ListRoomInvites(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list room invites: %w", err)
	}

	views := make([]RoomInviteView, 0, len(roomInvites))
	for _, ri := range roomInvites {
		if ri.InviteID == nil {
			s.logger.Error("room invite without invite reference",
				zap.String("room_invite_id", ri.ID.String()),
				zap.String("room_id", roomID.String()),
			)
			continue
		}
		invite, err := invites.GetByID(ctx, *ri.InviteID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				s.logger.Error("room invite points at a missing invite",
					zap.String("room_invite_id", ri.ID.String()),
					zap.String("invite_id", ri.InviteID.String()),
				)
				continue
			}
			return nil, fmt.Errorf("load invite: %w", err)
		}
		views = append(views, RoomInviteView{
			InviteID:        invite.ID,
			RoomInviteID:    ri.ID,
			RoomID:          roomID,
			ParticipantType: ri.ParticipantType,
			UsesCurrent:     invite.UsesCurrent,
			UsesMax:         invite.UsesMax,
		})
	}
	return views, nil
}

func ensureRoom(ctx context.Context, store repository.Store, roomID uuid.UUID) error {
	if _, err := store.Rooms().GetByID(ctx, roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoomNotFound
		}
		return fmt.Errorf("load room: %w", err)
	}
	return nil
}

var _ InviteService = (*inviteService)(nil)
