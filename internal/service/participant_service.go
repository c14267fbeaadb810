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

type ParticipantService interface {
	AddParticipant(ctx context.Context, roomID, userID uuid.UUID, participantType model.ParticipantType) (*ParticipantDescriptor, error)
	GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (*ParticipantDescriptor, error)
	ListParticipants(ctx context.Context, roomID uuid.UUID) ([]*ParticipantDescriptor, error)
	// ChangeParticipantType resets the participant's permissions to the
	// defaults of the new type.
	ChangeParticipantType(ctx context.Context, roomID, userID uuid.UUID, participantType model.ParticipantType) (*ParticipantDescriptor, error)
	GrantPermission(ctx context.Context, roomID, userID uuid.UUID, perm model.PermissionID) (*ParticipantDescriptor, error)
	RevokePermission(ctx context.Context, roomID, userID uuid.UUID, perm model.PermissionID) (*ParticipantDescriptor, error)
}

type participantService struct {
	store    repository.Store
	registry *ParticipantRegistry
	cache    *PermissionCache
	logger   *zap.Logger
}

func NewParticipantService(
	store repository.Store,
	registry *ParticipantRegistry,
	cache *PermissionCache,
	logger *zap.Logger,
) ParticipantService {
	return &participantService{
		store:    store,
		registry: registry,
		cache:    cache,
		logger:   logger,
	}
}

func (s *participantService) AddParticipant(ctx context.Context, roomID, userID uuid.UUID, participantType model.ParticipantType) (*ParticipantDescriptor, error) {
	if !participantType.Valid() {
		return nil, ErrUnknownParticipantType
	}

	var desc *ParticipantDescriptor
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := ensureRoom(ctx, tx, roomID); err != nil {
			return err
		}
		if _, err := tx.Users().GetByID(ctx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("load user: %w", err)
		}

		_, found, err := s.registry.FindByRoomAndUser(ctx, tx.Participants(), roomID, userID)
		if err != nil {
			return err
		}
		if found {
			return ErrParticipantAlreadyExists
		}

		participant, err := s.registry.CreateParticipant(ctx, tx.Participants(), userID, roomID, participantType)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrParticipantAlreadyExists
			}
			return fmt.Errorf("create participant: %w", err)
		}
		desc = s.registry.Describe(participant, true)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, userID, roomID)
	s.logger.Info("participant added",
		zap.String("room_id", roomID.String()),
		zap.String("user_id", userID.String()),
		zap.String("type", string(participantType)),
	)
	return desc, nil
}

func (s *participantService) GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (*ParticipantDescriptor, error) {
	participant, found, err := s.registry.FindByRoomAndUser(ctx, s.store.Participants(), roomID, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrParticipantNotFound
	}
	return s.registry.Describe(participant, false), nil
}

func (s *participantService) ListParticipants(ctx context.Context, roomID uuid.UUID) ([]*ParticipantDescriptor, error) {
	if err := ensureRoom(ctx, s.store, roomID); err != nil {
		return nil, err
	}
	participants, err := s.store.Participants().ListByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	out := make([]*ParticipantDescriptor, 0, len(participants))
	for i := range participants {
		out = append(out, s.registry.Describe(&participants[i], false))
	}
	return out, nil
}

func (s *participantService) ChangeParticipantType(ctx context.Context, roomID, userID uuid.UUID, participantType model.ParticipantType) (*ParticipantDescriptor, error) {
	if !participantType.Valid() {
		return nil, ErrUnknownParticipantType
	}
	return s.mutate(ctx, roomID, userID, "participant type changed", func(tx repository.Store, p *model.RoomParticipant) error {
		return s.registry.ChangeParticipantType(ctx, tx.Participants(), p, participantType)
	})
}

func (s *participantService) GrantPermission(ctx context.Context, roomID, userID uuid.UUID, perm model.PermissionID) (*ParticipantDescriptor, error) {
	if _, ok := s.registry.Catalog().Lookup(perm); !ok {
		return nil, ErrUnknownPermission
	}
	return s.mutate(ctx, roomID, userID, "permission granted", func(tx repository.Store, p *model.RoomParticipant) error {
		if err := tx.Participants().AddPermission(ctx, p.ID, perm); err != nil {
			return fmt.Errorf("grant permission: %w", err)
		}
		return nil
	}, zap.String("permission", s.registry.Catalog().Name(perm)))
}

func (s *participantService) RevokePermission(ctx context.Context, roomID, userID uuid.UUID, perm model.PermissionID) (*ParticipantDescriptor, error) {
	if _, ok := s.registry.Catalog().Lookup(perm); !ok {
		return nil, ErrUnknownPermission
	}
	return s.mutate(ctx, roomID, userID, "permission revoked", func(tx repository.Store, p *model.RoomParticipant) error {
		if err := tx.Participants().RemovePermission(ctx, p.ID, perm); err != nil {
			return fmt.Errorf("revoke permission: %w", err)
		}
		return nil
	}, zap.String("permission", s.registry.Catalog().Name(perm)))
}

// mutate runs fn on the participant inside a transaction, then reloads it and
// drops the cached resolution once the change is committed.
func (s *participantService) mutate(
	ctx context.Context,
	roomID, userID uuid.UUID,
	event string,
	fn func(tx repository.Store, p *model.RoomParticipant) error,
	fields ...zap.Field,
) (*ParticipantDescriptor, error) {
	var desc *ParticipantDescriptor
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		participant, found, err := s.registry.FindByRoomAndUser(ctx, tx.Participants(), roomID, userID)
		if err != nil {
			return err
		}
		if !found {
			return ErrParticipantNotFound
		}
		if err := fn(tx, participant); err != nil {
			return err
		}

		updated, _, err := s.registry.FindByRoomAndUser(ctx, tx.Participants(), roomID, userID)
		if err != nil {
			return err
		}
		desc = s.registry.Describe(updated, false)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, userID, roomID)
	s.logger.Info(event, append([]zap.Field{
		zap.String("room_id", roomID.String()),
		zap.String("user_id", userID.String()),
		zap.String("type", string(desc.Type)),
	}, fields...)...)
	return desc, nil
}

var _ ParticipantService = (*participantService)(nil)
