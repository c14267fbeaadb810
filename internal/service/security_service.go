package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"interviewer/roomhub/internal/model"
	"interviewer/roomhub/internal/repository"
)

// Decision is the outcome of a permission check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

type SecurityService interface {
	// CheckRoomPermission resolves whether userID may exercise perm in roomID.
	CheckRoomPermission(ctx context.Context, userID, roomID uuid.UUID, perm model.PermissionID) (Decision, error)
	// EnsureRoomPermission returns nil on Allow and an *AccessDeniedError on Deny.
	EnsureRoomPermission(ctx context.Context, userID, roomID uuid.UUID, perm model.PermissionID) error
}

type securityService struct {
	store    repository.Store
	registry *ParticipantRegistry
	cache    *PermissionCache
	logger   *zap.Logger
}

// NewSecurityService builds the resolver. cache may be nil.
func NewSecurityService(
	store repository.Store,
	registry *ParticipantRegistry,
	cache *PermissionCache,
	logger *zap.Logger,
) SecurityService {
	return &securityService{
		store:    store,
		registry: registry,
		cache:    cache,
		logger:   logger,
	}
}

func (s *securityService) CheckRoomPermission(ctx context.Context, userID, roomID uuid.UUID, perm model.PermissionID) (Decision, error) {
	if _, ok := s.registry.Catalog().Lookup(perm); !ok {
		return Decision{}, ErrUnknownPermission
	}

	// The key is fixed before the store read; see PermissionCache.
	key := s.cache.entryKey(ctx, userID, roomID)
	if snap, ok := s.cache.get(ctx, key); ok {
		return decide(snap, perm), nil
	}

	snap, err := s.resolve(ctx, userID, roomID)
	if err != nil {
		return Decision{}, err
	}
	s.cache.put(ctx, key, snap)
	return decide(snap, perm), nil
}

func (s *securityService) EnsureRoomPermission(ctx context.Context, userID, roomID uuid.UUID, perm model.PermissionID) error {
	decision, err := s.CheckRoomPermission(ctx, userID, roomID, perm)
	if err != nil {
		return err
	}
	if decision.Allowed {
		return nil
	}

	name := s.registry.Catalog().Name(perm)
	s.logger.Debug("room permission denied",
		zap.String("user_id", userID.String()),
		zap.String("room_id", roomID.String()),
		zap.String("permission", name),
		zap.String("reason", decision.Reason),
	)
	return &AccessDeniedError{Permission: name, Reason: decision.Reason}
}

// resolve reads the store of record. An unknown user is neither admin nor a
// participant, so the check denies instead of revealing the user's absence.
func (s *securityService) resolve(ctx context.Context, userID, roomID uuid.UUID) (permissionSnapshot, error) {
	// 1. Global admin override
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return permissionSnapshot{}, fmt.Errorf("load user: %w", err)
	}
	if err == nil && user.IsAdmin() {
		return permissionSnapshot{Admin: true}, nil
	}

	// 2. Room participant
	participant, found, err := s.registry.FindByRoomAndUser(ctx, s.store.Participants(), roomID, userID)
	if err != nil {
		return permissionSnapshot{}, err
	}
	if !found {
		return permissionSnapshot{}, nil
	}

	// 3. Granted set
	ids := participant.PermissionIDs()
	slices.Sort(ids)
	return permissionSnapshot{
		Member:      true,
		Type:        participant.Type,
		Permissions: ids,
	}, nil
}

func decide(snap permissionSnapshot, perm model.PermissionID) Decision {
	switch {
	case snap.Admin:
		return Decision{Allowed: true, Reason: ReasonAdmin}
	case !snap.Member:
		return Decision{Allowed: false, Reason: ReasonNotParticipant}
	case slices.Contains(snap.Permissions, perm):
		return Decision{Allowed: true, Reason: ReasonGranted}
	default:
		return Decision{Allowed: false, Reason: ReasonPermissionNotGranted}
	}
}

var _ SecurityService = (*securityService)(nil)
