package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"interviewer/roomhub/internal/model"
	"interviewer/roomhub/internal/repository"
)

const (
	DefaultPermissionCacheTTL = 30 * time.Second
	DefaultEpochTTL           = 24 * time.Hour

	// invalidateTimeout bounds an epoch write once it is detached from the
	// caller's context.
	invalidateTimeout = 2 * time.Second
)

// permissionSnapshot is what a resolution learned about (user, room).
type permissionSnapshot struct {
	Admin       bool                  `json:"a,omitempty"`
	Member      bool                  `json:"m,omitempty"`
	Type        model.ParticipantType `json:"t,omitempty"`
	Permissions []model.PermissionID  `json:"p,omitempty"`
}

// PermissionCache memoises resolutions per (user, room) in a StateStore.
//
// Entries live under keys that embed two epochs, one per user and one per
// (user, room). Epochs are read before the store of record is consulted and
// invalidation installs a fresh epoch after commit, so a resolver that raced
// with a mutation writes its stale snapshot under a key nobody reads again.
// The TTL bounds staleness when an invalidation is missed.
//
// A nil *PermissionCache is valid and caches nothing.
type PermissionCache struct {
	store    repository.StateStore
	ttl      time.Duration
	epochTTL time.Duration
	logger   *zap.Logger
}

func NewPermissionCache(store repository.StateStore, ttl, epochTTL time.Duration, logger *zap.Logger) *PermissionCache {
	if ttl <= 0 {
		ttl = DefaultPermissionCacheTTL
	}
	if epochTTL <= ttl {
		epochTTL = DefaultEpochTTL
	}
	return &PermissionCache{store: store, ttl: ttl, epochTTL: epochTTL, logger: logger}
}

func userEpochKey(userID uuid.UUID) string {
	return "roomperm:epoch:u:" + userID.String()
}

func pairEpochKey(userID, roomID uuid.UUID) string {
	return "roomperm:epoch:p:" + userID.String() + ":" + roomID.String()
}

func (c *PermissionCache) epoch(ctx context.Context, key string) (string, error) {
	val, err := c.store.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if val != nil {
		return string(val), nil
	}
	fresh := uuid.NewString()
	if err := c.store.Set(ctx, key, []byte(fresh), c.epochTTL); err != nil {
		return "", err
	}
	return fresh, nil
}

// entryKey returns the key valid right now, or "" if the backend failed.
func (c *PermissionCache) entryKey(ctx context.Context, userID, roomID uuid.UUID) string {
	if c == nil {
		return ""
	}
	ue, err := c.epoch(ctx, userEpochKey(userID))
	if err != nil {
		c.logger.Warn("permission cache: read user epoch", zap.Error(err))
		return ""
	}
	pe, err := c.epoch(ctx, pairEpochKey(userID, roomID))
	if err != nil {
		c.logger.Warn("permission cache: read pair epoch", zap.Error(err))
		return ""
	}
	return fmt.Sprintf("roomperm:%s:%s:%s:%s", userID, roomID, ue, pe)
}

func (c *PermissionCache) get(ctx context.Context, key string) (permissionSnapshot, bool) {
	if c == nil || key == "" {
		return permissionSnapshot{}, false
	}
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn("permission cache: get", zap.Error(err))
		return permissionSnapshot{}, false
	}
	if raw == nil {
		return permissionSnapshot{}, false
	}
	var snap permissionSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		c.logger.Warn("permission cache: decode", zap.Error(err))
		if err := c.store.Delete(ctx, key); err != nil {
			c.logger.Warn("permission cache: drop corrupt entry", zap.Error(err))
		}
		return permissionSnapshot{}, false
	}
	return snap, true
}

func (c *PermissionCache) put(ctx context.Context, key string, snap permissionSnapshot) {
	if c == nil || key == "" {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		c.logger.Warn("permission cache: encode", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.logger.Warn("permission cache: set", zap.Error(err))
	}
}

// Invalidate drops every entry for (user, room). Call it after the mutating
// transaction has committed. The write outlives ctx: a caller that went away
// after commit must not leave the old snapshot in place.
func (c *PermissionCache) Invalidate(ctx context.Context, userID, roomID uuid.UUID) {
	if c == nil {
		return
	}
	ctx, cancel := detach(ctx)
	defer cancel()
	if err := c.store.Set(ctx, pairEpochKey(userID, roomID), []byte(uuid.NewString()), c.epochTTL); err != nil {
		// Entries expire on their own within ttl.
		c.logger.Error("permission cache: invalidate",
			zap.String("user_id", userID.String()),
			zap.String("room_id", roomID.String()),
			zap.Error(err),
		)
	}
}

// InvalidateUser drops every entry for the user across all rooms, e.g. after
// a global role change.
func (c *PermissionCache) InvalidateUser(ctx context.Context, userID uuid.UUID) {
	if c == nil {
		return
	}
	ctx, cancel := detach(ctx)
	defer cancel()
	if err := c.store.Set(ctx, userEpochKey(userID), []byte(uuid.NewString()), c.epochTTL); err != nil {
		c.logger.Error("permission cache: invalidate user",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}

func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
}
