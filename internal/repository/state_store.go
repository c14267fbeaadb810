package repository

import (
	"context"
	"time"
)

// StateStore abstracts ephemeral key-value state. The permission cache keeps
// its snapshots and epochs here.
// Implementations: Redis (multi-instance) or in-memory (single instance).
type StateStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns nil, nil for a missing or expired key.
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
