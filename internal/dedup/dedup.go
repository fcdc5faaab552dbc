// Package dedup tracks which client-supplied request ids have already
// produced a committed effect, so duplicate retries are suppressed.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/macrotracker/intake-service/internal/kv"
	"github.com/macrotracker/intake-service/internal/logger"
)

// EntityType namespaces dedup keys per kind of side effect.
type EntityType string

const (
	EntityIntake EntityType = "intake"
)

// DefaultTTL bounds how long a request id is remembered.
const DefaultTTL = time.Hour

// Store reads and writes processed-request markers in the key-value store.
type Store struct {
	kv  kv.Store
	ttl time.Duration
	log *logger.Logger
}

func NewStore(store kv.Store, ttl time.Duration, log *logger.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{kv: store, ttl: ttl, log: log}
}

// Key builds the composite dedup key. Kept as a single pure function so
// the write side and read side can never drift apart.
func Key(entityType EntityType, requestID string, userID int64) string {
	return fmt.Sprintf("processed:%s:%d:%s", entityType, userID, requestID)
}

// IsProcessed reports whether the request id already produced a
// committed effect.
func (s *Store) IsProcessed(ctx context.Context, entityType EntityType, requestID string, userID int64) (bool, error) {
	return s.kv.Exists(ctx, Key(entityType, requestID, userID))
}

// MarkProcessed records the request id. Call only after the write has
// durably committed; a failure here is logged and swallowed, because a
// retried duplicate is an acceptable degraded outcome while a lost
// write is not.
func (s *Store) MarkProcessed(ctx context.Context, entityType EntityType, requestID string, userID int64) {
	key := Key(entityType, requestID, userID)
	if err := s.kv.Set(ctx, key, "1", s.ttl); err != nil {
		s.log.Error("failed to mark request as processed", "key", key, "error", err)
	}
}
