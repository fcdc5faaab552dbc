// Package cache is the read-through cache for intake pages and
// template lists. Entries carry a bounded TTL so a missed invalidation
// can only serve stale data for a limited window; eviction failures are
// logged and never fail the mutation that triggered them.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/macrotracker/intake-service/internal/kv"
	"github.com/macrotracker/intake-service/internal/logger"
)

// DefaultTTL bounds staleness from missed invalidations.
const DefaultTTL = 6 * time.Hour

type Cache struct {
	kv  kv.Store
	ttl time.Duration
	log *logger.Logger
}

func New(store kv.Store, ttl time.Duration, log *logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{kv: store, ttl: ttl, log: log}
}

// GetIntakePage unmarshals a cached intake page into v. A miss or any
// cache error returns false and the caller falls through to storage.
func (c *Cache) GetIntakePage(ctx context.Context, userID int64, date *string, page int, v any) bool {
	return c.get(ctx, IntakePageKey(userID, date, page), v)
}

// SetIntakePage stores one page of the user's intake listing.
func (c *Cache) SetIntakePage(ctx context.Context, userID int64, date *string, page int, v any) {
	c.set(ctx, IntakePageKey(userID, date, page), v)
}

// InvalidateIntakeDate evicts the date's partition and the "all dates"
// partition, since a mutation on one date changes both listings.
func (c *Cache) InvalidateIntakeDate(ctx context.Context, userID int64, date string) {
	c.deletePattern(ctx, IntakeDatePattern(userID, date))
	c.deletePattern(ctx, IntakeAllDatesPattern(userID))
}

// InvalidateIntakeUser evicts every intake cache entry of the user.
// Used by operations that cannot cheaply enumerate affected dates.
func (c *Cache) InvalidateIntakeUser(ctx context.Context, userID int64) {
	c.deletePattern(ctx, IntakeUserPattern(userID))
}

// GetTemplates unmarshals the cached template list into v.
func (c *Cache) GetTemplates(ctx context.Context, userID int64, v any) bool {
	return c.get(ctx, TemplatesKey(userID), v)
}

// SetTemplates stores the user's template list.
func (c *Cache) SetTemplates(ctx context.Context, userID int64, v any) {
	c.set(ctx, TemplatesKey(userID), v)
}

// InvalidateTemplates evicts the user's template list.
func (c *Cache) InvalidateTemplates(ctx context.Context, userID int64) {
	if err := c.kv.Delete(ctx, TemplatesKey(userID)); err != nil {
		c.log.Error("failed to evict cache", "key", TemplatesKey(userID), "error", err)
	}
}

func (c *Cache) get(ctx context.Context, key string, v any) bool {
	raw, err := c.kv.Get(ctx, key)
	if err != nil {
		if err != kv.ErrNotFound {
			c.log.Warn("cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		c.log.Warn("cache entry corrupted", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Cache) set(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.kv.Set(ctx, key, string(raw), c.ttl); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
}

func (c *Cache) deletePattern(ctx context.Context, pattern string) {
	keys, err := c.kv.ScanKeys(ctx, pattern)
	if err != nil {
		c.log.Error("failed to scan cache keys", "pattern", pattern, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.kv.Delete(ctx, keys...); err != nil {
		c.log.Error("failed to evict cache", "pattern", pattern, "error", err)
	}
}
