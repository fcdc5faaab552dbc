// Package kv abstracts the key-value store shared by the cache layer
// and the deduplication store. Both live in one physical store under
// different key namespaces.
package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist or has expired.
var ErrNotFound = errors.New("key not found")

// Store is a minimal key-value contract: get, set-with-TTL, delete,
// existence check, and key-pattern scan.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	// ScanKeys returns every key matching a glob-style pattern.
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}
