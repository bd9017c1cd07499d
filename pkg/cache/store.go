package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the store
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored entry is invalid or corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is keyed storage for response snapshots.
//
// Implementations must be thread-safe. Get returns a copy the caller may keep;
// Set stores a copy. Freshness is not a store concern: entries are kept until
// they are replaced, deleted, purged or evicted.
type Store interface {
	// Get returns the entry for key, or ErrCacheMiss.
	Get(ctx context.Context, key CacheKey) (*CachedEntry, error)

	// Set stores entry under key, replacing any previous entry.
	// An entry larger than the store's capacity is silently refused.
	Set(ctx context.Context, key CacheKey, entry CachedEntry) error

	// Delete removes the entry for key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key CacheKey) error

	// PurgePrefix removes every entry whose PathAndQuery starts with prefix.
	// The match is a literal byte prefix, not path-segment aware.
	PurgePrefix(ctx context.Context, prefix string) error
}
