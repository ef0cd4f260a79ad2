// Package cache defines the session store interface and factory types.
package cache

import (
	"context"
	"time"
)

// Entry is one key/value pair for a multi-key write.
type Entry struct {
	Key   string
	Value []byte
	TTL   time.Duration
}

// Cache defines the interface for session store operations.
type Cache interface {
	// Get retrieves a value by key. Returns nil if the key does not exist;
	// absence is a normal outcome, not an error.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with an optional TTL, overwriting unconditionally.
	// If ttl is 0, the default TTL is used. Every write refreshes the TTL,
	// so the TTL measures inactivity, not age.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetMulti writes all entries in a single transaction. Entries are
	// applied in order, so on a substrate without transactional guarantees a
	// reader can still never observe a later entry without the earlier ones.
	SetMulti(ctx context.Context, entries []Entry) error

	// Delete removes a key. Returns true if the key existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Ping checks if the store connection is alive.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
