// Package cache defines the session store client interface.
package cache

import (
	"context"
	"time"
)

// Client is a higher-level store client that wraps the Cache interface.
type Client interface {
	// GetCache returns the underlying Cache implementation.
	GetCache() Cache

	// Get retrieves a value from the store.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the store.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetMulti writes several entries transactionally.
	SetMulti(ctx context.Context, entries []Entry) error

	// Delete removes a key from the store.
	Delete(ctx context.Context, key string) (bool, error)

	// Ping checks if the store connection is alive.
	Ping(ctx context.Context) error

	// Close closes the store client connection.
	Close() error
}
