// Package cache provides the store type constants.
package cache

// Type represents the type of session store.
type Type string

const (
	// TypeRedis represents a Redis-backed store.
	TypeRedis Type = "redis"
)
