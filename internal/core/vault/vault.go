// Package vault defines the secrets lookup interface.
package vault

import (
	"context"
)

// Vault defines the interface for secrets operations. Collaborator tokens
// (Slack, Claude, Square, Airtable) and the session encryption key are
// resolved through it.
type Vault interface {
	// StoreSecret stores a secret and returns its URI/reference.
	StoreSecret(ctx context.Context, key string, value string) (string, error)

	// GetSecret retrieves a secret by URI.
	GetSecret(ctx context.Context, uri string) (string, error)

	// Ping checks if the vault connection is alive.
	Ping(ctx context.Context) error

	// Close closes the vault connection.
	Close() error
}
