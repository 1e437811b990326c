// Package session issues and validates the opaque tokens returned by the
// REST login call. Tokens map to a username with a sliding TTL.
// Implementations: redis.Client, memory.Client (for -dev without Redis).
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenTTL bounds how long an idle session stays valid.
const TokenTTL = 30 * 24 * time.Hour

// TokenStore persists session tokens.
type TokenStore interface {
	Set(ctx context.Context, token, username string) error
	// Get returns the username for token, or "" when unknown or expired.
	Get(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
	Close() error
}

// NewToken returns a fresh opaque session token.
func NewToken() string {
	return uuid.New().String()
}
