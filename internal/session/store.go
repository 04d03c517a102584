package session

import (
	"context"
	"errors"
)

var (
	// ErrNoSession is returned by Load when no credential is persisted.
	ErrNoSession = errors.New("no session persisted")

	// ErrEmptyToken is returned when a caller tries to persist a session
	// without a credential.
	ErrEmptyToken = errors.New("session token is empty")
)

// Store persists the session consistency unit. Implementations must make
// Save and Clear atomic relative to readers: a concurrent Load never observes
// a half-written or half-cleared key set.
type Store interface {
	// Save writes the full key set in one atomic operation. The session
	// must carry a non-empty token.
	Save(ctx context.Context, s Session) error

	// Load reads the full key set. Returns ErrNoSession when no token is
	// persisted.
	Load(ctx context.Context) (Session, error)

	// Clear removes every session key in one atomic operation. Clearing an
	// already-empty store is a no-op, not an error.
	Clear(ctx context.Context) error

	// Token returns the persisted credential, or "" when absent.
	Token(ctx context.Context) (string, error)
}
