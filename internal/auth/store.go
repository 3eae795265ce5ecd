package auth

import (
	"context"

	"clipstream/internal/models"
	"clipstream/internal/storage"
)

// UserStore is the slice of the account repository the auth core depends on.
// Implementations must enforce handle/email uniqueness on create and report a
// miss through the boolean return rather than an error.
type UserStore interface {
	CreateAccount(ctx context.Context, params storage.CreateAccountParams) (models.Account, error)
	FindAccountByIdentifier(ctx context.Context, identifier string) (models.Account, bool, error)
	GetAccount(ctx context.Context, id string) (models.Account, bool, error)
	SetAccountPassword(ctx context.Context, id, digest string) error
}

// SessionStore persists the single currently-valid refresh credential per
// account. It is the server-side revocation anchor: a refresh token that does
// not byte-match the stored value is dead regardless of its signature.
//
// RotateRefreshToken must be an atomic compare-and-set at the backing store so
// that concurrent rotations for the same account serialize; exactly one wins
// and the rest observe storage.ErrRefreshTokenMismatch.
type SessionStore interface {
	BeginSession(ctx context.Context, accountID, refreshToken string) error
	RotateRefreshToken(ctx context.Context, accountID, presented, next string) error
	EndSession(ctx context.Context, accountID string) error
}
