package auth

import (
	"errors"
	"fmt"
)

// Error taxonomy for the credential and session core. Service and the API
// boundary translate every lower-level failure into one of these before it
// crosses a package boundary; raw store or crypto errors never escape.
var (
	// ErrValidation marks malformed or missing input the client must fix.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a handle or email uniqueness violation.
	ErrConflict = errors.New("account already exists")

	// ErrNotFound marks a lookup that matched no account.
	ErrNotFound = errors.New("account not found")

	// ErrInvalidCredentials marks a password or token that failed
	// verification, or a credential that was missing entirely.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionExpired marks a refresh credential that carries a valid
	// signature but is no longer the authoritative session value. The caller
	// must require a fresh login.
	ErrSessionExpired = errors.New("session expired")

	// ErrStoreUnavailable marks a transient backing-store failure. Callers
	// may retry; it is never an authentication verdict.
	ErrStoreUnavailable = errors.New("session store unavailable")

	// ErrHashing marks an internal failure of the password hasher.
	ErrHashing = errors.New("password hashing failed")
)

// ErrInvalidToken is the umbrella for every token verification failure. The
// specific kinds below all match it under errors.Is so callers that do not
// care about the sub-kind can branch on the umbrella alone.
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = fmt.Errorf("token expired: %w", ErrInvalidToken)
	ErrTokenMalformed = fmt.Errorf("token malformed: %w", ErrInvalidToken)
	ErrTokenSignature = fmt.Errorf("token signature mismatch: %w", ErrInvalidToken)
)
