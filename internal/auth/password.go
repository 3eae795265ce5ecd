package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	passwordSaltLength = 16
	passwordKeyLength  = 32
	passwordIterations = 120000
)

// PasswordHasher derives and verifies salted PBKDF2-SHA256 password digests.
// The zero value uses the production iteration count; tests may lower it
// through NewPasswordHasher to keep suites fast.
type PasswordHasher struct {
	iterations int
}

// NewPasswordHasher returns a hasher using the provided iteration count, or
// the default when iterations is not positive.
func NewPasswordHasher(iterations int) PasswordHasher {
	if iterations <= 0 {
		iterations = passwordIterations
	}
	return PasswordHasher{iterations: iterations}
}

// Hash derives a digest of the form pbkdf2$sha256$<iter>$<salt>$<key> using a
// fresh random salt. Weak plaintext is not rejected here; input policy belongs
// to the caller.
func (h PasswordHasher) Hash(plaintext string) (string, error) {
	iterations := h.iterations
	if iterations <= 0 {
		iterations = passwordIterations
	}
	salt := make([]byte, passwordSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: generate salt: %v", ErrHashing, err)
	}
	derived := pbkdf2.Key([]byte(plaintext), salt, iterations, passwordKeyLength, sha256.New)
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedKey := base64.RawStdEncoding.EncodeToString(derived)
	return fmt.Sprintf("pbkdf2$sha256$%d$%s$%s", iterations, encodedSalt, encodedKey), nil
}

// Verify reports whether the plaintext matches the digest. The comparison is
// constant-time. A malformed digest yields false rather than an error so the
// caller observes a plain authentication failure.
func (h PasswordHasher) Verify(plaintext, digest string) bool {
	parts := strings.Split(digest, "$")
	if len(parts) != 5 || parts[0] != "pbkdf2" || parts[1] != "sha256" {
		return false
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return false
	}
	storedKey, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(storedKey) == 0 {
		return false
	}
	derived := pbkdf2.Key([]byte(plaintext), salt, iterations, len(storedKey), sha256.New)
	return subtle.ConstantTimeCompare(derived, storedKey) == 1
}
