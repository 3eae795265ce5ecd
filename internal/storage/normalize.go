package storage

import (
	"fmt"
	"strings"

	"golang.org/x/text/secure/precis"
)

// NormalizeHandle canonicalizes an account handle using the PRECIS
// UsernameCaseMapped profile so that visually-equivalent handles collide on
// the uniqueness check instead of coexisting.
func NormalizeHandle(handle string) (string, error) {
	trimmed := strings.TrimSpace(handle)
	if trimmed == "" {
		return "", fmt.Errorf("handle is required")
	}
	normalized, err := precis.UsernameCaseMapped.String(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid handle %q: %w", handle, err)
	}
	return normalized, nil
}

// NormalizeEmail lowercases and trims an email address for comparison and
// storage. Structural validation stays at the API boundary.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
