package storage

import (
	"context"
	"fmt"
	"strings"

	"clipstream/internal/models"
)

// CreateAccount persists a new account after normalizing the handle and email
// and enforcing uniqueness across both.
func (s *Storage) CreateAccount(ctx context.Context, params CreateAccountParams) (models.Account, error) {
	if err := ctx.Err(); err != nil {
		return models.Account{}, err
	}
	handle, err := NormalizeHandle(params.Handle)
	if err != nil {
		return models.Account{}, err
	}
	email := NormalizeEmail(params.Email)
	if email == "" {
		return models.Account{}, fmt.Errorf("email is required")
	}
	if params.PasswordDigest == "" {
		return models.Account{}, fmt.Errorf("password digest is required")
	}

	var created models.Account
	err = s.mutate(func(data *dataset) error {
		for _, existing := range data.Accounts {
			if existing.Handle == handle || existing.Email == email {
				return ErrConflict
			}
		}
		now := s.now().UTC()
		created = models.Account{
			ID:           generateID(),
			Handle:       handle,
			Email:        email,
			FullName:     strings.TrimSpace(params.FullName),
			PasswordHash: params.PasswordDigest,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		data.Accounts[created.ID] = created
		return nil
	})
	if err != nil {
		return models.Account{}, err
	}
	return created, nil
}

// GetAccount fetches an account by ID.
func (s *Storage) GetAccount(ctx context.Context, id string) (models.Account, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Account{}, false, err
	}
	s.mu.RLock()
	account, ok := s.data.Accounts[id]
	s.mu.RUnlock()
	return account, ok, nil
}

// FindAccountByIdentifier looks an account up by handle or email. Matching is
// case-insensitive; the normalized handle form is tried as well so width and
// compatibility mappings still resolve.
func (s *Storage) FindAccountByIdentifier(ctx context.Context, identifier string) (models.Account, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Account{}, false, err
	}
	handle, handleErr := NormalizeHandle(identifier)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.data.Accounts {
		if account.MatchesIdentifier(identifier) {
			return account, true, nil
		}
		if handleErr == nil && account.Handle == handle {
			return account, true, nil
		}
	}
	return models.Account{}, false, nil
}

// UpdateAccount applies the non-nil fields of the update to the account.
func (s *Storage) UpdateAccount(ctx context.Context, id string, update AccountUpdate) (models.Account, error) {
	if err := ctx.Err(); err != nil {
		return models.Account{}, err
	}
	var updated models.Account
	err := s.mutate(func(data *dataset) error {
		account, ok := data.Accounts[id]
		if !ok {
			return ErrNotFound
		}
		if update.Email != nil {
			email := NormalizeEmail(*update.Email)
			if email == "" {
				return fmt.Errorf("email cannot be empty")
			}
			for otherID, other := range data.Accounts {
				if otherID != id && other.Email == email {
					return ErrConflict
				}
			}
			account.Email = email
		}
		if update.FullName != nil {
			account.FullName = strings.TrimSpace(*update.FullName)
		}
		if update.AvatarURL != nil {
			account.AvatarURL = *update.AvatarURL
		}
		if update.CoverURL != nil {
			account.CoverURL = *update.CoverURL
		}
		account.UpdatedAt = s.now().UTC()
		data.Accounts[id] = account
		updated = account
		return nil
	})
	if err != nil {
		return models.Account{}, err
	}
	return updated, nil
}

// SetAccountPassword replaces the stored password digest.
func (s *Storage) SetAccountPassword(ctx context.Context, id, digest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if digest == "" {
		return fmt.Errorf("password digest is required")
	}
	return s.mutate(func(data *dataset) error {
		account, ok := data.Accounts[id]
		if !ok {
			return ErrNotFound
		}
		account.PasswordHash = digest
		account.UpdatedAt = s.now().UTC()
		data.Accounts[id] = account
		return nil
	})
}

// BeginSession overwrites the account's stored refresh token unconditionally,
// implicitly invalidating any previously issued refresh credential.
func (s *Storage) BeginSession(ctx context.Context, accountID, refreshToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if refreshToken == "" {
		return fmt.Errorf("refresh token is required")
	}
	return s.mutate(func(data *dataset) error {
		account, ok := data.Accounts[accountID]
		if !ok {
			return ErrNotFound
		}
		account.RefreshToken = refreshToken
		account.UpdatedAt = s.now().UTC()
		data.Accounts[accountID] = account
		return nil
	})
}

// RotateRefreshToken swaps the stored refresh token for next only when the
// presented value byte-matches the current anchor. The comparison and write
// happen under the write lock, so concurrent rotations for one account
// serialize and at most one succeeds.
func (s *Storage) RotateRefreshToken(ctx context.Context, accountID, presented, next string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if presented == "" || next == "" {
		return ErrRefreshTokenMismatch
	}
	return s.mutate(func(data *dataset) error {
		account, ok := data.Accounts[accountID]
		if !ok {
			return ErrRefreshTokenMismatch
		}
		if account.RefreshToken != presented {
			return ErrRefreshTokenMismatch
		}
		account.RefreshToken = next
		account.UpdatedAt = s.now().UTC()
		data.Accounts[accountID] = account
		return nil
	})
}

// EndSession clears the stored refresh token. Clearing an already-clear or
// missing account is not an error.
func (s *Storage) EndSession(ctx context.Context, accountID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.mutate(func(data *dataset) error {
		account, ok := data.Accounts[accountID]
		if !ok || account.RefreshToken == "" {
			return nil
		}
		account.RefreshToken = ""
		account.UpdatedAt = s.now().UTC()
		data.Accounts[accountID] = account
		return nil
	})
}
