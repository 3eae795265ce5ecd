package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clipstream/internal/models"
	"clipstream/internal/storage"
)

// DefaultStoreTimeout bounds every backing-store call made by the service.
// A store that does not answer within the bound surfaces ErrStoreUnavailable
// rather than hanging the login path.
const DefaultStoreTimeout = 5 * time.Second

// MinPasswordLength is the weakest password accepted at registration and
// password change.
const MinPasswordLength = 8

// Session is the authenticated triple handed to a client at login or refresh
// time. The embedded account is sanitized; secret fields are already cleared.
type Session struct {
	Account models.Account
	Access  Credential
	Refresh Credential
}

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// WithStoreTimeout overrides the per-call store timeout.
func WithStoreTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) {
		if timeout > 0 {
			s.storeTimeout = timeout
		}
	}
}

// WithHasher injects a password hasher, mainly so tests can lower the
// iteration count.
func WithHasher(hasher PasswordHasher) ServiceOption {
	return func(s *Service) {
		s.hasher = hasher
	}
}

// WithLogger attaches a logger for internal failure kinds that are masked in
// the returned errors.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service orchestrates registration, login, logout, refresh rotation, and
// password changes. It is the only component that mutates the account's
// refresh-credential field, always through the SessionStore contract.
type Service struct {
	users        UserStore
	sessions     SessionStore
	tokens       *TokenIssuer
	hasher       PasswordHasher
	storeTimeout time.Duration
	logger       *slog.Logger
}

// NewService wires the auth service from its collaborators.
func NewService(users UserStore, sessions SessionStore, tokens *TokenIssuer, opts ...ServiceOption) *Service {
	s := &Service{
		users:        users,
		sessions:     sessions,
		tokens:       tokens,
		hasher:       NewPasswordHasher(0),
		storeTimeout: DefaultStoreTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Issuer exposes the token issuer so the HTTP layer can read credential TTLs
// for cookie expiry.
func (s *Service) Issuer() *TokenIssuer { return s.tokens }

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

// translateStoreError folds every non-domain store failure into
// ErrStoreUnavailable so infra trouble is never mistaken for an
// authentication verdict.
func (s *Service) translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrConflict):
		return ErrConflict
	case errors.Is(err, storage.ErrRefreshTokenMismatch):
		return ErrSessionExpired
	case errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	default:
		if s.logger != nil {
			s.logger.Warn("auth store call failed", "error", err)
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

func sanitize(account models.Account) models.Account {
	account.PasswordHash = ""
	account.RefreshToken = ""
	return account
}

// Register creates a new account. The returned view carries no password or
// refresh fields. Registration does not start a session; the client logs in
// afterwards.
func (s *Service) Register(ctx context.Context, handle, email, fullName, password string) (models.Account, error) {
	handle = strings.TrimSpace(handle)
	email = strings.TrimSpace(email)
	fullName = strings.TrimSpace(fullName)
	switch {
	case handle == "":
		return models.Account{}, fmt.Errorf("%w: handle is required", ErrValidation)
	case email == "":
		return models.Account{}, fmt.Errorf("%w: email is required", ErrValidation)
	case fullName == "":
		return models.Account{}, fmt.Errorf("%w: fullname is required", ErrValidation)
	case password == "":
		return models.Account{}, fmt.Errorf("%w: password is required", ErrValidation)
	case len(password) < MinPasswordLength:
		return models.Account{}, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return models.Account{}, err
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	account, err := s.users.CreateAccount(storeCtx, storage.CreateAccountParams{
		Handle:         handle,
		Email:          email,
		FullName:       fullName,
		PasswordDigest: digest,
	})
	if err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return models.Account{}, ErrConflict
		}
		// Handle normalization rejections come back as plain errors.
		if storeCtx.Err() == nil && !errors.Is(err, storage.ErrUnavailable) {
			return models.Account{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return models.Account{}, s.translateStoreError(err)
	}
	return sanitize(account), nil
}

// Login verifies the identifier/password pair and starts a session,
// overwriting any previously stored refresh credential for the account.
func (s *Service) Login(ctx context.Context, identifier, password string) (Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Session{}, fmt.Errorf("%w: handle or email is required", ErrValidation)
	}
	if password == "" {
		return Session{}, fmt.Errorf("%w: password is required", ErrValidation)
	}

	storeCtx, cancel := s.storeContext(ctx)
	account, ok, err := s.users.FindAccountByIdentifier(storeCtx, identifier)
	cancel()
	if err != nil {
		return Session{}, s.translateStoreError(err)
	}
	if !ok {
		return Session{}, ErrNotFound
	}
	if !s.hasher.Verify(password, account.PasswordHash) {
		return Session{}, ErrInvalidCredentials
	}

	access, err := s.tokens.IssueAccess(account.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue access credential: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(account.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue refresh credential: %w", err)
	}

	storeCtx, cancel = s.storeContext(ctx)
	err = s.sessions.BeginSession(storeCtx, account.ID, refresh.Token)
	cancel()
	if err != nil {
		return Session{}, s.translateStoreError(err)
	}

	return Session{Account: sanitize(account), Access: access, Refresh: refresh}, nil
}

// Refresh rotates the session on a presented refresh credential. The token is
// verified cryptographically first, then must byte-match the stored anchor;
// the swap is a compare-and-set, so when two refreshes race on one account
// exactly one wins and the loser must log in again.
func (s *Service) Refresh(ctx context.Context, presented string) (Session, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return Session{}, ErrInvalidCredentials
	}
	claims, err := s.tokens.Verify(presented, TokenKindRefresh)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return Session{}, ErrSessionExpired
		}
		if s.logger != nil {
			s.logger.Debug("refresh token rejected", "reason", err)
		}
		return Session{}, ErrInvalidCredentials
	}

	access, err := s.tokens.IssueAccess(claims.SubjectID)
	if err != nil {
		return Session{}, fmt.Errorf("issue access credential: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(claims.SubjectID)
	if err != nil {
		return Session{}, fmt.Errorf("issue refresh credential: %w", err)
	}

	storeCtx, cancel := s.storeContext(ctx)
	err = s.sessions.RotateRefreshToken(storeCtx, claims.SubjectID, presented, refresh.Token)
	cancel()
	if err != nil {
		return Session{}, s.translateStoreError(err)
	}

	storeCtx, cancel = s.storeContext(ctx)
	account, ok, err := s.users.GetAccount(storeCtx, claims.SubjectID)
	cancel()
	if err != nil {
		return Session{}, s.translateStoreError(err)
	}
	if !ok {
		return Session{}, ErrSessionExpired
	}

	return Session{Account: sanitize(account), Access: access, Refresh: refresh}, nil
}

// Logout ends the account's session. Logging out an account with no session
// is a no-op, never an error.
func (s *Service) Logout(ctx context.Context, accountID string) error {
	if strings.TrimSpace(accountID) == "" {
		return nil
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.sessions.EndSession(storeCtx, accountID); err != nil {
		translated := s.translateStoreError(err)
		if errors.Is(translated, ErrNotFound) {
			return nil
		}
		return translated
	}
	return nil
}

// ChangePassword re-hashes and persists a new password after verifying the
// old one. The active session is left intact; the client keeps its current
// credentials.
func (s *Service) ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error {
	switch {
	case oldPassword == "":
		return fmt.Errorf("%w: old password is required", ErrValidation)
	case newPassword == "":
		return fmt.Errorf("%w: new password is required", ErrValidation)
	case len(newPassword) < MinPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}

	storeCtx, cancel := s.storeContext(ctx)
	account, ok, err := s.users.GetAccount(storeCtx, accountID)
	cancel()
	if err != nil {
		return s.translateStoreError(err)
	}
	if !ok {
		return ErrNotFound
	}
	if !s.hasher.Verify(oldPassword, account.PasswordHash) {
		return ErrInvalidCredentials
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	storeCtx, cancel = s.storeContext(ctx)
	defer cancel()
	if err := s.users.SetAccountPassword(storeCtx, accountID, digest); err != nil {
		return s.translateStoreError(err)
	}
	return nil
}

// Authenticate verifies an inbound access credential and returns the subject
// it asserts. Every failure kind collapses to ErrInvalidCredentials so the
// response gives no oracle about why verification failed; the underlying
// reason is only logged.
func (s *Service) Authenticate(token string) (string, error) {
	claims, err := s.tokens.Verify(token, TokenKindAccess)
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("access token rejected", "reason", err)
		}
		return "", ErrInvalidCredentials
	}
	return claims.SubjectID, nil
}
