package auth

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"clipstream/internal/storage"
)

func newTestStore(t *testing.T) *storage.Storage {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "clipstream.json"))
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	return store
}

func newTestService(t *testing.T, issuerOpts ...TokenIssuerOption) (*Service, *storage.Storage) {
	t.Helper()
	store := newTestStore(t)
	issuer, err := NewTokenIssuer([]byte("access-signing-key"), []byte("refresh-signing-key"), issuerOpts...)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}
	service := NewService(store, store, issuer, WithHasher(NewPasswordHasher(1000)))
	return service, store
}

func registerAndLogin(t *testing.T, service *Service, handle string) Session {
	t.Helper()
	ctx := context.Background()
	if _, err := service.Register(ctx, handle, handle+"@example.com", "Ada Lovelace", "difference engine"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	session, err := service.Login(ctx, handle, "difference engine")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	return session
}

func TestRegisterSanitizesAccount(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()

	account, err := service.Register(ctx, "AdaLovelace", "Ada@Example.com", "Ada Lovelace", "difference engine")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if account.PasswordHash != "" || account.RefreshToken != "" {
		t.Fatal("expected registered account view to omit secret fields")
	}
	if account.Handle != "adalovelace" {
		t.Fatalf("handle = %q, want normalized adalovelace", account.Handle)
	}
	if account.Email != "ada@example.com" {
		t.Fatalf("email = %q, want lowercased ada@example.com", account.Email)
	}

	stored, ok, err := store.GetAccount(ctx, account.ID)
	if err != nil || !ok {
		t.Fatalf("GetAccount = %v, ok=%v", err, ok)
	}
	if stored.PasswordHash == "" {
		t.Fatal("expected stored account to carry a password digest")
	}
	if stored.PasswordHash == "difference engine" {
		t.Fatal("password stored in plaintext")
	}
}

func TestRegisterValidation(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	cases := []struct {
		name     string
		handle   string
		email    string
		fullName string
		password string
	}{
		{name: "missing handle", email: "a@example.com", fullName: "A", password: "long enough"},
		{name: "missing email", handle: "a", fullName: "A", password: "long enough"},
		{name: "missing fullname", handle: "a", email: "a@example.com", password: "long enough"},
		{name: "missing password", handle: "a", email: "a@example.com", fullName: "A"},
		{name: "short password", handle: "a", email: "a@example.com", fullName: "A", password: "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Register(ctx, tc.handle, tc.email, tc.fullName, tc.password)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	if _, err := service.Register(ctx, "ada", "ada@example.com", "Ada", "difference engine"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := service.Register(ctx, "ADA", "other@example.com", "Ada", "difference engine"); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate handle: expected ErrConflict, got %v", err)
	}
	if _, err := service.Register(ctx, "other", "Ada@Example.com", "Ada", "difference engine"); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email: expected ErrConflict, got %v", err)
	}
}

func TestLoginStartsSession(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()
	session := registerAndLogin(t, service, "ada")

	if session.Access.Token == "" || session.Refresh.Token == "" {
		t.Fatal("expected both credentials on login")
	}
	if session.Account.PasswordHash != "" || session.Account.RefreshToken != "" {
		t.Fatal("expected sanitized account in session")
	}

	stored, ok, err := store.GetAccount(ctx, session.Account.ID)
	if err != nil || !ok {
		t.Fatalf("GetAccount = %v, ok=%v", err, ok)
	}
	if stored.RefreshToken != session.Refresh.Token {
		t.Fatal("expected stored refresh anchor to match issued credential")
	}
}

func TestLoginByEmail(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	registerAndLogin(t, service, "ada")
	if _, err := service.Login(ctx, "ada@example.com", "difference engine"); err != nil {
		t.Fatalf("login by email failed: %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()
	session := registerAndLogin(t, service, "ada")

	if _, err := service.Login(ctx, "nobody", "difference engine"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown identifier: expected ErrNotFound, got %v", err)
	}
	if _, err := service.Login(ctx, "ada", "analytical engine"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}

	// A failed login must not disturb the live session.
	stored, _, err := store.GetAccount(ctx, session.Account.ID)
	if err != nil {
		t.Fatalf("GetAccount returned error: %v", err)
	}
	if stored.RefreshToken != session.Refresh.Token {
		t.Fatal("failed login changed the stored refresh anchor")
	}
}

func TestLoginOverwritesPreviousSession(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	first := registerAndLogin(t, service, "ada")
	second, err := service.Login(ctx, "ada", "difference engine")
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if first.Refresh.Token == second.Refresh.Token {
		t.Fatal("expected second login to mint a fresh refresh credential")
	}
	if _, err := service.Refresh(ctx, first.Refresh.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("stale refresh after re-login: expected ErrSessionExpired, got %v", err)
	}
	if _, err := service.Refresh(ctx, second.Refresh.Token); err != nil {
		t.Fatalf("current refresh failed: %v", err)
	}
}

func TestRefreshRotatesOnUse(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()
	session := registerAndLogin(t, service, "ada")

	rotated, err := service.Refresh(ctx, session.Refresh.Token)
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if rotated.Refresh.Token == session.Refresh.Token {
		t.Fatal("expected refresh to mint a new refresh credential")
	}
	if rotated.Account.ID != session.Account.ID {
		t.Fatalf("rotated session account = %q, want %q", rotated.Account.ID, session.Account.ID)
	}

	stored, _, err := store.GetAccount(ctx, session.Account.ID)
	if err != nil {
		t.Fatalf("GetAccount returned error: %v", err)
	}
	if stored.RefreshToken != rotated.Refresh.Token {
		t.Fatal("expected stored anchor to advance to the new credential")
	}

	// Replaying the consumed credential must fail even though its signature
	// and expiry are still valid.
	if _, err := service.Refresh(ctx, session.Refresh.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("replay: expected ErrSessionExpired, got %v", err)
	}
	// The replay attempt must not revoke the live session.
	if _, err := service.Refresh(ctx, rotated.Refresh.Token); err != nil {
		t.Fatalf("live refresh after replay attempt failed: %v", err)
	}
}

func TestRefreshRejectsBadTokens(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	session := registerAndLogin(t, service, "ada")

	cases := []struct {
		name  string
		token string
		want  error
	}{
		{name: "empty", token: "", want: ErrInvalidCredentials},
		{name: "garbage", token: "not-a-token", want: ErrInvalidCredentials},
		{name: "access token presented as refresh", token: session.Access.Token, want: ErrInvalidCredentials},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.Refresh(ctx, tc.token); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestRefreshExpiredCredential(t *testing.T) {
	var mu sync.Mutex
	current := time.Now()
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}
	service, _ := newTestService(t, WithClock(clock))
	ctx := context.Background()
	session := registerAndLogin(t, service, "ada")

	mu.Lock()
	current = current.Add(DefaultRefreshTTL + time.Hour)
	mu.Unlock()

	if _, err := service.Refresh(ctx, session.Refresh.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired for expired credential, got %v", err)
	}
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	session := registerAndLogin(t, service, "ada")

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Refresh(ctx, session.Refresh.Token)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, losses int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSessionExpired):
			losses++
		default:
			t.Fatalf("unexpected refresh error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
	if losses != racers-1 {
		t.Fatalf("losses = %d, want %d", losses, racers-1)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	service, store := newTestService(t)
	ctx := context.Background()
	session := registerAndLogin(t, service, "ada")

	if err := service.Logout(ctx, session.Account.ID); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	stored, _, err := store.GetAccount(ctx, session.Account.ID)
	if err != nil {
		t.Fatalf("GetAccount returned error: %v", err)
	}
	if stored.RefreshToken != "" {
		t.Fatal("expected refresh anchor cleared after logout")
	}
	if _, err := service.Refresh(ctx, session.Refresh.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("refresh after logout: expected ErrSessionExpired, got %v", err)
	}
	// Logout is idempotent, also for unknown accounts.
	if err := service.Logout(ctx, session.Account.ID); err != nil {
		t.Fatalf("repeat logout returned error: %v", err)
	}
	if err := service.Logout(ctx, "missing-account"); err != nil {
		t.Fatalf("logout of unknown account returned error: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	session := registerAndLogin(t, service, "ada")

	if err := service.ChangePassword(ctx, session.Account.ID, "analytical engine", "jacquard loom pattern"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong old password: expected ErrInvalidCredentials, got %v", err)
	}
	if err := service.ChangePassword(ctx, session.Account.ID, "difference engine", "short"); !errors.Is(err, ErrValidation) {
		t.Fatalf("weak new password: expected ErrValidation, got %v", err)
	}
	if err := service.ChangePassword(ctx, session.Account.ID, "difference engine", "jacquard loom pattern"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	if _, err := service.Login(ctx, "ada", "difference engine"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password after change: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := service.Login(ctx, "ada", "jacquard loom pattern"); err != nil {
		t.Fatalf("new password login failed: %v", err)
	}
}

func TestChangePasswordKeepsSession(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()
	session := registerAndLogin(t, service, "ada")

	if err := service.ChangePassword(ctx, session.Account.ID, "difference engine", "jacquard loom pattern"); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}
	if _, err := service.Refresh(ctx, session.Refresh.Token); err != nil {
		t.Fatalf("expected session to survive password change, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	service, _ := newTestService(t)
	session := registerAndLogin(t, service, "ada")

	subject, err := service.Authenticate(session.Access.Token)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if subject != session.Account.ID {
		t.Fatalf("subject = %q, want %q", subject, session.Account.ID)
	}
	if _, err := service.Authenticate(session.Refresh.Token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("refresh token as access: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := service.Authenticate("garbage"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("garbage token: expected ErrInvalidCredentials, got %v", err)
	}
}
