package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestCreateAccountNormalizesAndRejectsDuplicates(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	account, err := store.CreateAccount(ctx, CreateAccountParams{
		Handle:         "  AdaLovelace ",
		Email:          "Ada@Example.COM",
		FullName:       "  Ada Lovelace ",
		PasswordDigest: "digest",
	})
	if err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}
	if account.Handle != "adalovelace" {
		t.Fatalf("handle = %q, want adalovelace", account.Handle)
	}
	if account.Email != "ada@example.com" {
		t.Fatalf("email = %q, want ada@example.com", account.Email)
	}
	if account.FullName != "Ada Lovelace" {
		t.Fatalf("fullname = %q, want trimmed", account.FullName)
	}

	_, err = store.CreateAccount(ctx, CreateAccountParams{
		Handle:         "ADALOVELACE",
		Email:          "other@example.com",
		FullName:       "Other",
		PasswordDigest: "digest",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate handle: expected ErrConflict, got %v", err)
	}
	_, err = store.CreateAccount(ctx, CreateAccountParams{
		Handle:         "other",
		Email:          "ada@example.com",
		FullName:       "Other",
		PasswordDigest: "digest",
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate email: expected ErrConflict, got %v", err)
	}
}

func TestFindAccountByIdentifier(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	account := seedAccount(t, store, "ada")

	cases := []struct {
		name       string
		identifier string
		found      bool
	}{
		{name: "by handle", identifier: "ada", found: true},
		{name: "by handle mixed case", identifier: "AdA", found: true},
		{name: "by email", identifier: "ada@example.com", found: true},
		{name: "by email mixed case", identifier: "ADA@example.com", found: true},
		{name: "unknown", identifier: "nobody", found: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, err := store.FindAccountByIdentifier(ctx, tc.identifier)
			if err != nil {
				t.Fatalf("FindAccountByIdentifier returned error: %v", err)
			}
			if ok != tc.found {
				t.Fatalf("found = %v, want %v", ok, tc.found)
			}
			if ok && got.ID != account.ID {
				t.Fatalf("found account %q, want %q", got.ID, account.ID)
			}
		})
	}
}

func TestUpdateAccount(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	account := seedAccount(t, store, "ada")
	seedAccount(t, store, "grace")

	newName := "Augusta Ada King"
	updated, err := store.UpdateAccount(ctx, account.ID, AccountUpdate{FullName: &newName})
	if err != nil {
		t.Fatalf("UpdateAccount returned error: %v", err)
	}
	if updated.FullName != newName {
		t.Fatalf("fullname = %q, want %q", updated.FullName, newName)
	}

	takenEmail := "grace@example.com"
	if _, err := store.UpdateAccount(ctx, account.ID, AccountUpdate{Email: &takenEmail}); !errors.Is(err, ErrConflict) {
		t.Fatalf("taken email: expected ErrConflict, got %v", err)
	}
	if _, err := store.UpdateAccount(ctx, "missing", AccountUpdate{FullName: &newName}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing account: expected ErrNotFound, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	account := seedAccount(t, store, "ada")

	if err := store.BeginSession(ctx, account.ID, "refresh-1"); err != nil {
		t.Fatalf("BeginSession returned error: %v", err)
	}
	if err := store.BeginSession(ctx, "missing", "refresh-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing account: expected ErrNotFound, got %v", err)
	}

	// Rotation succeeds only when the presented token matches the anchor.
	if err := store.RotateRefreshToken(ctx, account.ID, "refresh-1", "refresh-2"); err != nil {
		t.Fatalf("RotateRefreshToken returned error: %v", err)
	}
	if err := store.RotateRefreshToken(ctx, account.ID, "refresh-1", "refresh-3"); !errors.Is(err, ErrRefreshTokenMismatch) {
		t.Fatalf("stale rotation: expected ErrRefreshTokenMismatch, got %v", err)
	}
	if err := store.RotateRefreshToken(ctx, "missing", "refresh-2", "refresh-3"); !errors.Is(err, ErrRefreshTokenMismatch) {
		t.Fatalf("missing account rotation: expected ErrRefreshTokenMismatch, got %v", err)
	}

	stored, _, err := store.GetAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("GetAccount returned error: %v", err)
	}
	if stored.RefreshToken != "refresh-2" {
		t.Fatalf("anchor = %q, want refresh-2", stored.RefreshToken)
	}

	if err := store.EndSession(ctx, account.ID); err != nil {
		t.Fatalf("EndSession returned error: %v", err)
	}
	stored, _, _ = store.GetAccount(ctx, account.ID)
	if stored.RefreshToken != "" {
		t.Fatal("expected anchor cleared after EndSession")
	}
	// Ending a cleared or unknown session is a no-op.
	if err := store.EndSession(ctx, account.ID); err != nil {
		t.Fatalf("repeat EndSession returned error: %v", err)
	}
	if err := store.EndSession(ctx, "missing"); err != nil {
		t.Fatalf("EndSession for unknown account returned error: %v", err)
	}
	// No anchor means nothing rotates.
	if err := store.RotateRefreshToken(ctx, account.ID, "", "refresh-4"); !errors.Is(err, ErrRefreshTokenMismatch) {
		t.Fatalf("empty presented token: expected ErrRefreshTokenMismatch, got %v", err)
	}
}

func TestRotateRefreshTokenConcurrent(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	account := seedAccount(t, store, "ada")
	if err := store.BeginSession(ctx, account.ID, "refresh-0"); err != nil {
		t.Fatalf("BeginSession returned error: %v", err)
	}

	const racers = 16
	var wg sync.WaitGroup
	errs := make(chan error, racers)
	for i := 0; i < racers; i++ {
		next := "refresh-" + string(rune('a'+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.RotateRefreshToken(ctx, account.ID, "refresh-0", next)
		}()
	}
	wg.Wait()
	close(errs)

	var wins int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrRefreshTokenMismatch):
		default:
			t.Fatalf("unexpected rotation error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
}
