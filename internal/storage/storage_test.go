package storage

import (
	"context"
	"path/filepath"
	"testing"

	"clipstream/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	store, err := NewStorage(filepath.Join(t.TempDir(), "clipstream.json"))
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	return store
}

func seedAccount(t *testing.T, store *Storage, handle string) models.Account {
	t.Helper()
	account, err := store.CreateAccount(context.Background(), CreateAccountParams{
		Handle:         handle,
		Email:          handle + "@example.com",
		FullName:       "Test Account",
		PasswordDigest: "pbkdf2$sha256$1000$c2FsdA$a2V5",
	})
	if err != nil {
		t.Fatalf("CreateAccount returned error: %v", err)
	}
	return account
}

func seedVideo(t *testing.T, store *Storage, ownerID, title string) models.Video {
	t.Helper()
	video, err := store.CreateVideo(context.Background(), CreateVideoParams{
		OwnerID:  ownerID,
		Title:    title,
		VideoURL: "https://cdn.example.com/" + title + ".mp4",
	})
	if err != nil {
		t.Fatalf("CreateVideo returned error: %v", err)
	}
	return video
}

func TestStoragePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipstream.json")
	first, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	account := seedAccount(t, first, "ada")
	video := seedVideo(t, first, account.ID, "intro")

	second, err := NewStorage(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	reloaded, ok, err := second.GetAccount(context.Background(), account.ID)
	if err != nil || !ok {
		t.Fatalf("GetAccount after reopen = %v, ok=%v", err, ok)
	}
	if reloaded.Handle != "ada" {
		t.Fatalf("reloaded handle = %q, want ada", reloaded.Handle)
	}
	if _, ok, _ := second.GetVideo(context.Background(), video.ID); !ok {
		t.Fatal("expected video to survive reopen")
	}
}

func TestStoragePingHonorsContext(t *testing.T) {
	store := newTestStorage(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Ping(ctx); err == nil {
		t.Fatal("expected Ping to report cancelled context")
	}
}
