package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCreateVideoValidation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	account := seedAccount(t, store, "ada")

	cases := []struct {
		name   string
		params CreateVideoParams
	}{
		{name: "missing title", params: CreateVideoParams{OwnerID: account.ID, VideoURL: "https://cdn.example.com/a.mp4"}},
		{name: "title too long", params: CreateVideoParams{OwnerID: account.ID, Title: strings.Repeat("x", MaxVideoTitleLength+1), VideoURL: "https://cdn.example.com/a.mp4"}},
		{name: "missing url", params: CreateVideoParams{OwnerID: account.ID, Title: "ok"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := store.CreateVideo(ctx, tc.params); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	_, err := store.CreateVideo(ctx, CreateVideoParams{OwnerID: "missing", Title: "ok", VideoURL: "https://cdn.example.com/a.mp4"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing owner: expected ErrNotFound, got %v", err)
	}

	video, err := store.CreateVideo(ctx, CreateVideoParams{OwnerID: account.ID, Title: " Intro ", VideoURL: "https://cdn.example.com/a.mp4"})
	if err != nil {
		t.Fatalf("CreateVideo returned error: %v", err)
	}
	if video.Title != "Intro" {
		t.Fatalf("title = %q, want trimmed Intro", video.Title)
	}
	if !video.Published {
		t.Fatal("expected new video to be published")
	}
}

func TestListVideosFiltersAndOrders(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	ada := seedAccount(t, store, "ada")
	grace := seedAccount(t, store, "grace")

	first := seedVideo(t, store, ada.ID, "first")
	second := seedVideo(t, store, ada.ID, "second")
	other := seedVideo(t, store, grace.ID, "other")
	if _, err := store.SetVideoPublished(ctx, second.ID, false); err != nil {
		t.Fatalf("SetVideoPublished returned error: %v", err)
	}

	published, err := store.ListVideos(ctx, ada.ID, false)
	if err != nil {
		t.Fatalf("ListVideos returned error: %v", err)
	}
	if len(published) != 1 || published[0].ID != first.ID {
		t.Fatalf("published list = %v, want only %q", published, first.ID)
	}

	all, err := store.ListVideos(ctx, ada.ID, true)
	if err != nil {
		t.Fatalf("ListVideos returned error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("owner list length = %d, want 2", len(all))
	}

	everyone, err := store.ListVideos(ctx, "", false)
	if err != nil {
		t.Fatalf("ListVideos returned error: %v", err)
	}
	if len(everyone) != 2 {
		t.Fatalf("global list length = %d, want 2", len(everyone))
	}
	for _, video := range everyone {
		if video.ID == second.ID {
			t.Fatal("unpublished video leaked into global list")
		}
	}
	_ = other
}

func TestUpdateVideo(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	account := seedAccount(t, store, "ada")
	video := seedVideo(t, store, account.ID, "intro")

	title := "Intro, revised"
	description := "A longer cut."
	updated, err := store.UpdateVideo(ctx, video.ID, VideoUpdate{Title: &title, Description: &description})
	if err != nil {
		t.Fatalf("UpdateVideo returned error: %v", err)
	}
	if updated.Title != title || updated.Description != description {
		t.Fatalf("updated video = %+v", updated)
	}

	empty := " "
	if _, err := store.UpdateVideo(ctx, video.ID, VideoUpdate{Title: &empty}); err == nil {
		t.Fatal("expected error for empty title")
	}
	if _, err := store.UpdateVideo(ctx, "missing", VideoUpdate{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing video: expected ErrNotFound, got %v", err)
	}
}

func TestAddVideoViews(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	account := seedAccount(t, store, "ada")
	video := seedVideo(t, store, account.ID, "intro")

	if err := store.AddVideoViews(ctx, video.ID, 3); err != nil {
		t.Fatalf("AddVideoViews returned error: %v", err)
	}
	if err := store.AddVideoViews(ctx, video.ID, 0); err != nil {
		t.Fatalf("zero delta returned error: %v", err)
	}
	if err := store.AddVideoViews(ctx, video.ID, 2); err != nil {
		t.Fatalf("AddVideoViews returned error: %v", err)
	}
	got, _, err := store.GetVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetVideo returned error: %v", err)
	}
	if got.Views != 5 {
		t.Fatalf("views = %d, want 5", got.Views)
	}
	if err := store.AddVideoViews(ctx, "missing", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing video: expected ErrNotFound, got %v", err)
	}
}

func TestDeleteVideoRemovesFromPlaylists(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()
	account := seedAccount(t, store, "ada")
	keep := seedVideo(t, store, account.ID, "keep")
	drop := seedVideo(t, store, account.ID, "drop")

	playlist, err := store.CreatePlaylist(ctx, account.ID, "favorites", "")
	if err != nil {
		t.Fatalf("CreatePlaylist returned error: %v", err)
	}
	for _, videoID := range []string{keep.ID, drop.ID} {
		if _, err := store.AddPlaylistVideo(ctx, playlist.ID, videoID); err != nil {
			t.Fatalf("AddPlaylistVideo returned error: %v", err)
		}
	}

	if err := store.DeleteVideo(ctx, drop.ID); err != nil {
		t.Fatalf("DeleteVideo returned error: %v", err)
	}
	if _, ok, _ := store.GetVideo(ctx, drop.ID); ok {
		t.Fatal("expected video gone after delete")
	}
	got, _, err := store.GetPlaylist(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("GetPlaylist returned error: %v", err)
	}
	if len(got.VideoIDs) != 1 || got.VideoIDs[0] != keep.ID {
		t.Fatalf("playlist videos = %v, want only %q", got.VideoIDs, keep.ID)
	}
	if err := store.DeleteVideo(ctx, drop.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("repeat delete: expected ErrNotFound, got %v", err)
	}
}
