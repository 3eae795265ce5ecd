package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"clipstream/internal/models"
)

func createTestPlaylist(t *testing.T, handler *Handler, owner models.Account, name string) playlistResponse {
	t.Helper()
	req := authedRequest(t, http.MethodPost, "/api/playlists", jsonBody(t, map[string]string{
		"name":        name,
		"description": "test collection",
	}), owner)
	rec := httptest.NewRecorder()
	handler.Playlists(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create playlist status = %d, body %s", rec.Code, rec.Body.String())
	}
	var playlist playlistResponse
	decodeData(t, rec, &playlist)
	return playlist
}

func TestPlaylistsRequireAuthentication(t *testing.T) {
	handler, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.Playlists(rec, httptest.NewRequest(http.MethodGet, "/api/playlists", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateAndListPlaylists(t *testing.T) {
	handler, _ := newTestHandler(t)
	owner := registerTestAccount(t, handler, "ada")
	other := registerTestAccount(t, handler, "grace")

	created := createTestPlaylist(t, handler, owner, "Favorites")
	if created.OwnerID != owner.ID {
		t.Fatalf("ownerId = %q, want %q", created.OwnerID, owner.ID)
	}
	if created.VideoIDs == nil {
		t.Fatal("videoIds must serialize as an empty list, not null")
	}

	// Listing defaults to the caller's own playlists.
	rec := httptest.NewRecorder()
	handler.Playlists(rec, authedRequest(t, http.MethodGet, "/api/playlists", nil, owner))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", rec.Code, rec.Body.String())
	}
	var playlists []playlistResponse
	decodeData(t, rec, &playlists)
	if len(playlists) != 1 || playlists[0].ID != created.ID {
		t.Fatalf("owner listing = %+v", playlists)
	}

	rec = httptest.NewRecorder()
	handler.Playlists(rec, authedRequest(t, http.MethodGet, "/api/playlists", nil, other))
	decodeData(t, rec, &playlists)
	if len(playlists) != 0 {
		t.Fatalf("other account listing = %+v", playlists)
	}
}

func TestPlaylistOwnershipEnforced(t *testing.T) {
	handler, _ := newTestHandler(t)
	owner := registerTestAccount(t, handler, "ada")
	stranger := registerTestAccount(t, handler, "grace")
	playlist := createTestPlaylist(t, handler, owner, "Private mix")

	path := "/api/playlists/" + playlist.ID
	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		rec := httptest.NewRecorder()
		var req *http.Request
		if method == http.MethodPatch {
			req = authedRequest(t, method, path, jsonBody(t, map[string]string{"name": "Hijacked"}), stranger)
		} else {
			req = authedRequest(t, method, path, nil, stranger)
		}
		handler.PlaylistByID(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s status = %d, want 403", method, rec.Code)
		}
	}
}

func TestPlaylistVideoMembership(t *testing.T) {
	handler, store := newTestHandler(t)
	owner := registerTestAccount(t, handler, "ada")
	playlist := createTestPlaylist(t, handler, owner, "Watch later")
	video := seedVideo(t, store, owner.ID, "Queued clip")

	memberPath := "/api/playlists/" + playlist.ID + "/videos/" + video.ID

	rec := httptest.NewRecorder()
	handler.PlaylistByID(rec, authedRequest(t, http.MethodPost, memberPath, nil, owner))
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated playlistResponse
	decodeData(t, rec, &updated)
	if len(updated.VideoIDs) != 1 || updated.VideoIDs[0] != video.ID {
		t.Fatalf("videoIds after add = %v", updated.VideoIDs)
	}

	// Adding a video that does not exist is a 404.
	rec = httptest.NewRecorder()
	handler.PlaylistByID(rec, authedRequest(t, http.MethodPost, "/api/playlists/"+playlist.ID+"/videos/missing", nil, owner))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("add missing video status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.PlaylistByID(rec, authedRequest(t, http.MethodDelete, memberPath, nil, owner))
	if rec.Code != http.StatusOK {
		t.Fatalf("remove status = %d, body %s", rec.Code, rec.Body.String())
	}
	decodeData(t, rec, &updated)
	if len(updated.VideoIDs) != 0 {
		t.Fatalf("videoIds after remove = %v", updated.VideoIDs)
	}
}

func TestUpdateAndDeletePlaylist(t *testing.T) {
	handler, _ := newTestHandler(t)
	owner := registerTestAccount(t, handler, "ada")
	playlist := createTestPlaylist(t, handler, owner, "Old name")

	path := "/api/playlists/" + playlist.ID
	rec := httptest.NewRecorder()
	handler.PlaylistByID(rec, authedRequest(t, http.MethodPatch, path, jsonBody(t, map[string]string{"name": "New name"}), owner))
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated playlistResponse
	decodeData(t, rec, &updated)
	if updated.Name != "New name" {
		t.Fatalf("name = %q, want New name", updated.Name)
	}

	rec = httptest.NewRecorder()
	handler.PlaylistByID(rec, authedRequest(t, http.MethodDelete, path, nil, owner))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.PlaylistByID(rec, authedRequest(t, http.MethodGet, path, nil, owner))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}
