package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"clipstream/internal/models"
	"clipstream/internal/storage"
)

type playlistResponse struct {
	ID          string   `json:"id"`
	OwnerID     string   `json:"ownerId"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	VideoIDs    []string `json:"videoIds"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

func newPlaylistResponse(playlist models.Playlist) playlistResponse {
	videoIDs := playlist.VideoIDs
	if videoIDs == nil {
		videoIDs = []string{}
	}
	return playlistResponse{
		ID:          playlist.ID,
		OwnerID:     playlist.OwnerID,
		Name:        playlist.Name,
		Description: playlist.Description,
		VideoIDs:    videoIDs,
		CreatedAt:   playlist.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   playlist.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// Playlists serves the playlist collection for the authenticated account.
func (h *Handler) Playlists(w http.ResponseWriter, r *http.Request) {
	account, ok := h.requireAuthenticatedAccount(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		ownerID := strings.TrimSpace(r.URL.Query().Get("owner"))
		if ownerID == "" {
			ownerID = account.ID
		}
		playlists, err := h.Store.ListPlaylistsByOwner(r.Context(), ownerID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		responses := make([]playlistResponse, 0, len(playlists))
		for _, playlist := range playlists {
			responses = append(responses, newPlaylistResponse(playlist))
		}
		writeData(w, http.StatusOK, responses, "")
	case http.MethodPost:
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		playlist, err := h.Store.CreatePlaylist(r.Context(), account.ID, req.Name, req.Description)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusCreated, newPlaylistResponse(playlist), "playlist created")
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// PlaylistByID routes /playlists/{id} and its videos sub-resource.
func (h *Handler) PlaylistByID(w http.ResponseWriter, r *http.Request) {
	account, ok := h.requireAuthenticatedAccount(w, r)
	if !ok {
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/playlists/"), "/")
	if rest == "" {
		writeError(w, http.StatusNotFound, errors.New("playlist id is required"))
		return
	}
	segments := strings.Split(rest, "/")
	playlistID := segments[0]

	playlist, found, err := h.Store.GetPlaylist(r.Context(), playlistID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Errorf("playlist %s not found", playlistID))
		return
	}
	if !h.requireOwnership(w, account, playlist.OwnerID) {
		return
	}

	if len(segments) == 3 && segments[1] == "videos" {
		h.playlistVideo(w, r, playlistID, segments[2])
		return
	}
	if len(segments) != 1 {
		writeError(w, http.StatusNotFound, errors.New("not found"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeData(w, http.StatusOK, newPlaylistResponse(playlist), "")
	case http.MethodPatch:
		var req struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := h.Store.UpdatePlaylist(r.Context(), playlistID, storage.PlaylistUpdate{
			Name:        req.Name,
			Description: req.Description,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, newPlaylistResponse(updated), "playlist updated")
	case http.MethodDelete:
		if err := h.Store.DeletePlaylist(r.Context(), playlistID); err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, nil, "playlist deleted")
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (h *Handler) playlistVideo(w http.ResponseWriter, r *http.Request, playlistID, videoID string) {
	switch r.Method {
	case http.MethodPost:
		updated, err := h.Store.AddPlaylistVideo(r.Context(), playlistID, videoID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, newPlaylistResponse(updated), "video added to playlist")
	case http.MethodDelete:
		updated, err := h.Store.RemovePlaylistVideo(r.Context(), playlistID, videoID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeData(w, http.StatusOK, newPlaylistResponse(updated), "video removed from playlist")
	default:
		methodNotAllowed(w, http.MethodPost, http.MethodDelete)
	}
}
