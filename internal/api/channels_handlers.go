package api

import (
	"fmt"
	"net/http"
	"strings"

	"clipstream/internal/models"
	"clipstream/internal/storage"
)

// channelResponse is the public projection of an account's channel page. It
// never carries the email address.
type channelResponse struct {
	Handle    string          `json:"handle"`
	FullName  string          `json:"fullName"`
	AvatarURL string          `json:"avatarUrl,omitempty"`
	CoverURL  string          `json:"coverUrl,omitempty"`
	Videos    []videoResponse `json:"videos"`
}

func newChannelResponse(account models.Account, videos []models.Video) channelResponse {
	return channelResponse{
		Handle:    account.Handle,
		FullName:  account.FullName,
		AvatarURL: account.AvatarURL,
		CoverURL:  account.CoverURL,
		Videos:    newVideoResponses(videos),
	}
}

// ChannelProfile serves the public channel page for a handle: the account's
// public fields plus its published videos. Lookups go through the normalized
// handle only, so an email address never resolves to a channel.
func (h *Handler) ChannelProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	raw := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/channels/"), "/")
	if raw == "" || strings.Contains(raw, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("channel not found"))
		return
	}
	handle, err := storage.NormalizeHandle(raw)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("channel not found"))
		return
	}
	account, ok, err := h.Store.FindAccountByIdentifier(r.Context(), handle)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok || account.Handle != handle {
		writeError(w, http.StatusNotFound, fmt.Errorf("channel not found"))
		return
	}
	videos, err := h.Store.ListVideos(r.Context(), account.ID, false)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, newChannelResponse(account, videos), "")
}
