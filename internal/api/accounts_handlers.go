package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"clipstream/internal/models"
	"clipstream/internal/storage"
)

const maxImageUploadBytes = 8 << 20

// CurrentAccount serves and updates the caller's own profile.
func (h *Handler) CurrentAccount(w http.ResponseWriter, r *http.Request) {
	account, ok := h.requireAuthenticatedAccount(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		writeData(w, http.StatusOK, newAccountResponse(account), "")
	case http.MethodPatch:
		h.updateCurrentAccount(w, r, account)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch)
	}
}

type updateAccountRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"fullname"`
}

func (h *Handler) updateCurrentAccount(w http.ResponseWriter, r *http.Request, account models.Account) {
	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Email == nil && req.FullName == nil {
		writeError(w, http.StatusBadRequest, errors.New("no fields to update"))
		return
	}
	updated, err := h.Store.UpdateAccount(r.Context(), account.ID, storage.AccountUpdate{
		Email:    req.Email,
		FullName: req.FullName,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, newAccountResponse(updated), "account updated")
}

// WatchHistory lists the videos the caller has played, most recent first.
func (h *Handler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	account, ok := h.requireAuthenticatedAccount(w, r)
	if !ok {
		return
	}
	videos, err := h.Store.ListWatchHistory(r.Context(), account.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, newVideoResponses(videos), "")
}

// UpdateAvatar replaces the caller's avatar image through the blob store.
func (h *Handler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateAccountImage(w, r, "avatar")
}

// UpdateCover replaces the caller's cover image through the blob store.
func (h *Handler) UpdateCover(w http.ResponseWriter, r *http.Request) {
	h.updateAccountImage(w, r, "cover")
}

func (h *Handler) updateAccountImage(w http.ResponseWriter, r *http.Request, field string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, http.MethodPut)
		return
	}
	account, ok := h.requireAuthenticatedAccount(w, r)
	if !ok {
		return
	}
	blobs := h.blobStore()
	if !blobs.Enabled() {
		writeError(w, http.StatusServiceUnavailable, errors.New("object storage is not configured"))
		return
	}

	file, header, err := formFile(r, field, maxImageUploadBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxImageUploadBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("read %s upload: %w", field, err))
		return
	}
	if len(data) > maxImageUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("%s exceeds %d bytes", field, maxImageUploadBytes))
		return
	}

	key := fmt.Sprintf("%ss/%s/%s%s", field, account.ID, uuid.NewString(), safeExtension(header.Filename))
	ref, err := blobs.Put(r.Context(), key, header.Header.Get("Content-Type"), data)
	if err != nil {
		writeError(w, http.StatusBadGateway, fmt.Errorf("store %s: %w", field, err))
		return
	}

	update := storage.AccountUpdate{}
	if field == "avatar" {
		update.AvatarURL = &ref.URL
	} else {
		update.CoverURL = &ref.URL
	}
	updated, err := h.Store.UpdateAccount(r.Context(), account.ID, update)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, newAccountResponse(updated), field+" updated")
}

func formFile(r *http.Request, field string, limit int64) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(limit); err != nil {
		return nil, nil, fmt.Errorf("parse multipart form: %w", err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("form file %q is required", field)
	}
	return file, header, nil
}

// safeExtension keeps only simple alphanumeric extensions from client
// filenames so they cannot smuggle path tricks into blob keys.
func safeExtension(filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(filename)))
	if ext == "" || len(ext) > 8 {
		return ""
	}
	for _, char := range ext[1:] {
		if (char < 'a' || char > 'z') && (char < '0' || char > '9') {
			return ""
		}
	}
	return ext
}
