package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipstream/internal/models"
	"clipstream/internal/storage"
)

const maxVideoUploadBytes = 256 << 20

type videoResponse struct {
	ID              string `json:"id"`
	OwnerID         string `json:"ownerId"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	VideoURL        string `json:"videoUrl"`
	ThumbnailURL    string `json:"thumbnailUrl,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	Views           int64  `json:"views"`
	Published       bool   `json:"published"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

func newVideoResponse(video models.Video) videoResponse {
	return videoResponse{
		ID:              video.ID,
		OwnerID:         video.OwnerID,
		Title:           video.Title,
		Description:     video.Description,
		VideoURL:        video.VideoURL,
		ThumbnailURL:    video.ThumbnailURL,
		DurationSeconds: video.DurationSeconds,
		Views:           video.Views,
		Published:       video.Published,
		CreatedAt:       video.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:       video.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func newVideoResponses(videos []models.Video) []videoResponse {
	responses := make([]videoResponse, 0, len(videos))
	for _, video := range videos {
		responses = append(responses, newVideoResponse(video))
	}
	return responses
}

// Videos serves the video collection: listing for everyone, creation for
// authenticated accounts.
func (h *Handler) Videos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listVideos(w, r)
	case http.MethodPost:
		h.createVideo(w, r)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (h *Handler) listVideos(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(r.URL.Query().Get("owner"))
	includeUnpublished := false
	if viewer, ok := AccountFromContext(r.Context()); ok && ownerID == viewer.ID {
		// Owners see their own drafts.
		includeUnpublished = true
	}
	videos, err := h.Store.ListVideos(r.Context(), ownerID, includeUnpublished)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, newVideoResponses(videos), "")
}

func (h *Handler) createVideo(w http.ResponseWriter, r *http.Request) {
	account, ok := h.requireAuthenticatedAccount(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxVideoUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}

	params := storage.CreateVideoParams{
		OwnerID:     account.ID,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
	if raw := strings.TrimSpace(r.FormValue("durationSeconds")); raw != "" {
		duration, err := strconv.Atoi(raw)
		if err != nil || duration < 0 {
			writeError(w, http.StatusBadRequest, errors.New("durationSeconds must be a non-negative integer"))
			return
		}
		params.DurationSeconds = duration
	}

	blobs := h.blobStore()
	if file, header, err := r.FormFile("video"); err == nil {
		defer file.Close()
		if !blobs.Enabled() {
			writeError(w, http.StatusServiceUnavailable, errors.New("object storage is not configured"))
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, maxVideoUploadBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("read video upload: %w", err))
			return
		}
		if len(data) > maxVideoUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("video exceeds %d bytes", maxVideoUploadBytes))
			return
		}
		key := fmt.Sprintf("videos/%s/%s%s", account.ID, uuid.NewString(), safeExtension(header.Filename))
		ref, err := blobs.Put(r.Context(), key, header.Header.Get("Content-Type"), data)
		if err != nil {
			writeError(w, http.StatusBadGateway, fmt.Errorf("store video: %w", err))
			return
		}
		params.VideoURL = ref.URL
		params.VideoKey = ref.Key
	} else {
		// Pre-hosted media can be registered by URL when no file is attached.
		params.VideoURL = strings.TrimSpace(r.FormValue("videoUrl"))
	}

	if file, header, err := r.FormFile("thumbnail"); err == nil {
		defer file.Close()
		if !blobs.Enabled() {
			writeError(w, http.StatusServiceUnavailable, errors.New("object storage is not configured"))
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, maxImageUploadBytes+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("read thumbnail upload: %w", err))
			return
		}
		if len(data) > maxImageUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("thumbnail exceeds %d bytes", maxImageUploadBytes))
			return
		}
		key := fmt.Sprintf("thumbnails/%s/%s%s", account.ID, uuid.NewString(), safeExtension(header.Filename))
		ref, err := blobs.Put(r.Context(), key, header.Header.Get("Content-Type"), data)
		if err != nil {
			writeError(w, http.StatusBadGateway, fmt.Errorf("store thumbnail: %w", err))
			return
		}
		params.ThumbnailURL = ref.URL
		params.ThumbnailKey = ref.Key
	} else {
		params.ThumbnailURL = strings.TrimSpace(r.FormValue("thumbnailUrl"))
	}

	if params.VideoURL == "" {
		writeError(w, http.StatusBadRequest, errors.New("video file or videoUrl is required"))
		return
	}

	video, err := h.Store.CreateVideo(r.Context(), params)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.recorder().ObserveVideoEvent("created")
	writeData(w, http.StatusCreated, newVideoResponse(video), "video published")
}

// VideoByID routes /videos/{id} and its sub-resources.
func (h *Handler) VideoByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/videos/"), "/")
	if rest == "" {
		writeError(w, http.StatusNotFound, errors.New("video id is required"))
		return
	}
	segments := strings.Split(rest, "/")
	videoID := segments[0]
	if len(segments) == 2 && segments[1] == "toggle-publish" {
		h.toggleVideoPublish(w, r, videoID)
		return
	}
	if len(segments) != 1 {
		writeError(w, http.StatusNotFound, errors.New("not found"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.getVideo(w, r, videoID)
	case http.MethodPatch:
		h.updateVideo(w, r, videoID)
	case http.MethodDelete:
		h.deleteVideo(w, r, videoID)
	default:
		methodNotAllowed(w, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (h *Handler) getVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	video, ok, err := h.Store.GetVideo(r.Context(), videoID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
		return
	}
	viewer, authed := AccountFromContext(r.Context())
	if !video.Published && (!authed || viewer.ID != video.OwnerID) {
		writeError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
		return
	}
	// Owner playbacks do not inflate the view count.
	if video.Published && (!authed || viewer.ID != video.OwnerID) {
		if err := h.Views.Increment(r.Context(), video.ID); err == nil {
			h.recorder().ObservePlaybackView()
		}
	}
	// Watch history is best effort; a failed write never blocks playback.
	if authed {
		_ = h.Store.RecordWatch(r.Context(), viewer.ID, video.ID)
	}
	writeData(w, http.StatusOK, newVideoResponse(video), "")
}

type updateVideoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (h *Handler) updateVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	account, ok := h.requireAuthenticatedAccount(w, r)
	if !ok {
		return
	}
	video, found, err := h.Store.GetVideo(r.Context(), videoID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
		return
	}
	if !h.requireOwnership(w, account, video.OwnerID) {
		return
	}
	var req updateVideoRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	updated, err := h.Store.UpdateVideo(r.Context(), videoID, storage.VideoUpdate{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, http.StatusOK, newVideoResponse(updated), "video updated")
}

func (h *Handler) deleteVideo(w http.ResponseWriter, r *http.Request, videoID string) {
	account, ok := h.requireAuthenticatedAccount(w, r)
	if !ok {
		return
	}
	video, found, err := h.Store.GetVideo(r.Context(), videoID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
		return
	}
	if !h.requireOwnership(w, account, video.OwnerID) {
		return
	}
	if err := h.Store.DeleteVideo(r.Context(), videoID); err != nil {
		writeDomainError(w, err)
		return
	}
	blobs := h.blobStore()
	for _, key := range []string{video.VideoKey, video.ThumbnailKey} {
		if key == "" {
			continue
		}
		// The record is already gone; a failed blob delete just leaves an
		// orphan in the bucket.
		_ = blobs.Delete(r.Context(), key)
	}
	h.recorder().ObserveVideoEvent("deleted")
	writeData(w, http.StatusOK, nil, "video deleted")
}

func (h *Handler) toggleVideoPublish(w http.ResponseWriter, r *http.Request, videoID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	account, ok := h.requireAuthenticatedAccount(w, r)
	if !ok {
		return
	}
	video, found, err := h.Store.GetVideo(r.Context(), videoID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, fmt.Errorf("video %s not found", videoID))
		return
	}
	if !h.requireOwnership(w, account, video.OwnerID) {
		return
	}
	updated, err := h.Store.SetVideoPublished(r.Context(), videoID, !video.Published)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if updated.Published {
		h.recorder().ObserveVideoEvent("published")
	} else {
		h.recorder().ObserveVideoEvent("unpublished")
	}
	writeData(w, http.StatusOK, newVideoResponse(updated), "publish state updated")
}
