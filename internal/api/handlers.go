package api

import (
	"net/http"

	"clipstream/internal/auth"
	"clipstream/internal/observability/metrics"
	"clipstream/internal/storage"
)

type Handler struct {
	Store        storage.Repository
	Auth         *auth.Service
	Blobs        storage.BlobStore
	Views        storage.ViewCounter
	Metrics      *metrics.Recorder
	CookiePolicy SessionCookiePolicy
}

func NewHandler(store storage.Repository, authService *auth.Service) *Handler {
	return &Handler{
		Store:        store,
		Auth:         authService,
		Blobs:        storage.NoopBlobStore{},
		Views:        storage.NewMemoryViewCounter(),
		CookiePolicy: DefaultSessionCookiePolicy(),
	}
}

func (h *Handler) recorder() *metrics.Recorder {
	if h.Metrics != nil {
		return h.Metrics
	}
	return metrics.Default()
}

func (h *Handler) blobStore() storage.BlobStore {
	if h.Blobs != nil {
		return h.Blobs
	}
	return storage.NoopBlobStore{}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	components, overall, statusCode := h.componentHealth(r.Context())
	writeJSON(w, statusCode, map[string]interface{}{
		"status":     overall,
		"components": components,
	})
}
