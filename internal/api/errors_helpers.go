package api

import (
	"errors"
	"net/http"

	"clipstream/internal/auth"
	"clipstream/internal/storage"
)

// statusForError maps the domain error taxonomy to HTTP status codes. Raw
// store or crypto errors never cross this boundary; anything unrecognized is
// an internal error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, auth.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrConflict), errors.Is(err, storage.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionExpired),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrStoreUnavailable), errors.Is(err, storage.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, errors.New("internal error"))
		return
	}
	writeError(w, status, err)
}
