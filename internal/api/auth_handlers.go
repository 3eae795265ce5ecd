package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"clipstream/internal/auth"
	"clipstream/internal/models"
)

type accountResponse struct {
	ID        string `json:"id"`
	Handle    string `json:"handle"`
	Email     string `json:"email"`
	FullName  string `json:"fullname"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	CoverURL  string `json:"coverUrl,omitempty"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func newAccountResponse(account models.Account) accountResponse {
	return accountResponse{
		ID:        account.ID,
		Handle:    account.Handle,
		Email:     account.Email,
		FullName:  account.FullName,
		AvatarURL: account.AvatarURL,
		CoverURL:  account.CoverURL,
		CreatedAt: account.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: account.UpdatedAt.Format(time.RFC3339Nano),
	}
}

type sessionResponse struct {
	Account          accountResponse `json:"account"`
	AccessToken      string          `json:"accessToken"`
	RefreshToken     string          `json:"refreshToken"`
	AccessExpiresAt  string          `json:"accessExpiresAt"`
	RefreshExpiresAt string          `json:"refreshExpiresAt"`
}

func newSessionResponse(session auth.Session) sessionResponse {
	return sessionResponse{
		Account:          newAccountResponse(session.Account),
		AccessToken:      session.Access.Token,
		RefreshToken:     session.Refresh.Token,
		AccessExpiresAt:  session.Access.ExpiresAt.Format(time.RFC3339Nano),
		RefreshExpiresAt: session.Refresh.ExpiresAt.Format(time.RFC3339Nano),
	}
}

type registerRequest struct {
	Handle   string `json:"handle"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
	Password string `json:"password"`
}

func (h *Handler) RegisterAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	account, err := h.Auth.Register(r.Context(), req.Handle, req.Email, req.FullName, req.Password)
	if err != nil {
		h.recorder().ObserveAuthEvent("register_failure")
		writeDomainError(w, err)
		return
	}
	h.recorder().ObserveAuthEvent("register_success")
	writeData(w, http.StatusCreated, newAccountResponse(account), "account registered")
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	session, err := h.Auth.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.recorder().ObserveAuthEvent("login_failure")
		}
		writeDomainError(w, err)
		return
	}
	h.recorder().ObserveAuthEvent("login_success")
	h.setSessionCookies(w, r, session)
	writeData(w, http.StatusOK, newSessionResponse(session), "logged in")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshSession rotates the refresh credential. The presented token comes
// from the refreshToken cookie or, failing that, the request body.
func (h *Handler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	presented := ""
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req refreshRequest
		if err := decodeJSON(r, &req); err == nil {
			presented = strings.TrimSpace(req.RefreshToken)
		}
	}
	session, err := h.Auth.Refresh(r.Context(), presented)
	if err != nil {
		h.recorder().ObserveAuthEvent("refresh_rejected")
		writeDomainError(w, err)
		return
	}
	h.recorder().ObserveAuthEvent("refresh_rotated")
	h.setSessionCookies(w, r, session)
	writeData(w, http.StatusOK, newSessionResponse(session), "session refreshed")
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	account, ok := h.requireAuthenticatedAccount(w, r)
	if !ok {
		return
	}
	if err := h.Auth.Logout(r.Context(), account.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	h.recorder().ObserveAuthEvent("logout")
	h.clearSessionCookies(w, r)
	writeData(w, http.StatusOK, nil, "logged out")
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}
	account, ok := h.requireAuthenticatedAccount(w, r)
	if !ok {
		return
	}
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Auth.ChangePassword(r.Context(), account.ID, req.OldPassword, req.NewPassword); err != nil {
		// An old-password mismatch is a bad request on this endpoint, not a
		// challenge to re-authenticate.
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusBadRequest, errors.New("old password is incorrect"))
			return
		}
		writeDomainError(w, err)
		return
	}
	h.recorder().ObserveAuthEvent("password_changed")
	writeData(w, http.StatusOK, nil, "password changed")
}
