package api

import (
	"net/http"
	"strings"
	"time"

	"clipstream/internal/auth"
)

const (
	accessCookieName  = "accessToken"
	refreshCookieName = "refreshToken"
)

type SessionCookieSecureMode int

const (
	SessionCookieSecureAuto SessionCookieSecureMode = iota
	SessionCookieSecureAlways
)

type SessionCookiePolicy struct {
	SameSite   http.SameSite
	SecureMode SessionCookieSecureMode
}

func DefaultSessionCookiePolicy() SessionCookiePolicy {
	return SessionCookiePolicy{
		SameSite:   http.SameSiteStrictMode,
		SecureMode: SessionCookieSecureAuto,
	}
}

func (p SessionCookiePolicy) secure(r *http.Request) bool {
	if p.SecureMode == SessionCookieSecureAlways {
		return true
	}
	return isSecureRequest(r)
}

func (h *Handler) sessionCookiePolicy() SessionCookiePolicy {
	policy := h.CookiePolicy
	if policy.SameSite == 0 {
		policy.SameSite = http.SameSiteStrictMode
	}
	return policy
}

// setSessionCookies installs both credential cookies from a freshly minted
// session. Each cookie expires with its credential.
func (h *Handler) setSessionCookies(w http.ResponseWriter, r *http.Request, session auth.Session) {
	policy := h.sessionCookiePolicy()
	setCredentialCookie(w, r, accessCookieName, session.Access.Token, session.Access.ExpiresAt, policy)
	setCredentialCookie(w, r, refreshCookieName, session.Refresh.Token, session.Refresh.ExpiresAt, policy)
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter, r *http.Request) {
	policy := h.sessionCookiePolicy()
	clearCredentialCookie(w, r, accessCookieName, policy)
	clearCredentialCookie(w, r, refreshCookieName, policy)
}

func setCredentialCookie(w http.ResponseWriter, r *http.Request, name, token string, expires time.Time, policy SessionCookiePolicy) {
	if token == "" {
		return
	}
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  expires.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   policy.secure(r),
		SameSite: policy.SameSite,
	})
}

func clearCredentialCookie(w http.ResponseWriter, r *http.Request, name string, policy SessionCookiePolicy) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   policy.secure(r),
		SameSite: policy.SameSite,
	})
}

func isSecureRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		for _, p := range strings.Split(proto, ",") {
			if strings.EqualFold(strings.TrimSpace(p), "https") {
				return true
			}
		}
	}
	if r.URL != nil && strings.EqualFold(r.URL.Scheme, "https") {
		return true
	}
	return false
}
