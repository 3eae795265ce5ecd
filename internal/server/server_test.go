package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"clipstream/internal/api"
	"clipstream/internal/auth"
	"clipstream/internal/models"
	"clipstream/internal/storage"
)

func newTestHandler(t *testing.T) (*api.Handler, *storage.Storage) {
	t.Helper()
	store, err := storage.NewStorage(filepath.Join(t.TempDir(), "clipstream.json"))
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	issuer, err := auth.NewTokenIssuer([]byte("access-signing-key"), []byte("refresh-signing-key"))
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}
	service := auth.NewService(store, store, issuer, auth.WithHasher(auth.NewPasswordHasher(1000)))
	return api.NewHandler(store, service), store
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	handler, _ := newTestHandler(t)
	srv, err := New(handler, Config{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return srv
}

func postJSON(t *testing.T, srv *Server, path string, payload interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func TestServerHealthRoute(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
}

func TestServerRejectsUnauthenticatedAPIRequests(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestServerAllowsAnonymousVideoListing(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestServerAuthFlowEndToEnd(t *testing.T) {
	srv := newTestServer(t)

	rec := postJSON(t, srv, "/api/auth/register", map[string]string{
		"handle":   "ada",
		"email":    "ada@example.com",
		"fullname": "Ada Lovelace",
		"password": "difference engine",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, srv, "/api/auth/login", map[string]string{
		"identifier": "ada",
		"password":   "difference engine",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	var accessCookie, refreshCookie *http.Cookie
	for _, cookie := range cookies {
		switch cookie.Name {
		case "accessToken":
			accessCookie = cookie
		case "refreshToken":
			refreshCookie = cookie
		}
	}
	if accessCookie == nil || refreshCookie == nil {
		t.Fatalf("expected both credential cookies, got %v", cookies)
	}
	if !accessCookie.HttpOnly || !refreshCookie.HttpOnly {
		t.Fatal("expected httpOnly credential cookies")
	}

	// The access cookie authenticates protected routes.
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.AddCookie(accessCookie)
	meRec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(meRec, req)
	if meRec.Code != http.StatusOK {
		t.Fatalf("me status = %d, body %s", meRec.Code, meRec.Body.String())
	}

	// Rotation: the refresh cookie yields a new pair, and replaying the old
	// refresh credential is rejected.
	refreshRec := postJSON(t, srv, "/api/auth/refresh-token", nil, []*http.Cookie{refreshCookie})
	if refreshRec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", refreshRec.Code, refreshRec.Body.String())
	}
	replayRec := postJSON(t, srv, "/api/auth/refresh-token", nil, []*http.Cookie{refreshCookie})
	if replayRec.Code != http.StatusUnauthorized {
		t.Fatalf("replay status = %d, want 401", replayRec.Code)
	}

	// Logout clears the session; the consumed cookies no longer refresh.
	var rotated *http.Cookie
	for _, cookie := range refreshRec.Result().Cookies() {
		if cookie.Name == "refreshToken" {
			rotated = cookie
		}
	}
	if rotated == nil {
		t.Fatal("expected rotated refresh cookie")
	}
	logoutRec := postJSON(t, srv, "/api/auth/logout", nil, []*http.Cookie{accessCookie})
	if logoutRec.Code != http.StatusOK {
		t.Fatalf("logout status = %d, body %s", logoutRec.Code, logoutRec.Body.String())
	}
	afterLogout := postJSON(t, srv, "/api/auth/refresh-token", nil, []*http.Cookie{rotated})
	if afterLogout.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout status = %d, want 401", afterLogout.Code)
	}
}

func TestServerRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected X-Request-Id header on response")
	}
}

// outageStore simulates a datastore that stops answering account lookups
// after a session has been established.
type outageStore struct {
	*storage.Storage
	failGets atomic.Bool
}

func (s *outageStore) GetAccount(ctx context.Context, id string) (models.Account, bool, error) {
	if s.failGets.Load() {
		return models.Account{}, false, fmt.Errorf("%w: connection refused", storage.ErrUnavailable)
	}
	return s.Storage.GetAccount(ctx, id)
}

func TestServerReportsStoreOutageOnProtectedRoutes(t *testing.T) {
	backing, err := storage.NewStorage(filepath.Join(t.TempDir(), "clipstream.json"))
	if err != nil {
		t.Fatalf("NewStorage returned error: %v", err)
	}
	store := &outageStore{Storage: backing}
	issuer, err := auth.NewTokenIssuer([]byte("access-signing-key"), []byte("refresh-signing-key"))
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}
	service := auth.NewService(store, store, issuer, auth.WithHasher(auth.NewPasswordHasher(1000)))
	srv, err := New(api.NewHandler(store, service), Config{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	rec := postJSON(t, srv, "/api/auth/register", map[string]string{
		"handle":   "grace",
		"email":    "grace@example.com",
		"fullname": "Grace Hopper",
		"password": "compile it twice",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	rec = postJSON(t, srv, "/api/auth/login", map[string]string{
		"identifier": "grace",
		"password":   "compile it twice",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var accessCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "accessToken" {
			accessCookie = cookie
		}
	}
	if accessCookie == nil {
		t.Fatal("expected access cookie after login")
	}

	store.failGets.Store(true)

	req := httptest.NewRequest(http.MethodGet, "/api/playlists", nil)
	req.AddCookie(accessCookie)
	outageRec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(outageRec, req)
	if outageRec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status during outage = %d, want 503, body %s", outageRec.Code, outageRec.Body.String())
	}
}

func TestServerServesChannelProfilesAnonymously(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/channels/nobody", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for an unknown channel, not an auth challenge", rec.Code)
	}
}
