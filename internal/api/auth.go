package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"clipstream/internal/auth"
	"clipstream/internal/models"
)

// accountLookupTimeout bounds the datastore round trip that resolves an
// access credential to an account.
const accountLookupTimeout = 5 * time.Second

type contextKey string

const accountContextKey contextKey = "authenticatedAccount"

// ContextWithAccount stores the authenticated account in the provided context.
func ContextWithAccount(ctx context.Context, account models.Account) context.Context {
	return context.WithValue(ctx, accountContextKey, account)
}

// AccountFromContext retrieves the authenticated account from context if present.
func AccountFromContext(ctx context.Context) (models.Account, bool) {
	account, ok := ctx.Value(accountContextKey).(models.Account)
	return account, ok
}

// ExtractAccessToken pulls the access credential from the accessToken cookie
// or an Authorization bearer header.
func ExtractAccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// AuthenticateRequest verifies the access credential on the request and
// resolves the account it names. The reason for a verification failure is
// never surfaced to the client.
func (h *Handler) AuthenticateRequest(r *http.Request) (models.Account, error) {
	token := ExtractAccessToken(r)
	if token == "" {
		return models.Account{}, errors.New("authentication required")
	}
	accountID, err := h.Auth.Authenticate(token)
	if err != nil {
		return models.Account{}, err
	}
	ctx, cancel := context.WithTimeout(r.Context(), accountLookupTimeout)
	defer cancel()
	account, ok, err := h.Store.GetAccount(ctx, accountID)
	if err != nil {
		return models.Account{}, fmt.Errorf("%w: load account: %v", auth.ErrStoreUnavailable, err)
	}
	if !ok {
		return models.Account{}, errors.New("account not found")
	}
	return account, nil
}

func (h *Handler) requireAuthenticatedAccount(w http.ResponseWriter, r *http.Request) (models.Account, bool) {
	account, ok := AccountFromContext(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, fmt.Errorf("authentication required"))
		return models.Account{}, false
	}
	return account, true
}

func (h *Handler) requireOwnership(w http.ResponseWriter, account models.Account, ownerID string) bool {
	if account.ID != ownerID {
		WriteError(w, http.StatusForbidden, fmt.Errorf("forbidden"))
		return false
	}
	return true
}
