package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind distinguishes the two credential flavours minted by the issuer.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

const (
	// DefaultAccessTTL bounds the lifetime of an access credential.
	DefaultAccessTTL = 15 * time.Minute
	// DefaultRefreshTTL bounds the lifetime of a refresh credential.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// Credential is a signed token together with the claims it asserts.
type Credential struct {
	Token     string
	SubjectID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenClaims is the verified payload of a presented token.
type TokenClaims struct {
	SubjectID string
	ExpiresAt time.Time
}

// TokenIssuerOption configures a TokenIssuer instance.
type TokenIssuerOption func(*TokenIssuer)

// WithAccessTTL overrides the access credential lifetime.
func WithAccessTTL(ttl time.Duration) TokenIssuerOption {
	return func(i *TokenIssuer) {
		if ttl > 0 {
			i.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the refresh credential lifetime.
func WithRefreshTTL(ttl time.Duration) TokenIssuerOption {
	return func(i *TokenIssuer) {
		if ttl > 0 {
			i.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source, letting tests mint tokens in the past.
func WithClock(now func() time.Time) TokenIssuerOption {
	return func(i *TokenIssuer) {
		if now != nil {
			i.now = now
		}
	}
}

// TokenIssuer mints and verifies HS256-signed access and refresh credentials.
// Each kind is signed with its own key, so an access token presented where a
// refresh token is expected fails signature verification and vice versa.
type TokenIssuer struct {
	accessKey  []byte
	refreshKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer constructs an issuer from the two signing keys. Both keys are
// required and must differ; reusing one key across kinds would let a stolen
// access token stand in for a refresh token.
func NewTokenIssuer(accessKey, refreshKey []byte, opts ...TokenIssuerOption) (*TokenIssuer, error) {
	if len(accessKey) == 0 || len(refreshKey) == 0 {
		return nil, errors.New("both access and refresh signing keys are required")
	}
	if subtle.ConstantTimeCompare(accessKey, refreshKey) == 1 {
		return nil, errors.New("access and refresh signing keys must differ")
	}
	issuer := &TokenIssuer{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(issuer)
		}
	}
	return issuer, nil
}

// AccessTTL reports the configured access credential lifetime.
func (i *TokenIssuer) AccessTTL() time.Duration { return i.accessTTL }

// RefreshTTL reports the configured refresh credential lifetime.
func (i *TokenIssuer) RefreshTTL() time.Duration { return i.refreshTTL }

// IssueAccess mints a short-lived access credential for the subject.
func (i *TokenIssuer) IssueAccess(subjectID string) (Credential, error) {
	return i.issue(subjectID, TokenKindAccess)
}

// IssueRefresh mints a long-lived refresh credential for the subject.
func (i *TokenIssuer) IssueRefresh(subjectID string) (Credential, error) {
	return i.issue(subjectID, TokenKindRefresh)
}

func (i *TokenIssuer) issue(subjectID string, kind TokenKind) (Credential, error) {
	if strings.TrimSpace(subjectID) == "" {
		return Credential{}, errors.New("subject id is required")
	}
	key, ttl, err := i.kindParams(kind)
	if err != nil {
		return Credential{}, err
	}
	issuedAt := i.now().UTC()
	expiresAt := issuedAt.Add(ttl)
	// The jti keeps two tokens minted in the same second distinct, which the
	// rotate-on-use swap depends on.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subjectID,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	})
	signed, err := token.SignedString(key)
	if err != nil {
		return Credential{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return Credential{
		Token:     signed,
		SubjectID: subjectID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks the signature, kind-specific key, and expiry of a presented
// token. Failures are reported through the ErrInvalidToken taxonomy; Verify is
// pure computation and never touches the backing store.
func (i *TokenIssuer) Verify(token string, kind TokenKind) (TokenClaims, error) {
	if strings.TrimSpace(token) == "" {
		return TokenClaims{}, ErrTokenMalformed
	}
	key, _, err := i.kindParams(kind)
	if err != nil {
		return TokenClaims{}, err
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return TokenClaims{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return TokenClaims{}, ErrTokenSignature
		default:
			return TokenClaims{}, ErrTokenMalformed
		}
	}
	if !parsed.Valid || claims.Subject == "" || claims.ExpiresAt == nil {
		return TokenClaims{}, ErrTokenMalformed
	}
	return TokenClaims{
		SubjectID: claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (i *TokenIssuer) kindParams(kind TokenKind) ([]byte, time.Duration, error) {
	switch kind {
	case TokenKindAccess:
		return i.accessKey, i.accessTTL, nil
	case TokenKindRefresh:
		return i.refreshKey, i.refreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("unknown token kind %q", kind)
	}
}
