// Package auth implements the OAuth flow for the Schwab API: the
// three-legged authorization-code exchange, refresh-token rotation,
// and a concurrency-safe TokenSource that the client pulls bearer
// tokens from.
package auth

import (
	"errors"
	"time"
)

// Sentinel errors for the auth package.
// Use errors.Is() to check for these errors.
var (
	// ErrNoToken is returned when a token is requested before one has
	// been seeded via Exchange/SetToken or loaded from a store.
	ErrNoToken = errors.New("auth: no token available")

	// ErrTokenExpired is returned when the cached refresh token has
	// expired and a new authorization-code exchange is required.
	ErrTokenExpired = errors.New("auth: refresh token expired, re-authorization required")

	// ErrTokenNotFound is returned by TokenStore implementations when
	// no token has been persisted yet.
	ErrTokenNotFound = errors.New("auth: token not found in store")

	// ErrConfigRequired is returned when a TokenSource is built without
	// an OAuth config.
	ErrConfigRequired = errors.New("auth: config is required")
)

// expiryDelta is how early a token is considered expired, covering
// clock skew and request latency.
const expiryDelta = 30 * time.Second

// Token holds the OAuth credentials issued by the token endpoint.
type Token struct {
	// AccessToken is the bearer token sent on API requests.
	AccessToken string `json:"access_token"`

	// RefreshToken is exchanged for new access tokens for seven days
	// after issuance.
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type"`

	// Scope as granted by the authorization server.
	Scope string `json:"scope,omitempty"`

	// ExpiresAt is when AccessToken stops being accepted.
	ExpiresAt time.Time `json:"expires_at"`

	// RefreshExpiresAt is when RefreshToken stops being accepted and a
	// new authorization-code grant is needed. Zero means unknown.
	RefreshExpiresAt time.Time `json:"refresh_expires_at,omitzero"`
}

// Valid reports whether the access token can still be used, with a
// small safety margin before the recorded expiry.
func (t *Token) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return time.Now().Add(expiryDelta).Before(t.ExpiresAt)
}

// CanRefresh reports whether the refresh token is present and not past
// its own expiry.
func (t *Token) CanRefresh() bool {
	if t == nil || t.RefreshToken == "" {
		return false
	}
	if t.RefreshExpiresAt.IsZero() {
		return true
	}
	return time.Now().Before(t.RefreshExpiresAt)
}

// Clone returns a copy of the token so callers cannot mutate cached
// state.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
