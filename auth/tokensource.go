package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// TokenSource hands out valid access tokens, refreshing them through
// the token endpoint as they expire. Concurrent callers that all find
// the cached token expired collapse into a single upstream refresh;
// everyone shares its outcome.
//
// Safe for concurrent use.
type TokenSource struct {
	cfg   *Config
	store TokenStore
	log   *slog.Logger

	mu     sync.Mutex
	cached *Token

	sf singleflight.Group
}

// TokenSourceOption configures a TokenSource.
type TokenSourceOption func(*TokenSource)

// WithTokenStore persists tokens through the given store. The source
// seeds its cache from the store on first use and writes back after
// every refresh.
func WithTokenStore(store TokenStore) TokenSourceOption {
	return func(ts *TokenSource) {
		ts.store = store
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) TokenSourceOption {
	return func(ts *TokenSource) {
		if logger != nil {
			ts.log = logger
		}
	}
}

// NewTokenSource creates a TokenSource for the given OAuth config.
func NewTokenSource(cfg *Config, opts ...TokenSourceOption) (*TokenSource, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	ts := &TokenSource{
		cfg: cfg,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(ts)
	}
	return ts, nil
}

// SetToken seeds the source with a token, typically the result of
// Config.Exchange after the user completes the authorization flow.
// The token is persisted if a store is configured.
func (ts *TokenSource) SetToken(ctx context.Context, tok *Token) error {
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("%w: cannot seed with empty token", ErrNoToken)
	}

	ts.mu.Lock()
	ts.cached = tok.Clone()
	ts.mu.Unlock()

	if ts.store != nil {
		if err := ts.store.Save(ctx, tok); err != nil {
			return fmt.Errorf("auth: persist token: %w", err)
		}
	}
	return nil
}

// Token returns a valid token, refreshing if the cached one has
// expired.
func (ts *TokenSource) Token(ctx context.Context) (*Token, error) {
	ts.mu.Lock()
	cached := ts.cached
	ts.mu.Unlock()

	if cached.Valid() {
		return cached.Clone(), nil
	}

	// All goroutines arriving here share one refresh.
	v, err, _ := ts.sf.Do("token", func() (any, error) {
		return ts.refreshLocked(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Token).Clone(), nil
}

// AccessToken returns just the bearer string from Token.
func (ts *TokenSource) AccessToken(ctx context.Context) (string, error) {
	tok, err := ts.Token(ctx)
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// refreshLocked runs inside the singleflight group. It rechecks the
// cache first so goroutines queued behind a completed refresh do not
// trigger another one.
func (ts *TokenSource) refreshLocked(ctx context.Context) (*Token, error) {
	ts.mu.Lock()
	cached := ts.cached
	ts.mu.Unlock()

	if cached.Valid() {
		return cached, nil
	}

	if cached == nil && ts.store != nil {
		stored, err := ts.store.Load(ctx)
		switch {
		case errors.Is(err, ErrTokenNotFound):
			// Fall through to the refresh-token check below.
		case err != nil:
			return nil, fmt.Errorf("auth: load token: %w", err)
		default:
			cached = stored
			if cached.Valid() {
				ts.mu.Lock()
				ts.cached = cached
				ts.mu.Unlock()
				return cached, nil
			}
		}
	}

	if !cached.CanRefresh() {
		if cached == nil || cached.RefreshToken == "" {
			return nil, ErrNoToken
		}
		return nil, ErrTokenExpired
	}

	ts.log.Debug("refreshing access token")
	fresh, err := ts.cfg.Refresh(ctx, cached.RefreshToken)
	if err != nil {
		return nil, err
	}
	// The endpoint may omit a rotated refresh token; keep the old one.
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = cached.RefreshToken
		fresh.RefreshExpiresAt = cached.RefreshExpiresAt
	}

	ts.mu.Lock()
	ts.cached = fresh
	ts.mu.Unlock()

	if ts.store != nil {
		if err := ts.store.Save(ctx, fresh); err != nil {
			// The refreshed token is usable even if persistence fails.
			ts.log.Warn("failed to persist refreshed token", "error", err)
		}
	}
	return fresh, nil
}

// StaticTokenSource returns a TokenSource that always yields the given
// access token. Useful for tests and short-lived scripts.
func StaticTokenSource(accessToken string) *TokenSource {
	ts := &TokenSource{
		cfg: &Config{},
		log: slog.Default(),
		cached: &Token{
			AccessToken: accessToken,
			TokenType:   "Bearer",
		},
	}
	return ts
}
