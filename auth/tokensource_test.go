package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// seededSource returns a TokenSource backed by srv whose cached access
// token has already expired, so the next Token call must refresh.
func seededSource(t *testing.T, srv *httptest.Server, opts ...TokenSourceOption) *TokenSource {
	t.Helper()
	ts, err := NewTokenSource(testConfig(srv), opts...)
	if err != nil {
		t.Fatalf("NewTokenSource: %v", err)
	}
	ts.cached = &Token{
		AccessToken:  "stale",
		RefreshToken: "refresh-0",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	return ts
}

func countingTokenEndpoint(refreshes *atomic.Int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		// Slow enough that concurrent callers pile up behind one flight.
		time.Sleep(20 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-fresh",
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    1800,
		})
	}
}

func TestTokenSourceRefreshes(t *testing.T) {
	var refreshes atomic.Int32
	srv := httptest.NewServer(countingTokenEndpoint(&refreshes))
	defer srv.Close()

	ts := seededSource(t, srv)

	tok, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "access-fresh" {
		t.Errorf("AccessToken = %q", tok.AccessToken)
	}
	if got := refreshes.Load(); got != 1 {
		t.Errorf("refresh calls = %d, want 1", got)
	}

	// The fresh token is cached; no further upstream calls.
	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("cached Token: %v", err)
	}
	if got := refreshes.Load(); got != 1 {
		t.Errorf("refresh calls after cache hit = %d, want 1", got)
	}
}

func TestTokenSourceSingleFlight(t *testing.T) {
	var refreshes atomic.Int32
	srv := httptest.NewServer(countingTokenEndpoint(&refreshes))
	defer srv.Close()

	ts := seededSource(t, srv)

	const goroutines = 16
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			tok, err := ts.Token(context.Background())
			if err != nil {
				errs <- err
				return
			}
			if tok.AccessToken != "access-fresh" {
				errs <- &TokenRequestError{Body: "wrong token " + tok.AccessToken}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Token: %v", err)
	}
	if got := refreshes.Load(); got != 1 {
		t.Errorf("refresh calls under contention = %d, want 1", got)
	}
}

func TestTokenSourceNoToken(t *testing.T) {
	ts, err := NewTokenSource(&Config{ClientID: "x"})
	if err != nil {
		t.Fatalf("NewTokenSource: %v", err)
	}
	if _, err := ts.Token(context.Background()); err != ErrNoToken {
		t.Errorf("Token error = %v, want ErrNoToken", err)
	}
}

func TestTokenSourceRequiresConfig(t *testing.T) {
	if _, err := NewTokenSource(nil); err != ErrConfigRequired {
		t.Errorf("NewTokenSource(nil) error = %v, want ErrConfigRequired", err)
	}
}

// recordingStore captures saves and serves a canned token.
type recordingStore struct {
	mu     sync.Mutex
	stored *Token
}

func (s *recordingStore) Load(_ context.Context) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stored == nil {
		return nil, ErrTokenNotFound
	}
	return s.stored.Clone(), nil
}

func (s *recordingStore) Save(_ context.Context, token *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = token.Clone()
	return nil
}

func TestTokenSourcePersistsRefreshedToken(t *testing.T) {
	var refreshes atomic.Int32
	srv := httptest.NewServer(countingTokenEndpoint(&refreshes))
	defer srv.Close()

	store := &recordingStore{}
	ts := seededSource(t, srv, WithTokenStore(store))

	if _, err := ts.Token(context.Background()); err != nil {
		t.Fatalf("Token: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.stored == nil || store.stored.AccessToken != "access-fresh" {
		t.Errorf("store holds %+v, want refreshed token", store.stored)
	}
}

func TestTokenSourceLoadsFromStore(t *testing.T) {
	store := &recordingStore{stored: &Token{
		AccessToken: "from-store",
		ExpiresAt:   time.Now().Add(time.Hour),
	}}

	ts, err := NewTokenSource(&Config{ClientID: "x"}, WithTokenStore(store))
	if err != nil {
		t.Fatalf("NewTokenSource: %v", err)
	}

	tok, err := ts.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "from-store" {
		t.Errorf("AccessToken = %q, want from-store", tok.AccessToken)
	}
}

func TestSetTokenSeedsAndPersists(t *testing.T) {
	store := &recordingStore{}
	ts, err := NewTokenSource(&Config{ClientID: "x"}, WithTokenStore(store))
	if err != nil {
		t.Fatalf("NewTokenSource: %v", err)
	}

	seed := &Token{AccessToken: "seeded", ExpiresAt: time.Now().Add(time.Hour)}
	if err := ts.SetToken(context.Background(), seed); err != nil {
		t.Fatalf("SetToken: %v", err)
	}

	tok, err := ts.Token(context.Background())
	if err != nil || tok.AccessToken != "seeded" {
		t.Errorf("Token = %+v, %v", tok, err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.stored == nil || store.stored.AccessToken != "seeded" {
		t.Errorf("store holds %+v", store.stored)
	}
}
