// Package memory provides an in-memory TokenStore for testing and
// single-process use. Tokens are not persisted.
package memory

import (
	"context"
	"sync"

	"github.com/tradekit/schwab/auth"
)

// Compile-time check
var _ auth.TokenStore = (*Store)(nil)

// Store implements auth.TokenStore in memory.
// Thread-safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	token *auth.Token
}

// New creates an empty in-memory token store.
func New() *Store {
	return &Store{}
}

// Load returns a copy of the stored token.
func (s *Store) Load(_ context.Context) (*auth.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil, auth.ErrTokenNotFound
	}
	return s.token.Clone(), nil
}

// Save stores a copy of the token.
func (s *Store) Save(_ context.Context, token *auth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token.Clone()
	return nil
}
