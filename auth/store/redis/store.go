// Package redis provides a Redis-backed TokenStore so multiple
// processes can share one OAuth session.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tradekit/schwab/auth"
)

// Compile-time check
var _ auth.TokenStore = (*Store)(nil)

// Store implements auth.TokenStore using Redis. The token is stored
// as a JSON blob under a single key.
type Store struct {
	client redis.UniversalClient
	opts   *options
}

// New creates a Redis token store with the provided client.
// The caller owns the client's lifecycle.
func New(client redis.UniversalClient, opts ...Option) *Store {
	return &Store{
		client: client,
		opts:   newOptions(opts...),
	}
}

// Load fetches and decodes the stored token.
func (s *Store) Load(ctx context.Context) (*auth.Token, error) {
	data, err := s.client.Get(ctx, s.opts.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, auth.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: load token: %w", err)
	}

	var tok auth.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("redis: decode token: %w", err)
	}
	return &tok, nil
}

// Save encodes and stores the token, applying the configured TTL.
func (s *Store) Save(ctx context.Context, token *auth.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("redis: encode token: %w", err)
	}
	if err := s.client.Set(ctx, s.opts.key, data, s.opts.ttl).Err(); err != nil {
		return fmt.Errorf("redis: save token: %w", err)
	}
	s.opts.logger.Debug("token persisted", "key", s.opts.key)
	return nil
}
