package auth

import "context"

// TokenStore persists tokens across processes so a long-lived refresh
// token survives restarts. Implementations are in auth/store/memory,
// auth/store/redis, auth/store/postgres, and auth/store/mongo.
//
// Load returns ErrTokenNotFound when nothing has been persisted yet.
// All operations must be safe for concurrent use.
type TokenStore interface {
	Load(ctx context.Context) (*Token, error)
	Save(ctx context.Context, token *Token) error
}
