// Package mongo provides a MongoDB-backed TokenStore.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/tradekit/schwab/auth"
)

// Compile-time check
var _ auth.TokenStore = (*Store)(nil)

// tokenDocument is the persisted shape: one document per configured
// name, replaced wholesale on save.
type tokenDocument struct {
	Name      string     `bson:"_id"`
	Token     auth.Token `bson:"token"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

// Store implements auth.TokenStore using MongoDB.
type Store struct {
	collection *mongo.Collection
	opts       *options
}

// New creates a MongoDB token store with the provided client.
// The caller owns the client's lifecycle.
func New(client *mongo.Client, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		collection: client.Database(o.database).Collection(o.collection),
		opts:       o,
	}
}

// Load fetches the stored token.
func (s *Store) Load(ctx context.Context) (*auth.Token, error) {
	var doc tokenDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": s.opts.name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, auth.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: load token: %w", err)
	}
	return &doc.Token, nil
}

// Save upserts the token document.
func (s *Store) Save(ctx context.Context, token *auth.Token) error {
	doc := tokenDocument{
		Name:      s.opts.name,
		Token:     *token,
		UpdatedAt: time.Now().UTC(),
	}
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": s.opts.name}, doc,
		mongoopts.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo: save token: %w", err)
	}
	s.opts.logger.Debug("token persisted", "database", s.opts.database, "collection", s.opts.collection)
	return nil
}
