// Package postgres provides a PostgreSQL-backed TokenStore.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tradekit/schwab/auth"
)

// Compile-time check
var _ auth.TokenStore = (*Store)(nil)

// Store implements auth.TokenStore using PostgreSQL. Tokens are kept
// as JSONB in a single row per configured name; writes are atomic
// upserts, so concurrent savers need no external locking.
type Store struct {
	db   *sqlx.DB
	opts *options

	schemaOnce sync.Once
	schemaErr  error
}

// New creates a PostgreSQL token store with the provided database
// connection. The schema is created lazily on first use.
func New(db *sqlx.DB, opts ...Option) *Store {
	return &Store{
		db:   db,
		opts: newOptions(opts...),
	}
}

// NewFromDB creates a PostgreSQL token store from a standard sql.DB
// connection.
func NewFromDB(db *sql.DB, opts ...Option) *Store {
	return New(sqlx.NewDb(db, "postgres"), opts...)
}

// ensureSchema creates the token table once per Store.
func (s *Store) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		query := fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				name TEXT PRIMARY KEY,
				token JSONB NOT NULL,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, pq.QuoteIdentifier(s.opts.table))
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			s.schemaErr = fmt.Errorf("postgres: ensure schema: %w", err)
			return
		}
		s.opts.logger.Debug("token table ready", "table", s.opts.table)
	})
	return s.schemaErr
}

// Load fetches and decodes the stored token.
func (s *Store) Load(ctx context.Context) (*auth.Token, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT token FROM %s WHERE name = $1`, pq.QuoteIdentifier(s.opts.table))

	var data []byte
	err := s.db.QueryRowxContext(ctx, query, s.opts.name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: load token: %w", err)
	}

	var tok auth.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("postgres: decode token: %w", err)
	}
	return &tok, nil
}

// Save upserts the token row.
func (s *Store) Save(ctx context.Context, token *auth.Token) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("postgres: encode token: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (name, token, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET token = EXCLUDED.token, updated_at = now()`,
		pq.QuoteIdentifier(s.opts.table))

	if _, err := s.db.ExecContext(ctx, query, s.opts.name, data); err != nil {
		return fmt.Errorf("postgres: save token: %w", err)
	}
	return nil
}
