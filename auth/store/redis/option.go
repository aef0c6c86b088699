package redis

import (
	"log/slog"
	"time"
)

// Default configuration values.
const (
	// DefaultKey is the Redis key tokens are stored under.
	DefaultKey = "schwab:oauth:token"
)

// options holds redis token store configuration.
type options struct {
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures the redis token store.
type Option func(*options)

// WithKey sets the Redis key. Defaults to DefaultKey. Use distinct
// keys when several Schwab sessions share one Redis.
func WithKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.key = key
		}
	}
}

// WithTTL expires stored tokens after the given duration. Zero (the
// default) stores them without expiry; the refresh-token lifetime is
// tracked inside the token itself either way.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func newOptions(opts ...Option) *options {
	o := &options{
		key:    DefaultKey,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
