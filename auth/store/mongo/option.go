package mongo

import "log/slog"

// Default configuration values.
const (
	// DefaultDatabase is the database tokens are stored in.
	DefaultDatabase = "schwab"

	// DefaultCollection is the collection tokens are stored in.
	DefaultCollection = "oauth_tokens"

	// DefaultName is the document key. Use distinct names when several
	// Schwab sessions share one deployment.
	DefaultName = "schwab"
)

// options holds mongo token store configuration.
type options struct {
	database   string
	collection string
	name       string
	logger     *slog.Logger
}

// Option configures the mongo token store.
type Option func(*options)

// WithDatabase sets the database name. Defaults to DefaultDatabase.
func WithDatabase(database string) Option {
	return func(o *options) {
		if database != "" {
			o.database = database
		}
	}
}

// WithCollection sets the collection name. Defaults to
// DefaultCollection.
func WithCollection(collection string) Option {
	return func(o *options) {
		if collection != "" {
			o.collection = collection
		}
	}
}

// WithName sets the document key. Defaults to DefaultName.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
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
		database:   DefaultDatabase,
		collection: DefaultCollection,
		name:       DefaultName,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
