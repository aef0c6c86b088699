package postgres

import "log/slog"

// Default configuration values.
const (
	// DefaultTable is the table tokens are stored in.
	DefaultTable = "oauth_tokens"

	// DefaultName is the row key. Use distinct names when several
	// Schwab sessions share one database.
	DefaultName = "schwab"
)

// options holds postgres token store configuration.
type options struct {
	table  string
	name   string
	logger *slog.Logger
}

// Option configures the postgres token store.
type Option func(*options)

// WithTable sets the table name. Defaults to DefaultTable.
func WithTable(table string) Option {
	return func(o *options) {
		if table != "" {
			o.table = table
		}
	}
}

// WithName sets the row key. Defaults to DefaultName.
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
		table:  DefaultTable,
		name:   DefaultName,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
