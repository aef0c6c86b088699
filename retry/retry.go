// Package retry provides exponential backoff for transient Schwab API
// failures. It is wired into the client's request path via
// schwab.WithRetry and is off by default.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/url"
	"time"
)

// Config configures retry behavior.
type Config struct {
	// MaxRetries is the maximum number of retry attempts (default: 3).
	// Set to 0 for no retries (execute once).
	MaxRetries int

	// InitialBackoff is the delay before the first retry (default: 500ms).
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff duration (default: 16s).
	MaxBackoff time.Duration

	// Multiplier increases backoff after each retry (default: 2.0).
	Multiplier float64

	// Jitter adds randomness to prevent thundering herd (default: 0.1 = 10%).
	// Value between 0 and 1 where 0 means no jitter and 1 means +/- 100%.
	Jitter float64

	// IsRetryable determines if an error should be retried.
	// If nil, defaults to DefaultIsRetryable.
	IsRetryable func(error) bool
}

// DefaultConfig returns a Config with sensible defaults for a
// rate-limited brokerage API.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     16 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
		IsRetryable:    DefaultIsRetryable,
	}
}

// Sentinel errors.
var (
	// ErrNotRetryable wraps non-retryable errors to stop retry attempts.
	ErrNotRetryable = errors.New("retry: error is not retryable")

	// ErrMaxRetries is returned when all retry attempts are exhausted.
	ErrMaxRetries = errors.New("retry: max retries exceeded")

	// ErrContextCanceled wraps context cancellation errors.
	ErrContextCanceled = errors.New("retry: context canceled")
)

// Do executes fn with retries according to cfg.
// Returns the last error if all retries fail.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	cfg = applyDefaults(cfg)

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			if lastErr != nil {
				return &Error{Cause: lastErr, Attempts: attempt, Err: ErrContextCanceled}
			}
			return ctx.Err()
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !cfg.IsRetryable(err) {
			return &Error{Cause: err, Attempts: attempt + 1, Err: ErrNotRetryable}
		}

		// Don't sleep after the last attempt.
		if attempt < cfg.MaxRetries {
			backoff := calculateBackoff(cfg, attempt, err)
			select {
			case <-ctx.Done():
				return &Error{Cause: lastErr, Attempts: attempt + 1, Err: ErrContextCanceled}
			case <-time.After(backoff):
			}
		}
	}

	return &Error{Cause: lastErr, Attempts: cfg.MaxRetries + 1, Err: ErrMaxRetries}
}

// DoWithResult executes fn with retries and returns a result value.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)
		return fnErr
	})
	return result, err
}

// Error provides details about a failed retry operation.
type Error struct {
	// Cause is the last error returned by the function.
	Cause error

	// Attempts is the number of attempts made.
	Attempts int

	// Err is the sentinel error (ErrMaxRetries, ErrNotRetryable, or
	// ErrContextCanceled).
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("retry failed after %d attempts (%s): %s", e.Attempts, e.Err, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target) || errors.Is(e.Cause, target)
}

// calculateBackoff computes the backoff duration for an attempt,
// honoring a server-supplied Retry-After hint when it exceeds the
// computed backoff.
func calculateBackoff(cfg Config, attempt int, err error) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))

	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}

	if cfg.Jitter > 0 {
		jitterRange := backoff * cfg.Jitter
		backoff = backoff - jitterRange + (rand.Float64() * 2 * jitterRange)
	}

	d := time.Duration(backoff)

	var hinted interface{ RetryAfterHint() time.Duration }
	if errors.As(err, &hinted) {
		if hint := hinted.RetryAfterHint(); hint > d {
			if hint > cfg.MaxBackoff {
				hint = cfg.MaxBackoff
			}
			d = hint
		}
	}

	return d
}

// applyDefaults fills in zero values with defaults.
func applyDefaults(cfg Config) Config {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 16 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	if cfg.Jitter > 1 {
		cfg.Jitter = 1
	}
	if cfg.IsRetryable == nil {
		cfg.IsRetryable = DefaultIsRetryable
	}
	return cfg
}

// DefaultIsRetryable retries rate limits, server-side failures, and
// transport-level network errors. Anything else (4xx validation
// errors, auth failures, decode errors) fails fast.
func DefaultIsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrNotRetryable) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// API errors carry their own verdict based on status class.
	var retryable interface{ Retryable() bool }
	if errors.As(err, &retryable) {
		return retryable.Retryable()
	}

	// Timeouts and connection resets are transient.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	return false
}

// MarkNotRetryable wraps an error to indicate it should not be retried.
func MarkNotRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &notRetryableError{cause: err}
}

type notRetryableError struct {
	cause error
}

func (e *notRetryableError) Error() string {
	return e.cause.Error()
}

func (e *notRetryableError) Unwrap() error {
	return e.cause
}

func (e *notRetryableError) Retryable() bool {
	return false
}
