package schwab

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// Sentinel errors for the schwab package.
// Use errors.Is() to check for these errors.
//
// Do wraps *APIError in the sentinel matching the response status class,
// so errors.Is(err, schwab.ErrRateLimited) works on any bubbled-up
// transport error.
var (
	// ErrAuthentication is returned when the API rejects the credentials
	// or bearer token (401).
	ErrAuthentication = errors.New("schwab: authentication failed")

	// ErrInvalidRequest is returned for client-side validation failures
	// and 400 responses.
	ErrInvalidRequest = errors.New("schwab: invalid request")

	// ErrPermissionDenied is returned for 403 responses.
	ErrPermissionDenied = errors.New("schwab: permission denied")

	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("schwab: resource not found")

	// ErrRateLimited is returned for 429 responses.
	ErrRateLimited = errors.New("schwab: rate limited")

	// ErrServerError is returned for 5xx responses.
	ErrServerError = errors.New("schwab: server error")

	// ErrTokenSourceRequired is returned when NewClient is called without
	// a token source.
	ErrTokenSourceRequired = errors.New("schwab: token source is required")
)

// APIError represents a non-2xx response from the Schwab API.
type APIError struct {
	// Method and URL of the failed request.
	Method string
	URL    string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// RetryAfter is the parsed Retry-After header in seconds, if present.
	RetryAfter int

	// Message and Code are decoded from the error body when the API
	// returns its conventional {"message": ..., "code": ...} shape.
	Message string `json:"message"`
	Code    string `json:"code"`

	// Body is the raw response body.
	Body string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s (code: %s)", e.Method, e.URL, e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Retryable reports whether the failed request is safe to retry.
// Rate limiting and server-side failures are transient; everything
// else in the 4xx range is not.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// RetryAfterHint exposes the server's Retry-After header as a
// duration for the retry middleware. Zero when the header was absent.
func (e *APIError) RetryAfterHint() time.Duration {
	return time.Duration(e.RetryAfter) * time.Second
}

// AccountNotFoundError is returned by the account resolver when a
// plaintext account number is absent from the mapping even after a
// forced reload.
type AccountNotFoundError struct {
	// AccountNumber is the identifier that failed to resolve.
	AccountNumber string

	// Known holds the plaintext account numbers present in the mapping
	// at the time of the failure, sorted for stable output.
	Known []string
}

func (e *AccountNotFoundError) Error() string {
	known := "none"
	if len(e.Known) > 0 {
		known = strings.Join(e.Known, ", ")
	}
	return fmt.Sprintf("schwab: account %q not found (known accounts: %s)", e.AccountNumber, known)
}

// newAccountNotFoundError builds an AccountNotFoundError from the
// current mapping keys.
func newAccountNotFoundError(accountNumber string, mappings map[string]string) *AccountNotFoundError {
	known := make([]string, 0, len(mappings))
	for plain := range mappings {
		known = append(known, plain)
	}
	sort.Strings(known)
	return &AccountNotFoundError{AccountNumber: accountNumber, Known: known}
}
