package schwab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tradekit/schwab/auth"
	"github.com/tradekit/schwab/retry"
)

// Client manages communication with the Schwab trader API.
//
// Endpoint groups are exposed as services (Accounts, Orders,
// MarketData, Transactions, UserPreference). Account-scoped services
// route identifiers through Resolver before building URLs, so callers
// may pass either plaintext account numbers or encrypted hashes
// everywhere an account is expected.
//
// Safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	userAgent  string
	logger     *slog.Logger
	tokens     *auth.TokenSource

	retryEnabled bool
	retryConfig  retry.Config

	otel *otelInstrumentation

	// Resolver owns the plaintext-to-encrypted account number mapping
	// for this client's session.
	Resolver *AccountResolver

	// API endpoint groups.
	Accounts       *AccountService
	Orders         *OrderService
	MarketData     *MarketDataService
	Transactions   *TransactionService
	UserPreference *UserPreferenceService
}

// NewClient returns a Schwab API client drawing bearer tokens from the
// given source.
func NewClient(tokens *auth.TokenSource, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, ErrTokenSourceRequired
	}

	o := newOptions(opts...)

	baseURL, err := url.Parse(o.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base URL %q: %v", ErrInvalidRequest, o.baseURL, err)
	}

	inst, err := newOtelInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("schwab: init instrumentation: %w", err)
	}

	c := &Client{
		httpClient:   o.httpClient,
		baseURL:      baseURL,
		userAgent:    o.userAgent,
		logger:       o.logger,
		tokens:       tokens,
		retryEnabled: o.retryEnabled,
		retryConfig:  o.retryConfig,
		otel:         inst,
	}

	c.Resolver = newAccountResolver(c)
	c.Accounts = &AccountService{client: c}
	c.Orders = &OrderService{client: c}
	c.MarketData = &MarketDataService{client: c}
	c.Transactions = &TransactionService{client: c}
	c.UserPreference = &UserPreferenceService{client: c}

	return c, nil
}

// NewRequest creates an API request with auth and standard headers.
// urlStr is resolved relative to the client's base URL; body, when
// non-nil, is JSON-encoded.
func (c *Client) NewRequest(ctx context.Context, method, urlStr string, body any) (*http.Request, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	rel, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL %q: %v", ErrInvalidRequest, urlStr, err)
	}
	u := c.baseURL.ResolveReference(rel)

	var buf io.ReadWriter
	if body != nil {
		buf = new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, fmt.Errorf("schwab: encode request body: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), buf)
	if err != nil {
		return nil, fmt.Errorf("schwab: create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())

	return req, nil
}

// Do sends an API request, decoding a 2xx JSON body into v when v is
// non-nil. Non-2xx responses become an *APIError wrapped in the
// sentinel for their status class. When retries are enabled the
// request is re-issued per the configured policy.
func (c *Client) Do(req *http.Request, v any) (*http.Response, error) {
	if !c.retryEnabled {
		return c.do(req, v)
	}

	return retry.DoWithResult(req.Context(), c.retryConfig, func(ctx context.Context) (*http.Response, error) {
		attempt := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, retry.MarkNotRetryable(fmt.Errorf("schwab: rewind request body: %w", err))
			}
			attempt.Body = body
		}
		return c.do(attempt, v)
	})
}

// do executes a single request attempt.
func (c *Client) do(req *http.Request, v any) (*http.Response, error) {
	ctx, span := c.otel.startSpan(req.Context(), req.Method, req.URL.Path)
	start := time.Now()

	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		c.otel.recordRequest(ctx, req.Method, 0, time.Since(start), err)
		c.otel.endSpan(span, 0, err)
		return nil, fmt.Errorf("schwab: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.otel.recordRequest(ctx, req.Method, resp.StatusCode, time.Since(start), err)
		c.otel.endSpan(span, resp.StatusCode, err)
		return resp, fmt.Errorf("schwab: read response body: %w", err)
	}

	c.logger.Debug("api request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := c.errorFromResponse(req, resp, body)
		c.otel.recordRequest(ctx, req.Method, resp.StatusCode, time.Since(start), err)
		c.otel.endSpan(span, resp.StatusCode, err)
		return resp, err
	}

	c.otel.recordRequest(ctx, req.Method, resp.StatusCode, time.Since(start), nil)
	c.otel.endSpan(span, resp.StatusCode, nil)

	if v != nil && len(body) > 0 {
		if err := json.Unmarshal(body, v); err != nil {
			return resp, fmt.Errorf("schwab: decode response: %w", err)
		}
	}

	return resp, nil
}

// errorFromResponse maps a non-2xx response to an *APIError wrapped in
// the sentinel for its status class.
func (c *Client) errorFromResponse(req *http.Request, resp *http.Response, body []byte) error {
	apiErr := &APIError{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
	// The error body is decoded best-effort; plenty of responses carry
	// plain text.
	_ = json.Unmarshal(body, apiErr)

	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil {
			apiErr.RetryAfter = secs
		}
	}

	// Double-wrap so both the status-class sentinel (errors.Is) and the
	// *APIError detail (errors.As, retry predicate) stay reachable.
	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %w", ErrInvalidRequest, apiErr)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrAuthentication, apiErr)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrPermissionDenied, apiErr)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, apiErr)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %w", ErrServerError, apiErr)
	default:
		return apiErr
	}
}

// get issues a GET request and decodes the response into v.
func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	_, err = c.Do(req, v)
	return err
}

// post issues a POST request with a JSON body, decoding into v when
// non-nil.
func (c *Client) post(ctx context.Context, path string, body, v any) error {
	req, err := c.NewRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	_, err = c.Do(req, v)
	return err
}

// put issues a PUT request with a JSON body, decoding into v when
// non-nil.
func (c *Client) put(ctx context.Context, path string, body, v any) error {
	req, err := c.NewRequest(ctx, http.MethodPut, path, body)
	if err != nil {
		return err
	}
	_, err = c.Do(req, v)
	return err
}

// delete issues a DELETE request.
func (c *Client) delete(ctx context.Context, path string) error {
	req, err := c.NewRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	_, err = c.Do(req, nil)
	return err
}

// accountNumbers fetches the account-number listing for the resolver.
func (c *Client) accountNumbers(ctx context.Context) (accountNumberListing, error) {
	var listing accountNumberListing
	if err := c.get(ctx, "accounts/accountNumbers", &listing); err != nil {
		return accountNumberListing{}, err
	}
	c.otel.recordResolverLoad(ctx)
	return listing, nil
}

// accountPath builds an account-scoped path, resolving the account
// identifier and percent-encoding every segment.
func (c *Client) accountPath(ctx context.Context, accountNumber string, elem ...string) (string, error) {
	hash, err := c.Resolver.Resolve(ctx, accountNumber)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(elem)+2)
	parts = append(parts, "accounts", url.PathEscape(hash))
	for _, e := range elem {
		parts = append(parts, url.PathEscape(e))
	}
	return strings.Join(parts, "/"), nil
}
