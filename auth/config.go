package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultAuthURL is the authorization endpoint users are sent to.
	DefaultAuthURL = "https://api.schwabapi.com/v1/oauth/authorize"

	// DefaultTokenURL is the token endpoint codes and refresh tokens
	// are exchanged against.
	DefaultTokenURL = "https://api.schwabapi.com/v1/oauth/token"

	defaultHTTPTimeout = 30 * time.Second
)

// Config holds the OAuth application credentials issued by the Schwab
// developer portal.
type Config struct {
	// ClientID and ClientSecret identify the application. Sent as HTTP
	// basic auth on token requests.
	ClientID     string
	ClientSecret string

	// RedirectURL must match one registered for the application.
	RedirectURL string

	// AuthURL and TokenURL override the production endpoints, mainly
	// for tests. Defaults apply when empty.
	AuthURL  string
	TokenURL string

	// HTTPClient performs token requests. Defaults to a client with a
	// 30s timeout.
	HTTPClient *http.Client
}

// AuthCodeURL returns the URL to send the user to for the
// authorization-code grant. state is echoed back on the redirect.
func (c *Config) AuthCodeURL(state string) string {
	base := c.AuthURL
	if base == "" {
		base = DefaultAuthURL
	}
	v := url.Values{}
	v.Set("response_type", "code")
	v.Set("client_id", c.ClientID)
	v.Set("redirect_uri", c.RedirectURL)
	if state != "" {
		v.Set("state", state)
	}
	return base + "?" + v.Encode()
}

// Exchange trades an authorization code for a token.
func (c *Config) Exchange(ctx context.Context, code string) (*Token, error) {
	if code == "" {
		return nil, fmt.Errorf("auth: authorization code is required")
	}
	v := url.Values{}
	v.Set("grant_type", "authorization_code")
	v.Set("code", code)
	v.Set("redirect_uri", c.RedirectURL)
	return c.retrieveToken(ctx, v)
}

// Refresh trades a refresh token for a new token.
func (c *Config) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, ErrNoToken
	}
	v := url.Values{}
	v.Set("grant_type", "refresh_token")
	v.Set("refresh_token", refreshToken)
	return c.retrieveToken(ctx, v)
}

// retrieveToken posts a grant to the token endpoint and decodes the
// response.
func (c *Config) retrieveToken(ctx context.Context, form url.Values) (*Token, error) {
	endpoint := c.TokenURL
	if endpoint == "" {
		endpoint = DefaultTokenURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("auth: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Basic "+basicAuth(c.ClientID, c.ClientSecret))

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("auth: read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &TokenRequestError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var tr struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		Scope        string `json:"scope"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("auth: parse token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("auth: token response missing access token")
	}

	now := time.Now()
	tok := &Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		Scope:        tr.Scope,
		ExpiresAt:    now.Add(time.Duration(tr.ExpiresIn) * time.Second),
	}
	if tr.RefreshToken != "" {
		// Refresh tokens last seven days from issuance.
		tok.RefreshExpiresAt = now.Add(7 * 24 * time.Hour)
	}
	return tok, nil
}

// TokenRequestError is a non-200 response from the token endpoint.
type TokenRequestError struct {
	StatusCode int
	Body       string
}

func (e *TokenRequestError) Error() string {
	return fmt.Sprintf("auth: token endpoint returned %d: %s", e.StatusCode, e.Body)
}

func basicAuth(id, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(id + ":" + secret))
}
