// Package apiclient is a Go client for the content service. It transparently
// attaches the access credential to every call and renews it on 401 through
// a single-flight refresh, so concurrent expired requests trigger exactly one
// refresh exchange and share its outcome.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrSessionExpired indicates the refresh credential is gone, expired or was
// rejected; the caller must re-authenticate.
var ErrSessionExpired = errors.New("session expired")

// Credentials holds the client-side token state.
type Credentials struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Client talks to the content service API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	refreshTimeout time.Duration
	inactivityTTL  time.Duration
	onExpired      func()

	mu           sync.Mutex
	creds        Credentials
	lastActivity time.Time

	refreshGroup singleflight.Group
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRefreshTimeout bounds the refresh exchange. A hung refresh would
// otherwise starve every request waiting on its outcome.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) { c.refreshTimeout = d }
}

// WithInactivityTTL expires the session after a period without any request.
func WithInactivityTTL(d time.Duration) Option {
	return func(c *Client) { c.inactivityTTL = d }
}

// WithSessionExpiredHandler registers a callback invoked when stored
// credentials are cleared, typically to redirect to sign-in.
func WithSessionExpiredHandler(fn func()) Option {
	return func(c *Client) { c.onExpired = fn }
}

// NewClient builds a client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     http.DefaultClient,
		refreshTimeout: 10 * time.Second,
		lastActivity:   time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetCredentials stores a credential set, e.g. after an external login.
func (c *Client) SetCredentials(creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = creds
}

// Credentials returns a copy of the current credential state.
func (c *Client) Credentials() Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds
}

type authPayload struct {
	Success                bool      `json:"success"`
	Token                  string    `json:"token"`
	TokenExpiration        time.Time `json:"tokenExpiration"`
	RefreshToken           string    `json:"refreshToken"`
	RefreshTokenExpiration time.Time `json:"refreshTokenExpiration"`
}

// Login authenticates and stores the returned credential pair.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := c.send(ctx, http.MethodPost, "/auth/login", body, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: status %d", resp.StatusCode)
	}

	var payload authPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}
	c.SetCredentials(Credentials{
		AccessToken:      payload.Token,
		RefreshToken:     payload.RefreshToken,
		RefreshExpiresAt: payload.RefreshTokenExpiration,
	})
	return nil
}

// Logout revokes the refresh credential and clears local state.
func (c *Client) Logout(ctx context.Context) error {
	creds := c.Credentials()
	c.clearCredentials(false)
	if creds.RefreshToken == "" {
		return nil
	}
	body, _ := json.Marshal(map[string]string{"refreshToken": creds.RefreshToken})
	resp, err := c.send(ctx, http.MethodPost, "/auth/logout", body, "")
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// DoJSON performs an authenticated request and decodes the JSON response
// into out (which may be nil). A 401 triggers one refresh-and-replay; the
// replayed request is never refreshed again, preventing a refresh loop when
// the server keeps rejecting fresh tokens.
func (c *Client) DoJSON(ctx context.Context, method, path string, reqBody, out interface{}) error {
	var body []byte
	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		body = encoded
	}

	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	if err := c.checkActivity(); err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, method, path, body, c.Credentials().AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || isAuthPath(path) {
		return resp, nil
	}
	resp.Body.Close()

	token, err := c.refresh()
	if err != nil {
		return nil, err
	}
	// one replay only
	return c.send(ctx, method, path, body, token)
}

// refresh funnels every caller through one in-flight exchange. All waiters
// observe the same new token (stored before Do returns) or the same error.
func (c *Client) refresh() (string, error) {
	token, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		creds := c.Credentials()
		if creds.RefreshToken == "" || !time.Now().Before(creds.RefreshExpiresAt) {
			c.clearCredentials(true)
			return nil, ErrSessionExpired
		}

		// Detached from any single caller's context: one canceled waiter
		// must not abort the exchange everyone else is sharing.
		ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
		defer cancel()

		body, _ := json.Marshal(map[string]string{"refreshToken": creds.RefreshToken})
		resp, err := c.send(ctx, http.MethodPost, "/auth/refresh-token", body, "")
		if err != nil {
			c.clearCredentials(true)
			return nil, ErrSessionExpired
		}
		defer resp.Body.Close()

		var payload authPayload
		if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&payload) != nil || !payload.Success {
			c.clearCredentials(true)
			return nil, ErrSessionExpired
		}

		c.SetCredentials(Credentials{
			AccessToken:      payload.Token,
			RefreshToken:     payload.RefreshToken,
			RefreshExpiresAt: payload.RefreshTokenExpiration,
		})
		return payload.Token, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.httpClient.Do(req)
}

// checkActivity enforces the inactivity TTL and touches the timestamp.
func (c *Client) checkActivity() error {
	if c.inactivityTTL <= 0 {
		c.touch()
		return nil
	}
	c.mu.Lock()
	idle := time.Since(c.lastActivity)
	hasSession := c.creds.RefreshToken != ""
	c.lastActivity = time.Now()
	c.mu.Unlock()

	if hasSession && idle > c.inactivityTTL {
		c.clearCredentials(true)
		return ErrSessionExpired
	}
	return nil
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastActivity = time.Now()
	c.mu.Unlock()
}

func (c *Client) clearCredentials(notify bool) {
	c.mu.Lock()
	c.creds = Credentials{}
	c.mu.Unlock()
	if notify && c.onExpired != nil {
		c.onExpired()
	}
}

func isAuthPath(path string) bool {
	return strings.Contains(path, "/auth/login") ||
		strings.Contains(path, "/auth/register") ||
		strings.Contains(path, "/auth/refresh-token")
}
