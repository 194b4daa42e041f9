// Package portal provides the HTTP client for the complaint portal backend.
//
// This package implements:
//   - Connection pooling for HTTP performance
//   - Bearer-token authentication with proactive expiry detection
//   - Per-request correlation IDs
//   - Configurable timeouts
//
// The client returns decoded JSON payloads as-is; shaping them into domain
// entities is the normalize package's job. Only transport-level failures
// become errors here.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	apperrors "cportal/internal/errors"

	"github.com/google/uuid"
)

// Client is the portal API client.
//
// Thread-safety:
//   - The session token is protected by mutex
//   - http.Client is safe for concurrent use by multiple goroutines
type Client struct {
	baseURL    string
	httpClient *http.Client
	debugMode  bool

	mu    sync.Mutex
	token string
}

// NewClient creates a portal client for the given base URL.
//
// Connection pool configuration:
//   - MaxIdleConns: maxConns (total idle connections across all hosts)
//   - MaxIdleConnsPerHost: 10 (prevents one host monopolizing the pool)
//   - IdleConnTimeout: 90 seconds
//   - Keep-alives enabled for connection reuse
//
// Parameters:
//   - baseURL: backend root, e.g. "https://portal.example.com"
//   - timeout: maximum time for a complete request
//   - maxConns: connection pool size
//   - debugMode: if true, mutating calls are logged but not sent
func NewClient(baseURL string, timeout time.Duration, maxConns int, debugMode bool) *Client {
	return &Client{
		baseURL:   baseURL,
		debugMode: debugMode,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				// Connection pool settings
				MaxIdleConns:        maxConns,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,

				// Keep-alive settings
				DisableKeepAlives: false,

				// Additional performance tuning
				DisableCompression: false,
				ForceAttemptHTTP2:  true,
			},
		},
	}
}

// SetHTTPClient overrides the underlying HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// doRequest performs one API call and decodes the JSON response.
//
// Request handling:
//   - JSON body marshaling (nil payload sends no body)
//   - Authorization: Bearer <token> when a session exists
//   - X-Request-ID: fresh UUID per call for backend-side correlation
//
// Response handling:
//   - 401 → SessionExpiredError (caller should re-login)
//   - other non-2xx → FetchError with status context
//   - empty body → nil payload, no error
func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}) (interface{}, error) {
	return c.doRequestWithHeaders(ctx, method, path, payload, nil)
}

// doRequestWithHeaders is doRequest plus extra request headers (used by
// mutations to attach idempotency keys).
func (c *Client) doRequestWithHeaders(ctx context.Context, method, path string, payload interface{}, headers map[string]string) (interface{}, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, apperrors.NewFetchError("failed to marshal request body", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, apperrors.NewFetchError("failed to build request", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewFetchError(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewFetchError("failed to read response body", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, apperrors.NewSessionExpiredError(fmt.Sprintf("%s %s returned 401", method, path))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewFetchError(
			fmt.Sprintf("%s %s returned status %d", method, path, resp.StatusCode), nil)
	}

	if len(respBody) == 0 {
		return nil, nil
	}

	var decoded interface{}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		// A 2xx with an undecodable body is treated as empty, not fatal:
		// the normalize layer turns missing payloads into empty sequences
		return nil, nil
	}

	return decoded, nil
}

// Token returns the current session token ("" when logged out).
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// setToken replaces the session token.
func (c *Client) setToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}
