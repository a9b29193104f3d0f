// Package remote is the client boundary for the authoritative balance
// service. The engine consults it only on the display-balance path,
// never for spend decisions, and always under a short timeout.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Balance is the authoritative service's answer for one account.
type Balance struct {
	Balance  int64  `json:"balance"`
	PlanType string `json:"plan_type"`
	Email    string `json:"email,omitempty"`
}

// Client fetches the authoritative balance for an account's billing key.
type Client interface {
	Balance(ctx context.Context, billingKey string) (*Balance, error)
}

// ClientFunc is an adapter to use a plain function as a Client.
type ClientFunc func(ctx context.Context, billingKey string) (*Balance, error)

// Balance implements Client.
func (f ClientFunc) Balance(ctx context.Context, billingKey string) (*Balance, error) {
	return f(ctx, billingKey)
}

// DefaultTimeout bounds a single authoritative lookup. The reconciler
// falls back to local data when it elapses.
const DefaultTimeout = 3 * time.Second

// HTTPClient is a Client backed by the billing backend's HTTP API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a client for the billing backend at baseURL.
// A nil httpClient gets a default with DefaultTimeout.
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPClient{baseURL: baseURL, http: httpClient}
}

// Balance implements Client. It queries GET /api/user/tokens with the
// account's billing key and never caches: callers want fresh numbers.
func (c *HTTPClient) Balance(ctx context.Context, billingKey string) (*Balance, error) {
	u := fmt.Sprintf("%s/api/user/tokens?user_id=%s", c.baseURL, url.QueryEscape(billingKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote: fetch balance: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only response body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote: balance service returned HTTP %d", resp.StatusCode)
	}

	var b Balance
	if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
		return nil, fmt.Errorf("remote: decode balance: %w", err)
	}
	return &b, nil
}
