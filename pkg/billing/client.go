package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds every billing backend call so a backend outage
// cannot hang a request.
const DefaultTimeout = 5 * time.Second

// HTTPClient talks to a billing sidecar over its REST API. It replaces the
// subprocess-based transport of earlier revisions while keeping the Client
// contract stable.
type HTTPClient struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	httpc   *http.Client
}

// HTTPClientOption configures an HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) HTTPClientOption {
	return func(c *HTTPClient) { c.timeout = d }
}

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) HTTPClientOption {
	return func(c *HTTPClient) { c.httpc = hc }
}

// NewHTTPClient creates a billing client for the backend at baseURL. apiKey
// may be empty for unauthenticated sidecars.
func NewHTTPClient(baseURL, apiKey string, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: DefaultTimeout,
		httpc:   &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do executes a single request attempt. Transport failures and non-2xx
// statuses wrap ErrBillingUnavailable; there are no retries.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, dest interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrBillingUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNoSubscription
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s %s: status %d: %s",
			ErrBillingUnavailable, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("%w: %s %s: bad response: %v", ErrBillingUnavailable, method, path, err)
		}
	}
	return nil
}

// ListPlans pulls the pricing model and collapses it into the catalog.
func (c *HTTPClient) ListPlans(ctx context.Context) ([]Plan, error) {
	var model Model
	if err := c.do(ctx, http.MethodGet, "/v1/pricing", nil, nil, &model); err != nil {
		return nil, err
	}
	return LatestPlans(model), nil
}

// Subscribe puts org on planID.
func (c *HTTPClient) Subscribe(ctx context.Context, org, planID string) error {
	body := map[string]string{"org": org, "plan": planID}
	return c.do(ctx, http.MethodPost, "/v1/subscribe", nil, body, nil)
}

// CurrentPlan returns org's current plan ID.
func (c *HTTPClient) CurrentPlan(ctx context.Context, org string) (string, error) {
	var out struct {
		Plan string `json:"plan"`
	}
	q := url.Values{"org": {org}}
	if err := c.do(ctx, http.MethodGet, "/v1/phase", q, nil, &out); err != nil {
		return "", err
	}
	if out.Plan == "" {
		return "", ErrNoSubscription
	}
	return out.Plan, nil
}

// Usage returns used/limit counters for (org, feature).
func (c *HTTPClient) Usage(ctx context.Context, org string, feature Feature) (Usage, error) {
	var out struct {
		Org   string  `json:"org"`
		Usage []Usage `json:"usage"`
	}
	q := url.Values{"org": {org}}
	if err := c.do(ctx, http.MethodGet, "/v1/limits", q, nil, &out); err != nil {
		return Usage{}, err
	}
	for _, u := range out.Usage {
		if u.Feature == feature {
			return u, nil
		}
	}
	// A feature missing from the report is not part of the plan: not entitled.
	return Usage{Feature: feature, Limit: 0}, nil
}

// CheckEntitlement reports whether org may use feature right now.
func (c *HTTPClient) CheckEntitlement(ctx context.Context, org string, feature Feature) (bool, error) {
	u, err := c.Usage(ctx, org, feature)
	if err != nil {
		return false, err
	}
	return u.Entitled(), nil
}

// ReportUsage records n metered units for (org, feature).
func (c *HTTPClient) ReportUsage(ctx context.Context, org string, feature Feature, n int64) error {
	if n <= 0 {
		n = 1
	}
	body := map[string]interface{}{"org": org, "feature": feature, "n": n}
	return c.do(ctx, http.MethodPost, "/v1/report", nil, body, nil)
}

// WhoIs resolves org to its payment-processor customer ID.
func (c *HTTPClient) WhoIs(ctx context.Context, org string) (string, error) {
	var out struct {
		Org      string `json:"org"`
		StripeID string `json:"stripe_id"`
	}
	q := url.Values{"org": {org}}
	if err := c.do(ctx, http.MethodGet, "/v1/whois", q, nil, &out); err != nil {
		return "", err
	}
	return out.StripeID, nil
}

// Ping reports backend reachability.
func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v1/whoami", nil, nil, nil)
}
