package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production processor endpoint. Tests and the demo
// point the client at a local stub instead.
const DefaultBaseURL = "https://api.stripe.com"

// DefaultTimeout bounds every processor call.
const DefaultTimeout = 10 * time.Second

// APIError is a structured error returned by the processor. Message is safe
// to show to the cardholder.
type APIError struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment processor error (%s/%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("payment processor error (%s): %s", e.Type, e.Message)
}

// IsAPIError extracts a processor error from err, if present.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Customer is a processor customer record.
type Customer struct {
	ID             string `json:"id"`
	Email          string `json:"email,omitempty"`
	DefaultPayment string `json:"default_payment_method,omitempty"`
}

// SetupIntent authorizes the browser to collect a payment method. The client
// secret is handed to the processor's JS library on the payment page.
type SetupIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// PaymentMethod is a stored card or equivalent.
type PaymentMethod struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Customer string `json:"customer,omitempty"`
}

// Processor defines the payment operations the app needs. *Client implements
// it against the real API; tests substitute func-field mocks.
type Processor interface {
	FetchCustomer(ctx context.Context, customerID string) (*Customer, error)
	CreateSetupIntent(ctx context.Context, customerID string) (*SetupIntent, error)
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*PaymentMethod, error)
}

// Client talks to the processor's REST API with a secret key. Requests are
// form-encoded, single-attempt, and bounded by a timeout.
type Client struct {
	baseURL   string
	secretKey string
	timeout   time.Duration
	httpc     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at an alternate endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

// NewClient creates a processor client authenticated with secretKey.
func NewClient(secretKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		secretKey: secretKey,
		timeout:   DefaultTimeout,
		httpc:     &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, form url.Values, dest interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("payment processor unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var wrapper struct {
			Error *APIError `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&wrapper) == nil && wrapper.Error != nil {
			return wrapper.Error
		}
		return &APIError{
			Type:    "api_error",
			Message: fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, path),
		}
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// FetchCustomer retrieves a customer by processor ID.
func (c *Client) FetchCustomer(ctx context.Context, customerID string) (*Customer, error) {
	var cus struct {
		ID              string `json:"id"`
		Email           string `json:"email"`
		InvoiceSettings struct {
			DefaultPaymentMethod string `json:"default_payment_method"`
		} `json:"invoice_settings"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/customers/"+url.PathEscape(customerID), nil, &cus); err != nil {
		return nil, err
	}
	return &Customer{
		ID:             cus.ID,
		Email:          cus.Email,
		DefaultPayment: cus.InvoiceSettings.DefaultPaymentMethod,
	}, nil
}

// CreateSetupIntent mints a SetupIntent for the customer; its client secret
// is embedded in the payment page.
func (c *Client) CreateSetupIntent(ctx context.Context, customerID string) (*SetupIntent, error) {
	form := url.Values{
		"customer":               {customerID},
		"payment_method_types[]": {"card"},
	}
	var intent SetupIntent
	if err := c.do(ctx, http.MethodPost, "/v1/setup_intents", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// AttachPaymentMethod attaches a collected payment method to the customer and
// makes it the default for invoices.
func (c *Client) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*PaymentMethod, error) {
	form := url.Values{"customer": {customerID}}
	var pm PaymentMethod
	path := "/v1/payment_methods/" + url.PathEscape(paymentMethodID) + "/attach"
	if err := c.do(ctx, http.MethodPost, path, form, &pm); err != nil {
		return nil, err
	}

	update := url.Values{"invoice_settings[default_payment_method]": {paymentMethodID}}
	if err := c.do(ctx, http.MethodPost, "/v1/customers/"+url.PathEscape(customerID), update, nil); err != nil {
		return nil, err
	}
	return &pm, nil
}
