package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kelvinhq/kelvin/pkg/billing"
	"github.com/kelvinhq/kelvin/pkg/config"
	"github.com/kelvinhq/kelvin/pkg/observability"
	"github.com/kelvinhq/kelvin/pkg/payment"
	"github.com/kelvinhq/kelvin/pkg/session"
	"github.com/kelvinhq/kelvin/pkg/users"
)

// stubRenderer records the last template rendered instead of executing HTML.
type stubRenderer struct {
	lastName string
	lastData interface{}
}

func (r *stubRenderer) Render(w http.ResponseWriter, name string, data interface{}) error {
	r.lastName = name
	r.lastData = data
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := w.Write([]byte(name))
	return err
}

// mockProcessor is a func-field mock for the payment processor.
type mockProcessor struct {
	fetchCustomerFunc       func(ctx context.Context, customerID string) (*payment.Customer, error)
	createSetupIntentFunc   func(ctx context.Context, customerID string) (*payment.SetupIntent, error)
	attachPaymentMethodFunc func(ctx context.Context, customerID, paymentMethodID string) (*payment.PaymentMethod, error)
}

func (m *mockProcessor) FetchCustomer(ctx context.Context, customerID string) (*payment.Customer, error) {
	return m.fetchCustomerFunc(ctx, customerID)
}

func (m *mockProcessor) CreateSetupIntent(ctx context.Context, customerID string) (*payment.SetupIntent, error) {
	return m.createSetupIntentFunc(ctx, customerID)
}

func (m *mockProcessor) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) (*payment.PaymentMethod, error) {
	return m.attachPaymentMethodFunc(ctx, customerID, paymentMethodID)
}

// testServer bundles the server with the fakes behind it.
type testServer struct {
	*Server
	renderer  *stubRenderer
	backend   *billing.MemoryBackend
	store     *users.MemoryStore
	sessions  *session.Manager
	processor *mockProcessor
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		Payment: config.PaymentConfig{PublishableKey: "pk_test_demo"},
	}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	sessions := session.NewManager([]byte("test-secret-key"), time.Hour, false)
	store := users.NewMemoryStore()
	backend := billing.NewMemoryBackend(billing.DemoModel())
	renderer := &stubRenderer{}
	processor := &mockProcessor{
		fetchCustomerFunc: func(ctx context.Context, customerID string) (*payment.Customer, error) {
			return &payment.Customer{ID: customerID}, nil
		},
		createSetupIntentFunc: func(ctx context.Context, customerID string) (*payment.SetupIntent, error) {
			return &payment.SetupIntent{ID: "seti_test", ClientSecret: "seti_test_secret"}, nil
		},
		attachPaymentMethodFunc: func(ctx context.Context, customerID, paymentMethodID string) (*payment.PaymentMethod, error) {
			return &payment.PaymentMethod{ID: paymentMethodID, Customer: customerID}, nil
		},
	}

	srv := NewServer(Deps{
		Config:   cfg,
		Logger:   logger,
		Sessions: sessions,
		Users:    store,
		Auth:     users.NewFixedCredentialAuthenticator("user", "pass"),
		Billing:  backend,
		Payments: processor,
		Renderer: renderer,
	})

	return &testServer{
		Server:    srv,
		renderer:  renderer,
		backend:   backend,
		store:     store,
		sessions:  sessions,
		processor: processor,
	}
}

// authCookies logs the demo user in and returns the resulting cookies.
func (ts *testServer) authCookies(t *testing.T) []*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/login", nil)
	require.NoError(t, ts.sessions.SetIdentity(w, r, &users.User{ID: "user"}))
	return w.Result().Cookies()
}

// get issues a GET through the full router with the given cookies.
func (ts *testServer) get(t *testing.T, target string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	return rec
}

// postJSON issues a JSON POST through the full router.
func (ts *testServer) postJSON(t *testing.T, target, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	return rec
}

// postForm issues a form POST through the full router.
func (ts *testServer) postForm(t *testing.T, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)
	return rec
}
