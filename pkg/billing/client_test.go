package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSimServer serves the sidecar REST contract from a MemoryBackend.
func newSimServer(t *testing.T, backend *MemoryBackend) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/pricing", func(w http.ResponseWriter, r *http.Request) {
		backend.mu.RLock()
		defer backend.mu.RUnlock()
		json.NewEncoder(w).Encode(backend.model)
	})
	mux.HandleFunc("/v1/subscribe", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Org  string `json:"org"`
			Plan string `json:"plan"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if err := backend.Subscribe(r.Context(), body.Org, body.Plan); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v1/phase", func(w http.ResponseWriter, r *http.Request) {
		plan, err := backend.CurrentPlan(r.Context(), r.URL.Query().Get("org"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"plan": plan})
	})
	mux.HandleFunc("/v1/limits", func(w http.ResponseWriter, r *http.Request) {
		org := r.URL.Query().Get("org")
		usage, err := backend.AllUsage(r.Context(), org)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"org": org, "usage": usage})
	})
	mux.HandleFunc("/v1/report", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Org     string  `json:"org"`
			Feature Feature `json:"feature"`
			N       int64   `json:"n"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if err := backend.ReportUsage(r.Context(), body.Org, body.Feature, body.N); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/v1/whois", func(w http.ResponseWriter, r *http.Request) {
		org := r.URL.Query().Get("org")
		id, err := backend.WhoIs(r.Context(), org)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"org": org, "stripe_id": id})
	})
	mux.HandleFunc("/v1/whoami", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "acct_sim"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClientRoundTrip(t *testing.T) {
	backend := NewMemoryBackend(DemoModel())
	srv := newSimServer(t, backend)
	client := NewHTTPClient(srv.URL, "test-key")
	ctx := context.Background()

	plans, err := client.ListPlans(ctx)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "free@1", plans[0].ID)

	_, err = client.CurrentPlan(ctx, "org:user")
	assert.ErrorIs(t, err, ErrNoSubscription)

	require.NoError(t, client.Subscribe(ctx, "org:user", "free@1"))

	plan, err := client.CurrentPlan(ctx, "org:user")
	require.NoError(t, err)
	assert.Equal(t, "free@1", plan)

	usage, err := client.Usage(ctx, "org:user", FeatureConvert)
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage.Used)
	assert.Equal(t, int64(10), usage.Limit)

	require.NoError(t, client.ReportUsage(ctx, "org:user", FeatureConvert, 3))

	usage, err = client.Usage(ctx, "org:user", FeatureConvert)
	require.NoError(t, err)
	assert.Equal(t, int64(3), usage.Used)

	ok, err := client.CheckEntitlement(ctx, "org:user", FeatureConvert)
	require.NoError(t, err)
	assert.True(t, ok)

	cus, err := client.WhoIs(ctx, "org:user")
	require.NoError(t, err)
	assert.NotEmpty(t, cus)

	assert.NoError(t, client.Ping(ctx))
}

func TestHTTPClientEntitlementDenied(t *testing.T) {
	backend := NewMemoryBackend(DemoModel())
	srv := newSimServer(t, backend)
	client := NewHTTPClient(srv.URL, "")
	ctx := context.Background()

	require.NoError(t, client.Subscribe(ctx, "org:user", "free@1"))
	require.NoError(t, client.ReportUsage(ctx, "org:user", FeatureConvert, 10))

	ok, err := client.CheckEntitlement(ctx, "org:user", FeatureConvert)
	require.NoError(t, err)
	assert.False(t, ok)
}

// A feature the plan does not define is denied the same way over the wire as
// it is in-process.
func TestHTTPClientFeatureAbsentFromPlan(t *testing.T) {
	model := Model{Plans: map[string]Plan{
		"other@1": {
			Title: "Other",
			Features: map[Feature]FeatureDef{
				Feature("feature:other"): {Limit: 10},
			},
		},
	}}
	backend := NewMemoryBackend(model)
	srv := newSimServer(t, backend)
	client := NewHTTPClient(srv.URL, "")
	ctx := context.Background()

	require.NoError(t, client.Subscribe(ctx, "org:user", "other@1"))

	direct, err := backend.Usage(ctx, "org:user", FeatureConvert)
	require.NoError(t, err)
	wired, err := client.Usage(ctx, "org:user", FeatureConvert)
	require.NoError(t, err)

	assert.False(t, direct.Entitled())
	assert.False(t, wired.Entitled())
	assert.Equal(t, direct.Entitled(), wired.Entitled())
}

func TestHTTPClientBackendDown(t *testing.T) {
	srv := httptest.NewServer(nil)
	srv.Close() // connection refused from here on
	client := NewHTTPClient(srv.URL, "")

	_, err := client.ListPlans(context.Background())
	assert.ErrorIs(t, err, ErrBillingUnavailable)

	_, err = client.CheckEntitlement(context.Background(), "org:user", FeatureConvert)
	assert.ErrorIs(t, err, ErrBillingUnavailable)
}

func TestHTTPClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	client := NewHTTPClient(srv.URL, "")

	_, err := client.ListPlans(context.Background())
	assert.ErrorIs(t, err, ErrBillingUnavailable)
}

func TestHTTPClientTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(func() {
		close(block)
		srv.Close()
	})
	client := NewHTTPClient(srv.URL, "", WithTimeout(50*time.Millisecond))

	start := time.Now()
	err := client.Ping(context.Background())
	assert.ErrorIs(t, err, ErrBillingUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHTTPClientSendsBearerToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	client := NewHTTPClient(srv.URL, "secret-key")
	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "Bearer secret-key", auth)
}
