package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(context.Context) error { return p.err }

func TestLiveness(t *testing.T) {
	h := NewHealthChecker(nil, nil, nil)

	w := httptest.NewRecorder()
	h.Liveness(w, httptest.NewRequest("GET", "/healthz", nil))

	assert.Equal(t, 200, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, StatusHealthy, body["status"])
}

func TestReadiness_NoDependencies(t *testing.T) {
	h := NewHealthChecker(nil, nil, nil)

	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest("GET", "/readyz", nil))

	assert.Equal(t, 200, w.Code)
}

func TestReadiness_BillingDown(t *testing.T) {
	h := NewHealthChecker(nil, nil, &fakePinger{err: errors.New("connection refused")})

	w := httptest.NewRecorder()
	h.Readiness(w, httptest.NewRequest("GET", "/readyz", nil))

	// Billing outage degrades readiness but keeps the pod in rotation.
	assert.Equal(t, 200, w.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, StatusDegraded, status.Status)
	assert.Equal(t, StatusUnhealthy, status.Dependencies["billing"].Status)
	assert.Contains(t, status.Dependencies["billing"].Message, "connection refused")
}

func TestCheck_BillingHealthy(t *testing.T) {
	h := NewHealthChecker(nil, nil, &fakePinger{})

	status := h.Check(context.Background())
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, StatusHealthy, status.Dependencies["billing"].Status)
}
