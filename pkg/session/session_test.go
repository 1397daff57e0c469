package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kelvinhq/kelvin/pkg/users"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager([]byte("test-secret-key"), time.Hour, false)
}

// copyCookies replays Set-Cookie headers from a response onto a new request.
func copyCookies(t *testing.T, w *httptest.ResponseRecorder, r *http.Request) {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
}

func TestSetIdentityThenCurrentUser(t *testing.T) {
	m := newTestManager(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/login", nil)
	require.NoError(t, m.SetIdentity(w, r, &users.User{ID: "user"}))

	next := httptest.NewRequest("GET", "/app", nil)
	copyCookies(t, w, next)

	id, ok := m.CurrentUser(next)
	assert.True(t, ok)
	assert.Equal(t, "user", id)
	assert.True(t, m.IsAuthenticated(next))
}

func TestCurrentUser_NoCookie(t *testing.T) {
	m := newTestManager(t)
	r := httptest.NewRequest("GET", "/app", nil)

	_, ok := m.CurrentUser(r)
	assert.False(t, ok)
	assert.False(t, m.IsAuthenticated(r))
}

func TestCurrentUser_TamperedCookie(t *testing.T) {
	m := newTestManager(t)
	r := httptest.NewRequest("GET", "/app", nil)
	r.AddCookie(&http.Cookie{Name: IdentityCookie, Value: "forged-value"})

	_, ok := m.CurrentUser(r)
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	m := newTestManager(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/login", nil)
	require.NoError(t, m.SetIdentity(w, r, &users.User{ID: "user"}))

	logout := httptest.NewRequest("GET", "/logout", nil)
	copyCookies(t, w, logout)
	w2 := httptest.NewRecorder()
	require.NoError(t, m.Clear(w2, logout))

	// The cleared cookie must be expired.
	var sawIdentity, sawPlan bool
	for _, c := range w2.Result().Cookies() {
		switch c.Name {
		case IdentityCookie:
			sawIdentity = true
			assert.LessOrEqual(t, c.MaxAge, 0)
		case PlanCookie:
			sawPlan = true
			assert.LessOrEqual(t, c.MaxAge, 0)
		}
	}
	assert.True(t, sawIdentity)
	assert.True(t, sawPlan)
}

func TestPlanHint(t *testing.T) {
	m := newTestManager(t)

	w := httptest.NewRecorder()
	m.SetPlanHint(w, "free@1")

	r := httptest.NewRequest("GET", "/pricing", nil)
	copyCookies(t, w, r)
	assert.Equal(t, "free@1", m.PlanHint(r))

	bare := httptest.NewRequest("GET", "/pricing", nil)
	assert.Equal(t, "", m.PlanHint(bare))
}
