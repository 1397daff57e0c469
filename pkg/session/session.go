// Package session derives per-request identity from a signed cookie.
//
// There is no session table: identity is reconstructed from the cookie on
// every request, which keeps handlers free of shared mutable state. The
// cookie is HMAC-signed by gorilla/sessions so the user ID cannot be forged
// by editing the cookie value.
package session

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/kelvinhq/kelvin/pkg/users"
)

const (
	// IdentityCookie carries the signed user ID.
	IdentityCookie = "user"
	// PlanCookie caches the last-known plan ID. Non-authoritative; only the
	// pricing page reads it, to highlight the current plan.
	PlanCookie = "plan"

	identityKey = "id"

	// DefaultMaxAge is how long a login survives.
	DefaultMaxAge = 14 * 24 * time.Hour
)

// Manager issues and clears identity cookies and resolves the current user
// from an inbound request.
type Manager struct {
	store  *sessions.CookieStore
	maxAge time.Duration
	secure bool
}

// NewManager creates a session manager. secret signs cookies; maxAge of zero
// uses DefaultMaxAge.
func NewManager(secret []byte, maxAge time.Duration, secure bool) *Manager {
	if maxAge == 0 {
		maxAge = DefaultMaxAge
	}
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store, maxAge: maxAge, secure: secure}
}

// SetIdentity writes the signed identity cookie for user.
func (m *Manager) SetIdentity(w http.ResponseWriter, r *http.Request, user *users.User) error {
	sess, _ := m.store.Get(r, IdentityCookie)
	sess.Values[identityKey] = user.ID
	sess.Options = m.options(int(m.maxAge / time.Second))
	return sess.Save(r, w)
}

// Clear expires the identity and plan cookies, logging the user out.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, IdentityCookie)
	delete(sess.Values, identityKey)
	sess.Options = m.options(-1)
	if err := sess.Save(r, w); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     PlanCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return nil
}

// CurrentUser resolves the request's user ID from the identity cookie.
// Returns false when the cookie is absent or its signature does not verify.
func (m *Manager) CurrentUser(r *http.Request) (string, bool) {
	sess, err := m.store.Get(r, IdentityCookie)
	if err != nil {
		return "", false
	}
	id, ok := sess.Values[identityKey].(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// IsAuthenticated reports whether the request carries a valid identity.
func (m *Manager) IsAuthenticated(r *http.Request) bool {
	_, ok := m.CurrentUser(r)
	return ok
}

// SetPlanHint caches planID in the non-authoritative plan cookie.
func (m *Manager) SetPlanHint(w http.ResponseWriter, planID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     PlanCookie,
		Value:    planID,
		Path:     "/",
		MaxAge:   int(m.maxAge / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// PlanHint returns the cached plan ID, or empty when unset.
func (m *Manager) PlanHint(r *http.Request) string {
	c, err := r.Cookie(PlanCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (m *Manager) options(maxAge int) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
