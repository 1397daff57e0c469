// Package middleware provides the per-route gates of the entitlement
// pipeline: authentication, entitlement checks, and usage accounting hooks.
//
// # Middleware Ordering Requirements
//
// The gates have strict ordering dependencies. Incorrect order will cause
// entitlement checks to be silently skipped (no user in context) or to bill
// requests that were never authenticated.
//
// REQUIRED ORDERING (outer to inner):
//  1. RequireLogin / RequireAuth - resolves identity from the signed cookie
//     and puts the user ID in the request context
//  2. RequireEntitlement - checks the plan allows the feature
//  3. Input validation - inside the handler, before any usage is reported
//  4. Usage reporting + the action itself - inside the handler
//
// Example (correct):
//
//	r.Handle("/convert",
//	    gates.RequireAuth(
//	        gates.RequireEntitlement(client, billing.FeatureConvert, handler)))
//
// Example (WRONG - will not work):
//
//	r.Handle("/convert",
//	    gates.RequireEntitlement(client, billing.FeatureConvert,
//	        gates.RequireAuth(handler)))  // FAILS: no user in context yet
//
// If RequireEntitlement runs before an identity gate, UserFromContext returns
// empty and the request is rejected with 401 rather than consulting billing.
package middleware

import (
	"context"
	"net/http"

	"github.com/kelvinhq/kelvin/pkg/httputil"
	"github.com/kelvinhq/kelvin/pkg/observability"
	"github.com/kelvinhq/kelvin/pkg/session"
	"github.com/kelvinhq/kelvin/pkg/users"
)

// Gates bundles the pipeline middleware around shared dependencies.
type Gates struct {
	sessions *session.Manager
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewGates creates the middleware set. metrics may be nil in tests.
func NewGates(sessions *session.Manager, logger *observability.Logger, metrics *observability.Metrics) *Gates {
	return &Gates{sessions: sessions, logger: logger, metrics: metrics}
}

// UserFromContext returns the authenticated user ID placed there by
// RequireLogin or RequireAuth, or empty when no gate has run.
func UserFromContext(ctx context.Context) string {
	return observability.GetUserID(ctx)
}

// RequireLogin guards browser pages: unauthenticated requests are redirected
// to the login form. The user ID is added to the request context.
func (g *Gates) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := g.sessions.CurrentUser(r)
		if !ok {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(observability.WithUserID(r.Context(), userID)))
	})
}

// RequireAuth guards API endpoints: unauthenticated requests get a 401 JSON
// response. The user ID is added to the request context.
func (g *Gates) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := g.sessions.CurrentUser(r)
		if !ok {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(observability.WithUserID(r.Context(), userID)))
	})
}

// OrgFromRequest derives the billing org for the request's authenticated
// user. Empty when no identity gate has run.
func OrgFromRequest(r *http.Request) string {
	userID := UserFromContext(r.Context())
	if userID == "" {
		return ""
	}
	return users.OrgID(userID)
}
