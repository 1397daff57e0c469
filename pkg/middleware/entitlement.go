package middleware

import (
	"errors"
	"net/http"

	"github.com/kelvinhq/kelvin/pkg/billing"
	"github.com/kelvinhq/kelvin/pkg/httputil"
)

// UpgradeHint is returned with every 402 so the client knows where to go.
const UpgradeHint = "upgrade your plan at /pricing"

// RequireEntitlement gates a metered endpoint on the billing backend's
// answer for feature.
//
// REQUIRES: RequireLogin or RequireAuth must run before this gate.
//
// Outcomes are kept distinct: a plan that does not allow the feature is 402
// Payment Required; a billing backend that cannot be reached is 503 Service
// Unavailable. The two are never conflated, so a backend outage does not
// read as "buy a bigger plan".
func (g *Gates) RequireEntitlement(client billing.Client, feature billing.Feature, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		org := OrgFromRequest(r)
		if org == "" {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}

		ok, err := client.CheckEntitlement(r.Context(), org, feature)
		if err != nil {
			if errors.Is(err, billing.ErrNoSubscription) {
				g.deny(w, r, org, feature)
				return
			}
			g.logger.WithError(err).WithField("org", org).Error("entitlement check failed")
			httputil.WriteServiceUnavailable(w, "billing temporarily unavailable, try again shortly")
			return
		}
		if !ok {
			g.deny(w, r, org, feature)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (g *Gates) deny(w http.ResponseWriter, r *http.Request, org string, feature billing.Feature) {
	if g.metrics != nil {
		g.metrics.EntitlementDenied(string(feature))
	}
	g.logger.WithFields(map[string]interface{}{
		"org":     org,
		"feature": string(feature),
	}).Info("entitlement denied")
	httputil.WritePaymentRequired(w, "not allowed by plan", UpgradeHint)
}
