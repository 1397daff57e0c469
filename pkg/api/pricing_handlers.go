package api

import (
	"errors"
	"net/http"

	"github.com/kelvinhq/kelvin/pkg/billing"
	"github.com/kelvinhq/kelvin/pkg/middleware"
	"github.com/kelvinhq/kelvin/pkg/observability"
	"github.com/kelvinhq/kelvin/pkg/users"
)

// pricingPageData feeds the pricing template.
type pricingPageData struct {
	Plans       []pricingPlan
	CurrentPlan string
	Error       string
}

type pricingPlan struct {
	ID      string
	Title   string
	Price   int64 // cents per month, 0 for free
	Limit   int64
	Current bool
	Metered bool
}

// pricingPage handles GET /pricing. The catalog comes through the cache; the
// current plan is asked of the backend and falls back to the plan hint cookie
// when billing is down.
func (s *Server) pricingPage(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())

	plans, err := s.billing.ListPlans(r.Context())
	if err != nil {
		logger.WithError(err).Error("failed to load plan catalog")
		s.render(w, r, "pricing.html", pricingPageData{
			Error: "Pricing is temporarily unavailable. Try again shortly.",
		})
		return
	}

	current := s.currentPlan(r)

	data := pricingPageData{CurrentPlan: current}
	for _, p := range plans {
		def, metered := p.Features[billing.FeatureConvert]
		data.Plans = append(data.Plans, pricingPlan{
			ID:      p.ID,
			Title:   p.Title,
			Price:   p.Base,
			Limit:   def.Limit,
			Current: p.ID == current,
			Metered: metered,
		})
	}
	s.render(w, r, "pricing.html", data)
}

// choosePlan handles POST /plan. Paid plans route through the payment page
// after the subscription is recorded.
func (s *Server) choosePlan(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())
	planID := r.FormValue("plan")
	if planID == "" {
		http.Error(w, "plan is required", http.StatusBadRequest)
		return
	}

	org := middleware.OrgFromRequest(r)
	if err := s.billing.Subscribe(r.Context(), org, planID); err != nil {
		logger.WithError(err).WithField("plan", planID).Error("subscribe failed")
		s.render(w, r, "pricing.html", pricingPageData{
			Error: "Could not change your plan. Try again shortly.",
		})
		return
	}
	s.sessions.SetPlanHint(w, planID)
	logger.WithFields(map[string]interface{}{"org": org, "plan": planID}).Info("plan changed")

	if s.planIsPaid(r, planID) {
		http.Redirect(w, r, "/payment", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/app", http.StatusFound)
}

// currentPlan resolves the org's plan for the session, preferring the
// backend's answer over the cookie hint. Anonymous visitors have no plan.
func (s *Server) currentPlan(r *http.Request) string {
	userID, ok := s.sessions.CurrentUser(r)
	if !ok {
		return ""
	}
	plan, err := s.billing.CurrentPlan(r.Context(), users.OrgID(userID))
	if err == nil {
		return plan
	}
	if !errors.Is(err, billing.ErrNoSubscription) {
		observability.FromContext(r.Context()).WithError(err).Warn("current plan lookup failed, using cookie hint")
		return s.sessions.PlanHint(r)
	}
	return ""
}

// planIsPaid reports whether planID carries a base price. Unknown plans are
// treated as free; the payment page can always be visited directly.
func (s *Server) planIsPaid(r *http.Request, planID string) bool {
	plans, err := s.billing.ListPlans(r.Context())
	if err != nil {
		return false
	}
	for _, p := range plans {
		if p.ID == planID {
			return p.Base > 0
		}
	}
	return false
}
