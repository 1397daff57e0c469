package api

import (
	"errors"
	"net/http"

	"github.com/kelvinhq/kelvin/pkg/observability"
	"github.com/kelvinhq/kelvin/pkg/users"
)

// DefaultPlan is the plan new signups are placed on.
const DefaultPlan = "free@1"

// loginPageData feeds the login and signup templates.
type loginPageData struct {
	Error  string
	Errors map[string]string
}

// home routes the browser to the app or the login form.
func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	if s.sessions.IsAuthenticated(r) {
		http.Redirect(w, r, "/app", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// loginPage handles GET /login.
func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", loginPageData{})
}

// login handles POST /login.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("username")
	pass := r.FormValue("password")

	if !s.auth.ValidateCredentials(id, pass) {
		if s.metrics != nil {
			s.metrics.LoginsTotal.WithLabelValues("failure").Inc()
		}
		s.render(w, r, "login.html", loginPageData{Error: "incorrect"})
		return
	}

	user, err := s.users.Get(r.Context(), id)
	if errors.Is(err, users.ErrNotFound) {
		// Valid credentials without a record happens when the store was
		// reset; recreate the account on the fly.
		user = &users.User{ID: id}
		err = s.users.Create(r.Context(), user)
	}
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("user lookup failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := s.sessions.SetIdentity(w, r, user); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to set identity cookie")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	// Best-effort refresh of the plan hint; the backend stays authoritative.
	if plan, err := s.billing.CurrentPlan(r.Context(), users.OrgID(user.ID)); err == nil {
		s.sessions.SetPlanHint(w, plan)
	}
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues("success").Inc()
	}
	http.Redirect(w, r, "/app", http.StatusFound)
}

// signupPage handles GET /signup.
func (s *Server) signupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "signup.html", loginPageData{})
}

// signup handles POST /signup. New accounts land on the default plan so the
// converter works immediately; a billing outage degrades to "no plan yet"
// rather than failing the signup.
func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("username")
	pass := r.FormValue("password")

	if v := s.auth.ValidateNewUser(id, pass); !v.OK {
		s.render(w, r, "signup.html", loginPageData{Errors: v.Errors})
		return
	}

	user := &users.User{ID: id, Pass: pass}
	err := s.users.Create(r.Context(), user)
	if errors.Is(err, users.ErrAlreadyExists) {
		s.render(w, r, "signup.html", loginPageData{
			Errors: map[string]string{"username": "That username is taken."},
		})
		return
	}
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("user create failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	org := users.OrgID(user.ID)
	if err := s.billing.Subscribe(r.Context(), org, DefaultPlan); err != nil {
		observability.FromContext(r.Context()).WithError(err).
			WithField("org", org).Warn("default plan subscription failed, user has no plan")
	} else {
		s.sessions.SetPlanHint(w, DefaultPlan)
	}

	if err := s.sessions.SetIdentity(w, r, user); err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to set identity cookie")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if s.metrics != nil {
		s.metrics.SignupsTotal.Inc()
	}
	http.Redirect(w, r, "/app", http.StatusFound)
}

// logout handles GET /logout.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Clear(w, r); err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("failed to clear session")
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// render executes a page template, logging render failures.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	if err := s.renderer.Render(w, name, data); err != nil {
		observability.FromContext(r.Context()).WithError(err).
			WithField("template", name).Error("template render failed")
	}
}
