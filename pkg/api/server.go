package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kelvinhq/kelvin/pkg/billing"
	"github.com/kelvinhq/kelvin/pkg/config"
	"github.com/kelvinhq/kelvin/pkg/httputil"
	"github.com/kelvinhq/kelvin/pkg/middleware"
	"github.com/kelvinhq/kelvin/pkg/observability"
	"github.com/kelvinhq/kelvin/pkg/payment"
	"github.com/kelvinhq/kelvin/pkg/session"
	"github.com/kelvinhq/kelvin/pkg/users"
)

// Server is the HTTP surface of the app.
type Server struct {
	router *mux.Router

	cfg      *config.Config
	logger   *observability.Logger
	metrics  *observability.Metrics
	sessions *session.Manager
	gates    *middleware.Gates
	users    users.Store
	auth     users.Authenticator
	billing  billing.Client
	payments payment.Processor
	renderer Renderer
}

// Deps carries everything the server needs. Metrics may be nil in tests.
type Deps struct {
	Config   *config.Config
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Sessions *session.Manager
	Users    users.Store
	Auth     users.Authenticator
	Billing  billing.Client
	Payments payment.Processor
	Renderer Renderer

	// StaticDir serves /static/ assets when non-empty.
	StaticDir string
}

// NewServer creates the API server and sets up its routes.
func NewServer(deps Deps) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		cfg:      deps.Config,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		sessions: deps.Sessions,
		gates:    middleware.NewGates(deps.Sessions, deps.Logger, deps.Metrics),
		users:    deps.Users,
		auth:     deps.Auth,
		billing:  deps.Billing,
		payments: deps.Payments,
		renderer: deps.Renderer,
	}
	s.setupRoutes()
	if deps.StaticDir != "" {
		s.router.PathPrefix("/static/").Handler(
			http.StripPrefix("/static/", http.FileServer(http.Dir(deps.StaticDir))))
	}
	return s
}

// setupRoutes configures all routes. Gate ordering follows the entitlement
// pipeline; see pkg/middleware for why the order matters.
func (s *Server) setupRoutes() {
	s.router.Use(httputil.RequestIDMiddleware)
	s.router.Use(httputil.LoggingMiddleware(s.logger, s.metrics))
	s.router.Use(httputil.RecoveryMiddleware(s.logger))

	// Public pages
	s.router.HandleFunc("/", s.home).Methods("GET")
	s.router.HandleFunc("/login", s.loginPage).Methods("GET")
	s.router.HandleFunc("/login", s.login).Methods("POST")
	s.router.HandleFunc("/signup", s.signupPage).Methods("GET")
	s.router.HandleFunc("/signup", s.signup).Methods("POST")
	s.router.HandleFunc("/logout", s.logout).Methods("GET")
	s.router.HandleFunc("/pricing", s.pricingPage).Methods("GET")
	s.router.HandleFunc("/ping", s.ping)

	// Pages behind the login gate
	s.router.Handle("/plan", s.gates.RequireLogin(http.HandlerFunc(s.choosePlan))).Methods("POST")
	s.router.Handle("/payment", s.gates.RequireLogin(http.HandlerFunc(s.paymentPage))).Methods("GET")
	s.router.Handle("/attach-payment-method", s.gates.RequireLogin(http.HandlerFunc(s.attachPaymentMethod))).Methods("GET")
	s.router.Handle("/app", s.gates.RequireLogin(http.HandlerFunc(s.appPage))).Methods("GET")

	// The one metered endpoint carries the full pipeline.
	s.router.Handle("/convert",
		s.gates.RequireAuth(
			s.gates.RequireEntitlement(s.billing, billing.FeatureConvert,
				http.HandlerFunc(s.convert)))).Methods("POST")
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
