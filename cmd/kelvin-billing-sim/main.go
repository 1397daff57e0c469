// kelvin-billing-sim is a stand-in billing backend for local development and
// demos. It serves the same REST contract the app's billing client speaks,
// backed by an in-memory store, optionally seeded from a YAML pricing model.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/kelvinhq/kelvin/pkg/billing"
)

func main() {
	port := flag.String("port", "8081", "Port to listen on")
	modelPath := flag.String("model", "", "YAML pricing model file (empty uses the built-in demo model)")
	apiKey := flag.String("api-key", "", "Require this bearer token on every request (empty disables auth)")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	model := billing.DemoModel()
	if *modelPath != "" {
		raw, err := os.ReadFile(*modelPath)
		if err != nil {
			log.WithError(err).Fatal("failed to read pricing model")
		}
		model = billing.Model{}
		if err := yaml.Unmarshal(raw, &model); err != nil {
			log.WithError(err).Fatal("failed to parse pricing model")
		}
		if len(model.Plans) == 0 {
			log.Fatal("pricing model defines no plans")
		}
	}
	log.WithField("plans", len(model.Plans)).Info("pricing model loaded")

	sim := &simulator{
		backend: billing.NewMemoryBackend(model),
		apiKey:  *apiKey,
		log:     log,
	}

	addr := ":" + *port
	log.WithField("addr", addr).Info("billing simulator listening")
	if err := http.ListenAndServe(addr, sim.routes()); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

type simulator struct {
	backend *billing.MemoryBackend
	apiKey  string
	log     *logrus.Logger
}

func (s *simulator) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/pricing", s.auth(s.pricing))
	mux.HandleFunc("/v1/subscribe", s.auth(s.subscribe))
	mux.HandleFunc("/v1/phase", s.auth(s.phase))
	mux.HandleFunc("/v1/limits", s.auth(s.limits))
	mux.HandleFunc("/v1/report", s.auth(s.report))
	mux.HandleFunc("/v1/whois", s.auth(s.whois))
	mux.HandleFunc("/v1/whoami", s.auth(s.whoami))
	return mux
}

func (s *simulator) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != s.apiKey {
				s.writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
		}
		s.log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"org":    r.URL.Query().Get("org"),
		}).Debug("request")
		next(w, r)
	}
}

func (s *simulator) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *simulator) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// pricing handles GET /v1/pricing: the raw model, every version included.
// Deduplication is the client's job.
func (s *simulator) pricing(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backend.Model())
}

func (s *simulator) subscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var body struct {
		Org  string `json:"org"`
		Plan string `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if body.Org == "" || body.Plan == "" {
		s.writeError(w, http.StatusBadRequest, "org and plan are required")
		return
	}
	if err := s.backend.Subscribe(r.Context(), body.Org, body.Plan); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.WithFields(logrus.Fields{"org": body.Org, "plan": body.Plan}).Info("subscribed")
	s.writeJSON(w, http.StatusOK, map[string]string{"org": body.Org, "plan": body.Plan})
}

func (s *simulator) phase(w http.ResponseWriter, r *http.Request) {
	org := r.URL.Query().Get("org")
	plan, err := s.backend.CurrentPlan(r.Context(), org)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "no subscription")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"org": org, "plan": plan})
}

func (s *simulator) limits(w http.ResponseWriter, r *http.Request) {
	org := r.URL.Query().Get("org")
	usage, err := s.backend.AllUsage(r.Context(), org)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "no subscription")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"org": org, "usage": usage})
}

func (s *simulator) report(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var body struct {
		Org     string          `json:"org"`
		Feature billing.Feature `json:"feature"`
		N       int64           `json:"n"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := s.backend.ReportUsage(r.Context(), body.Org, body.Feature, body.N); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.log.WithFields(logrus.Fields{
		"org":     body.Org,
		"feature": string(body.Feature),
		"n":       body.N,
	}).Info("usage reported")
	w.WriteHeader(http.StatusOK)
}

func (s *simulator) whois(w http.ResponseWriter, r *http.Request) {
	org := r.URL.Query().Get("org")
	id, err := s.backend.WhoIs(r.Context(), org)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "unknown org")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"org": org, "stripe_id": id})
}

func (s *simulator) whoami(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"id": "acct_sim"})
}
