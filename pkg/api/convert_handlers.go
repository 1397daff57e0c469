package api

import (
	"fmt"
	"net/http"

	"github.com/kelvinhq/kelvin/pkg/billing"
	"github.com/kelvinhq/kelvin/pkg/convert"
	"github.com/kelvinhq/kelvin/pkg/httputil"
	"github.com/kelvinhq/kelvin/pkg/middleware"
	"github.com/kelvinhq/kelvin/pkg/observability"
)

// appPageData feeds the converter page template.
type appPageData struct {
	User      string
	Used      int64
	Limit     int64
	Unlimited bool
}

// appPage handles GET /app: the converter UI with the usage meter.
func (s *Server) appPage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserFromContext(r.Context())
	data := appPageData{User: userID}

	usage, err := s.billing.Usage(r.Context(), middleware.OrgFromRequest(r), billing.FeatureConvert)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Warn("usage lookup failed, meter hidden")
	} else {
		data.Used = usage.Used
		data.Limit = usage.Limit
		data.Unlimited = usage.Limit == billing.UnlimitedUsage
	}
	s.render(w, r, "app.html", data)
}

// convertResponse is the /convert success body: the converted value plus a
// usage snapshot taken after this request was metered.
type convertResponse struct {
	convert.Result
	Usage *billing.Usage `json:"usage,omitempty"`
}

// convert handles POST /convert with a body of {"C": n} or {"F": n}. The
// identity and entitlement gates have already run; here input is validated,
// the request is metered, and only then is the conversion performed.
func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())
	org := middleware.OrgFromRequest(r)

	var in convert.Input
	if err := httputil.ParseJSON(r, &in); err != nil || !in.Valid() {
		httputil.WriteBadRequest(w, "bad request, temp required")
		return
	}

	// Metering failure degrades: the conversion still runs, the gap is
	// logged and counted so it is never silently dropped.
	if err := s.billing.ReportUsage(r.Context(), org, billing.FeatureConvert, 1); err != nil {
		logger.WithError(err).WithField("org", org).Error("usage report failed, conversion unmetered")
		if s.metrics != nil {
			s.metrics.UsageReportFailuresTotal.WithLabelValues(string(billing.FeatureConvert)).Inc()
		}
	}

	resp := convertResponse{Result: convert.Convert(in)}
	if usage, err := s.billing.Usage(r.Context(), org, billing.FeatureConvert); err == nil {
		resp.Usage = &usage
	}

	if s.metrics != nil {
		label := "c_to_f"
		if in.F != nil {
			label = "f_to_c"
		}
		s.metrics.ConversionsTotal.WithLabelValues(label).Inc()
	}
	httputil.WriteSuccess(w, resp)
}

// ping handles /ping: an unauthenticated liveness probe.
func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "pong")
}
