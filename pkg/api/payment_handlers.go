package api

import (
	"errors"
	"net/http"

	"github.com/kelvinhq/kelvin/pkg/billing"
	"github.com/kelvinhq/kelvin/pkg/middleware"
	"github.com/kelvinhq/kelvin/pkg/observability"
	"github.com/kelvinhq/kelvin/pkg/payment"
)

// paymentPageData feeds the payment template.
type paymentPageData struct {
	PublishableKey string
	ClientSecret   string
	CustomerID     string
	HasDefault     bool
	Error          string
}

// paymentPage handles GET /payment: resolves the processor customer for the
// org, mints a SetupIntent, and hands its client secret to the page.
func (s *Server) paymentPage(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())
	org := middleware.OrgFromRequest(r)

	customerID, err := s.billing.WhoIs(r.Context(), org)
	if err != nil {
		if errors.Is(err, billing.ErrNoSubscription) {
			// No customer record until the first subscription exists.
			http.Redirect(w, r, "/pricing", http.StatusFound)
			return
		}
		logger.WithError(err).Error("customer lookup failed")
		s.render(w, r, "payment.html", paymentPageData{
			Error: "Payment setup is temporarily unavailable. Try again shortly.",
		})
		return
	}

	cus, err := s.payments.FetchCustomer(r.Context(), customerID)
	if err != nil {
		s.renderPaymentError(w, r, err)
		return
	}

	intent, err := s.payments.CreateSetupIntent(r.Context(), customerID)
	if err != nil {
		s.renderPaymentError(w, r, err)
		return
	}

	s.render(w, r, "payment.html", paymentPageData{
		PublishableKey: s.cfg.Payment.PublishableKey,
		ClientSecret:   intent.ClientSecret,
		CustomerID:     customerID,
		HasDefault:     cus.DefaultPayment != "",
	})
}

// attachPaymentMethod handles GET /attach-payment-method: the processor's
// browser flow redirects here with ?payment_method=, which becomes the
// customer default.
func (s *Server) attachPaymentMethod(w http.ResponseWriter, r *http.Request) {
	logger := observability.FromContext(r.Context())
	org := middleware.OrgFromRequest(r)

	pmID := r.FormValue("payment_method")
	if pmID == "" {
		http.Error(w, "payment_method is required", http.StatusBadRequest)
		return
	}

	customerID, err := s.billing.WhoIs(r.Context(), org)
	if err != nil {
		logger.WithError(err).Error("customer lookup failed")
		s.render(w, r, "payment.html", paymentPageData{
			Error: "Payment setup is temporarily unavailable. Try again shortly.",
		})
		return
	}

	if _, err := s.payments.AttachPaymentMethod(r.Context(), customerID, pmID); err != nil {
		s.countPayment("attach", "failure")
		s.renderPaymentError(w, r, err)
		return
	}
	s.countPayment("attach", "success")
	logger.WithField("org", org).Info("payment method attached")
	http.Redirect(w, r, "/app", http.StatusFound)
}

// renderPaymentError re-renders the payment page. Processor errors carry a
// cardholder-safe message and are shown verbatim.
func (s *Server) renderPaymentError(w http.ResponseWriter, r *http.Request, err error) {
	logger := observability.FromContext(r.Context())
	if apiErr, ok := payment.IsAPIError(err); ok {
		logger.WithError(err).Warn("payment processor rejected request")
		s.render(w, r, "payment.html", paymentPageData{Error: apiErr.Message})
		return
	}
	logger.WithError(err).Error("payment processor call failed")
	s.render(w, r, "payment.html", paymentPageData{
		Error: "Payment setup is temporarily unavailable. Try again shortly.",
	})
}

func (s *Server) countPayment(operation, status string) {
	if s.metrics != nil {
		s.metrics.PaymentRequestsTotal.WithLabelValues(operation, status).Inc()
	}
}
