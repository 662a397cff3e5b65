package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"hangarshare/internal/db"
	"hangarshare/internal/service"
)

// SessionResolver maps a Stripe payment intent back to the checkout session
// the payment record was keyed on.
type SessionResolver interface {
	SessionIDByPaymentIntent(paymentIntentID string) (string, error)
}

type StripeWebhookHandler struct {
	secret    string
	reconcile *service.ReconcileService
	sessions  SessionResolver
	log       *logrus.Logger
}

func NewStripeWebhookHandler(secret string, reconcile *service.ReconcileService, sessions SessionResolver, log *logrus.Logger) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		secret:    secret,
		reconcile: reconcile,
		sessions:  sessions,
		log:       log,
	}
}

func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.WithError(err).Error("reading webhook body")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.secret)
	if err != nil {
		h.log.WithError(err).Warn("webhook signature verification failed")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		sess, ok := h.parseSession(w, event.Data.Raw)
		if !ok {
			return
		}
		if err := h.reconcile.Apply(r.Context(), db.ProviderStripe, sess.ID, "succeeded"); err != nil {
			h.log.WithError(err).WithField("session", sess.ID).Error("reconciling completed checkout")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	case "checkout.session.async_payment_failed", "checkout.session.expired":
		sess, ok := h.parseSession(w, event.Data.Raw)
		if !ok {
			return
		}
		if err := h.reconcile.Apply(r.Context(), db.ProviderStripe, sess.ID, "failed"); err != nil {
			h.log.WithError(err).WithField("session", sess.ID).Error("reconciling failed checkout")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
			break
		}
		sessionID, err := h.sessions.SessionIDByPaymentIntent(charge.PaymentIntent.ID)
		if err != nil {
			h.log.WithError(err).WithField("payment_intent", charge.PaymentIntent.ID).Warn("no session for refunded charge")
			break
		}
		if err := h.reconcile.ApplyRefund(r.Context(), db.ProviderStripe, sessionID); err != nil {
			h.log.WithError(err).WithField("session", sessionID).Error("reconciling refund")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	default:
		h.log.WithField("type", event.Type).Debug("unhandled stripe event")
	}

	w.WriteHeader(http.StatusOK)
}

func (h *StripeWebhookHandler) parseSession(w http.ResponseWriter, raw json.RawMessage) (*stripe.CheckoutSession, bool) {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(raw, &sess); err != nil || sess.ID == "" {
		h.log.WithError(err).Error("parsing checkout session payload")
		w.WriteHeader(http.StatusBadRequest)
		return nil, false
	}
	return &sess, true
}
