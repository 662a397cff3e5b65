package payments

import (
	"context"
	"fmt"

	"hangarshare/internal/db"
	"hangarshare/internal/entities"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/refund"
)

// StripeProvider backs the card payment method with Stripe Checkout.
// Confirmation arrives asynchronously through the webhook; the session id is
// the provider reference joining the two sides.
type StripeProvider struct {
	successURL string
	cancelURL  string
	currency   string
	log        *logrus.Logger
}

func NewStripeProvider(successURL, cancelURL, currency string, log *logrus.Logger) *StripeProvider {
	return &StripeProvider{successURL: successURL, cancelURL: cancelURL, currency: currency, log: log}
}

func (p *StripeProvider) Kind() string { return db.PaymentMethodCard }

func (p *StripeProvider) CreatePayment(ctx context.Context, res *db.Reservation) (*db.PaymentRecord, *entities.PaymentNextAction, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(p.currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(fmt.Sprintf("Hangar reservation %s", res.Code)),
					},
					UnitAmount: stripe.Int64(res.Total),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(p.successURL),
		CancelURL:         stripe.String(p.cancelURL),
		CustomerEmail:     stripe.String(res.UserEmail),
		ClientReferenceID: stripe.String(res.Code),
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, nil, err
	}

	record := &db.PaymentRecord{
		Provider:    db.ProviderStripe,
		ProviderRef: sess.ID,
		Amount:      res.Total,
		Currency:    p.currency,
		Status:      db.PaymentPending,
	}
	next := &entities.PaymentNextAction{
		Provider:    db.ProviderStripe,
		RedirectURL: sess.URL,
		Amount:      res.Total,
		Currency:    p.currency,
	}
	return record, next, nil
}

// RefundBySessionID refunds the payment intent behind a checkout session.
func (p *StripeProvider) RefundBySessionID(sessionID string) error {
	sess, err := session.Get(sessionID, nil)
	if err != nil {
		return err
	}
	if sess.PaymentIntent == nil || sess.PaymentIntent.ID == "" {
		return fmt.Errorf("no payment intent found for session %s", sessionID)
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(sess.PaymentIntent.ID),
	}
	_, err = refund.New(params)
	return err
}

// SessionIDByPaymentIntent resolves the checkout session owning a payment
// intent. Needed for charge.refunded events, which only carry the intent.
func (p *StripeProvider) SessionIDByPaymentIntent(paymentIntentID string) (string, error) {
	params := &stripe.CheckoutSessionListParams{
		PaymentIntent: &paymentIntentID,
	}
	params.Limit = stripe.Int64(1)
	it := session.List(params)
	for it.Next() {
		sess := it.CheckoutSession()
		if sess != nil && sess.ID != "" {
			return sess.ID, nil
		}
	}
	return "", fmt.Errorf("no session found for payment intent %s", paymentIntentID)
}
