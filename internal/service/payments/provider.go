// Package payments holds the provider adapters behind booking creation and
// reconciliation. Each adapter turns a reservation into a provider-side
// payment artifact plus the next action the client must take to pay.
package payments

import (
	"context"

	"hangarshare/internal/db"
	"hangarshare/internal/entities"
)

type Provider interface {
	// Kind is the payment-method tag the provider serves.
	Kind() string

	// CreatePayment creates the provider-side artifact for the reservation.
	// The returned record is persisted by the caller inside the booking
	// transaction; an error aborts the whole booking.
	CreatePayment(ctx context.Context, res *db.Reservation) (*db.PaymentRecord, *entities.PaymentNextAction, error)
}
