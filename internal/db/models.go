package db

import (
	"database/sql"
	"time"
)

// Reservation lifecycle statuses. Transitions are monotonic: the terminal
// statuses (failed, expired, canceled, completed) are never left.
const (
	StatusAwaitingPayment = "awaiting_payment"
	StatusConfirmed       = "confirmed"
	StatusFailed          = "failed"
	StatusExpired         = "expired"
	StatusCanceled        = "canceled"
	StatusCompleted       = "completed"
)

// Payment methods accepted on booking creation.
const (
	PaymentMethodCard            = "card"
	PaymentMethodInstantTransfer = "instant-transfer"
)

// Payment providers backing the methods above.
const (
	ProviderStripe = "stripe"
	ProviderPix    = "pix"
)

// Provider-side payment record statuses.
const (
	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
	PaymentExpired   = "expired"
	PaymentRefunded  = "refunded"
)

// Hangar is a bookable listing. Owned and managed by the listing service;
// read-only here. Rates are in integer cents, 0 means the rate is not offered.
type Hangar struct {
	ID           int64
	OwnerID      int64
	HangarNumber string
	ICAOCode     string
	HourlyRate   int64
	DailyRate    int64
	MonthlyRate  int64
	IsAvailable  bool
}

// Reservation occupies a hangar for the half-open interval
// [CheckIn, CheckOut). Money fields are integer cents.
type Reservation struct {
	ID            int64
	Code          string
	HangarID      int64
	UserID        int64
	UserName      string
	UserEmail     string
	UserPhone     string
	CheckIn       time.Time
	CheckOut      time.Time
	Subtotal      int64
	Fee           int64
	Total         int64
	PaymentMethod string
	Status        string
	CanceledBy    sql.NullString
	CanceledAt    sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PaymentRecord is one provider-side payment/checkout object. A reservation
// has at most one active record; old ones are kept for audit.
type PaymentRecord struct {
	ID            int64
	ReservationID int64
	Provider      string
	ProviderRef   string
	Amount        int64
	Currency      string
	Status        string
	ExpiresAt     sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
