package entities

import "time"

type BookingRequest struct {
	HangarID      int64     `json:"hangar_id"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	PaymentMethod string    `json:"payment_method"` // card | instant-transfer
	UserPhone     string    `json:"user_phone,omitempty"`

	// Filled from the authenticated identity, not the payload.
	UserID    int64  `json:"-"`
	UserName  string `json:"-"`
	UserEmail string `json:"-"`
}

// PriceItem is one line of a quote: n units billed at a rate.
type PriceItem struct {
	Unit     string `json:"unit"` // hour | day | month
	Units    int    `json:"units"`
	Rate     int64  `json:"rate"`
	Subtotal int64  `json:"subtotal"`
}

// PriceBreakdown is the quote attached to a reservation. All amounts are
// integer cents; fee rounding is half-up.
type PriceBreakdown struct {
	Items    []PriceItem `json:"items"`
	Subtotal int64       `json:"subtotal"`
	Fee      int64       `json:"fee"`
	Total    int64       `json:"total"`
	Currency string      `json:"currency"`
}

// PaymentNextAction tells the client how to complete payment: a checkout
// redirect for card, or a copy-paste code plus QR image for instant transfer.
type PaymentNextAction struct {
	Provider    string     `json:"provider"`
	RedirectURL string     `json:"redirect_url,omitempty"`
	PaymentCode string     `json:"payment_code,omitempty"`
	QRCodePNG   string     `json:"qr_code_png,omitempty"` // base64
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Amount      int64      `json:"amount"`
	Currency    string     `json:"currency"`
}

type BookingResponse struct {
	Code       string             `json:"code"`
	Status     string             `json:"status"`
	CheckIn    time.Time          `json:"check_in"`
	CheckOut   time.Time          `json:"check_out"`
	Pricing    PriceBreakdown     `json:"pricing"`
	NextAction *PaymentNextAction `json:"next_action,omitempty"`
}
