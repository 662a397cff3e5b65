package entities

import "time"

type ReservationResponse struct {
	Code          string     `json:"code"`
	HangarID      int64      `json:"hangar_id"`
	UserName      string     `json:"user_name"`
	UserEmail     string     `json:"user_email"`
	UserPhone     string     `json:"user_phone,omitempty"`
	CheckIn       time.Time  `json:"check_in"`
	CheckOut      time.Time  `json:"check_out"`
	Subtotal      int64      `json:"subtotal"`
	Fee           int64      `json:"fee"`
	Total         int64      `json:"total"`
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status"`
	CanceledBy    string     `json:"canceled_by,omitempty"`
	CanceledAt    *time.Time `json:"canceled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type ReservationsList struct {
	Total        int                   `json:"total"`
	Reservations []ReservationResponse `json:"reservations"`
}
