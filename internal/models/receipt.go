package models

import "time"

// Receipt is the confirmation artifact of a paid booking. It is derived from the
// booking and its destination on every request and never stored.
type Receipt struct {
	BookingID        string        `json:"booking_id"`
	ConfirmationCode string        `json:"confirmation_code"`
	QRPayload        string        `json:"qr_payload"`
	DestinationName  string        `json:"destination_name"`
	TravelDate       string        `json:"travel_date"`
	StartTime        string        `json:"start_time"`
	Pax              int           `json:"pax"`
	TotalAmount      float64       `json:"total_amount"`
	Currency         string        `json:"currency"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
}
